/*
NAME
  blockencoder.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brstm

import (
	"github.com/ausocean/brstm/codec/dspadpcm"
)

const (
	blockSize    = 8192
	blockSamples = blockSize / dspadpcm.PacketBytes * dspadpcm.PacketSamples // 14336
)

// blockEncoder drives one channel's worth of GC-DSP ADPCM encoding,
// pulling one 8192-byte block at a time and accumulating the seed
// history and loop-point predictors a channel's AdpcmChannelInformation
// needs once encoding finishes.
type blockEncoder struct {
	samples          []int16
	loopRemaining    int
	loopPending      bool
	prevSamples      [2]int16
	isFirst          bool
	coefs            dspadpcm.CoefTable
	initialPredictor byte
	loopPredictor    byte
	loopHistory      [2]int16
}

func newBlockEncoder(samples []int16, loopPoint uint32) *blockEncoder {
	histAt := func(idx int) int16 {
		if idx < 0 || idx >= len(samples) {
			return 0
		}
		return samples[idx]
	}
	return &blockEncoder{
		samples:       samples,
		coefs:         dspadpcm.CorrelateCoefs(samples),
		loopRemaining: int(loopPoint),
		loopPending:   true,
		isFirst:       true,
		loopHistory:   [2]int16{histAt(int(loopPoint) - 2), histAt(int(loopPoint) - 1)},
	}
}

// pullChunk encodes up to one 8192-byte block, appending that block's
// seek-table entry to adpc and its encoded bytes to data. It reports
// whether this was the stream's final (possibly short, possibly empty)
// block; for the final block it also reports the number of unpadded bytes
// and samples written, and for any other block both counts are 0.
//
// A chunk is final when fewer than a full 14336-sample block's worth of
// input remains, including when none remains at all. A remaining count
// that exactly fills a block is not final: that chunk is encoded in full
// and the next call, finding zero samples left, reports the empty final
// block.
func (e *blockEncoder) pullChunk(adpc, data *[]byte) (bytesWritten, samples int, done bool) {
	var conv [16]int16
	conv[0], conv[1] = e.prevSamples[0], e.prevSamples[1]

	*adpc = append(*adpc, byte(e.prevSamples[0]>>8), byte(e.prevSamples[0]), byte(e.prevSamples[1]>>8), byte(e.prevSamples[1]))

	e.prevSamples[0] = sampleAt(e.samples, blockSamples-2)
	e.prevSamples[1] = sampleAt(e.samples, blockSamples-1)

	remaining := len(e.samples)
	final := remaining < blockSamples
	packets := blockSize / dspadpcm.PacketBytes
	if final {
		packets = (remaining + dspadpcm.PacketSamples - 1) / dspadpcm.PacketSamples
	}

	for p := 0; p < packets; p++ {
		for z := 0; z < dspadpcm.PacketSamples; z++ {
			conv[2+z] = sampleAt(e.samples, z)
		}

		block := dspadpcm.EncodeFrame(&conv, dspadpcm.PacketSamples, e.coefs)
		*data = append(*data, block[:]...)

		if e.isFirst {
			e.isFirst = false
			e.initialPredictor = block[0]
		}

		if e.loopPending {
			if e.loopRemaining < dspadpcm.PacketSamples {
				e.loopPending = false
				e.loopPredictor = block[0]
			} else {
				e.loopRemaining -= dspadpcm.PacketSamples
			}
		}

		conv[0], conv[1] = conv[14], conv[15]

		if len(e.samples) >= dspadpcm.PacketSamples {
			e.samples = e.samples[dspadpcm.PacketSamples:]
		} else {
			e.samples = nil
		}
	}

	if !final {
		return 0, 0, false
	}

	bytesWritten = packets * dspadpcm.PacketBytes
	samples = remaining
	if rem := bytesWritten % 32; rem != 0 {
		*data = append(*data, make([]byte, 32-rem)...)
	}
	return bytesWritten, samples, true
}

func sampleAt(s []int16, idx int) int16 {
	if idx < 0 || idx >= len(s) {
		return 0
	}
	return s[idx]
}

// channelInfo returns the AdpcmChannelInformation this encoder has
// accumulated. Call only after pullChunk has reported done.
func (e *blockEncoder) channelInfo() Channel {
	return Channel{
		Coefs:              e.coefs,
		InitialPredictor:   int16(e.initialPredictor),
		LoopPredictor:      int16(e.loopPredictor),
		LoopHistorySample1: e.loopHistory[0],
		LoopHistorySample2: e.loopHistory[1],
	}
}
