/*
NAME
  dspadpcm.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dspadpcm provides functions to transcode between PCM and the
// GameCube/Wii DSP ADPCM codec used by BRSTM audio streams. It has no
// knowledge of any container format; callers are responsible for supplying
// the channel's coefficient table and each block's seek history (yn1/yn2)
// and for chunking input into packets.
package dspadpcm

import "io"

const (
	// PacketSamples is the number of decoded samples produced by one
	// encoded packet.
	PacketSamples = 14

	// PacketBytes is the size in bytes of one encoded packet: a one byte
	// header followed by 7 bytes of packed 4-bit residuals.
	PacketBytes = 8

	// NumCoefSets is the number of (c0, c1) predictor coefficient pairs a
	// correlated coefficient table holds.
	NumCoefSets = 8
)

// CoefTable holds the 8 predictor coefficient pairs used by a channel.
type CoefTable [NumCoefSets][2]int16

// DecodeBlock decodes numSamples samples from data, a sequence of
// PacketBytes-sized packets, seeded with the given predictor history
// (hist1 is the most recently decoded sample, hist2 the one before it).
// Each packet is decoded independently of any other block; hist1/hist2
// only seed the first packet within data.
func DecodeBlock(data []byte, numSamples int, coefs CoefTable, hist1, hist2 int16) ([]int16, error) {
	out := make([]int16, 0, numSamples)
	for pos := 0; len(out) < numSamples; pos += PacketBytes {
		if pos+PacketBytes > len(data) {
			return nil, io.ErrUnexpectedEOF
		}
		header := data[pos]
		predIdx := header >> 4
		scale := int64(1) << (header & 0xf)
		c0 := int64(coefs[predIdx][0])
		c1 := int64(coefs[predIdx][1])

		for i := 0; i < PacketSamples/2 && len(out) < numSamples; i++ {
			b := data[pos+1+i]
			hi := int64(int8(b) >> 4)
			lo := int64(int8(b<<4) >> 4)
			for _, nib := range [2]int64{hi, lo} {
				if len(out) >= numSamples {
					break
				}
				pred := c0*int64(hist1) + c1*int64(hist2)
				val := (pred + (nib*scale)<<11 + 0x400) >> 11
				switch {
				case val > 32767:
					val = 32767
				case val < -32768:
					val = -32768
				}
				hist2 = hist1
				hist1 = int16(val)
				out = append(out, hist1)
			}
		}
	}
	return out, nil
}
