/*
NAME
  encode.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brstm

// Encode GC-DSP-ADPCM-encodes the given channels (all must share the
// same sample count) into a complete Info/ADPC/DATA set. loopPoint, if
// non-nil, is a sample index that must not exceed the stream length.
// Channel count must be 1 (mono) or even (stereo pairs), and at most 16.
func Encode(channels [][]int16, sampleRate uint16, loopPoint *uint32) (*InfoWithData, error) {
	if len(channels) == 0 {
		return nil, ErrEmptyChannels
	}
	sampleCount := len(channels[0])
	lens := make([]int, len(channels))
	mismatched := false
	for i, c := range channels {
		lens[i] = len(c)
		if len(c) != sampleCount {
			mismatched = true
		}
	}
	if mismatched {
		return nil, &MismatchedLengths{Lens: lens}
	}
	if len(channels) > 16 {
		return nil, &TooManyChannels{N: len(channels)}
	}
	if len(channels)%2 != 0 && len(channels) != 1 {
		return nil, &UnevenChannelCount{N: len(channels)}
	}
	var loop uint32
	if loopPoint != nil {
		loop = *loopPoint
		if int(loop) > sampleCount {
			return nil, &LoopOutOfBounds{Loop: int(loop), Total: sampleCount}
		}
	}

	encoders := make([]*blockEncoder, len(channels))
	for i, c := range channels {
		encoders[i] = newBlockEncoder(c, loop)
	}

	var adpc, data []byte
	var totalBlocks uint32
	var finalBlockBytes, finalBlockSamples int
	for {
		var bw, sm int
		var done bool
		for _, enc := range encoders {
			bw, sm, done = enc.pullChunk(&adpc, &data)
		}
		totalBlocks++
		if done {
			finalBlockBytes, finalBlockSamples = bw, sm
			break
		}
	}

	channelInfos := make([]Channel, len(encoders))
	for i, enc := range encoders {
		channelInfos[i] = enc.channelInfo()
	}

	var tracks []Track
	if len(channels) == 1 {
		tracks = []Track{{Stereo: false, Left: 0}}
	} else {
		for t := 0; t < len(channels)/2; t++ {
			tracks = append(tracks, Track{Stereo: true, Left: t * 2, Right: t*2 + 1})
		}
	}

	info := Info{
		Codec:                 2,
		LoopFlag:              loopPoint != nil,
		SampleRate:            sampleRate,
		LoopStart:             loop,
		TotalSamples:          uint32(sampleCount),
		TotalBlocks:           totalBlocks,
		BlockBytes:            blockSize,
		BlockSamples:          blockSamples,
		FinalBlockBytes:       uint32(finalBlockBytes),
		FinalBlockSamples:     uint32(finalBlockSamples),
		FinalBlockBytesPadded: align32(uint32(finalBlockBytes)),
		AdpcSamplesPerEntry:   blockSamples,
		AdpcBytesPerEntry:     4,
		Tracks:                tracks,
		Channels:              channelInfos,
	}

	return &InfoWithData{Info: info, Adpc: adpc, Data: data}, nil
}
