/*
NAME
  reshape.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brstm

// AdditionalTrackKind classifies a non-primary track when matching
// tracks between an original and a reshaped layout: a Normal track
// carries its own independent mix, an Additive track layers on top of
// the primary track (e.g. a commentary or instrumental overlay) and may
// be dropped silently if the target has no equivalent.
type AdditionalTrackKind int

const (
	Normal AdditionalTrackKind = iota
	Additive
)

// ReshapeSrc names where one output channel's bytes come from: an
// original channel index, or Empty for an all-zero synthesized channel.
type ReshapeSrc struct {
	Empty   bool
	Channel int
}

// ReshapeTrackDef describes one output track and the channel(s) feeding
// it.
type ReshapeTrackDef struct {
	Stereo bool
	Left   ReshapeSrc // used when Stereo
	Right  ReshapeSrc // used when Stereo
	Mono   ReshapeSrc // used when !Stereo
}

// CalcReshape builds a reshape plan turning a file whose additional
// tracks are classified by original (laid out as Stereo(0,1),
// Stereo(2,3).. or Mono(0), Mono(1)..) into one classified by new. The
// primary track (index 0) is always carried over. A Normal target track
// consumes the next unused original Normal track, falling back to the
// primary track if none remain. An Additive target track consumes the
// next unused original Additive track, or is synthesized as silence if
// none remain.
func CalcReshape(original []AdditionalTrackKind, origStereo bool, new []AdditionalTrackKind, newStereo bool) []ReshapeTrackDef {
	srcFor := func(trackNo int) ReshapeTrackDef {
		if newStereo {
			if origStereo {
				return ReshapeTrackDef{Stereo: true,
					Left:  ReshapeSrc{Channel: trackNo * 2},
					Right: ReshapeSrc{Channel: trackNo*2 + 1},
				}
			}
			return ReshapeTrackDef{Stereo: true,
				Left:  ReshapeSrc{Channel: trackNo},
				Right: ReshapeSrc{Channel: trackNo},
			}
		}
		if origStereo {
			return ReshapeTrackDef{Mono: ReshapeSrc{Channel: trackNo * 2}}
		}
		return ReshapeTrackDef{Mono: ReshapeSrc{Channel: trackNo}}
	}

	result := make([]ReshapeTrackDef, 0, len(new)+1)
	result = append(result, srcFor(0))

	var origNormal, origAdditive []int
	for i, kind := range original {
		switch kind {
		case Normal:
			origNormal = append(origNormal, i+1)
		case Additive:
			origAdditive = append(origAdditive, i+1)
		}
	}

	ni, ai := 0, 0
	for _, kind := range new {
		switch kind {
		case Normal:
			track := 0
			if ni < len(origNormal) {
				track = origNormal[ni]
				ni++
			}
			result = append(result, srcFor(track))
		case Additive:
			if ai < len(origAdditive) {
				result = append(result, srcFor(origAdditive[ai]))
				ai++
			} else if newStereo {
				result = append(result, ReshapeTrackDef{Stereo: true, Left: ReshapeSrc{Empty: true}, Right: ReshapeSrc{Empty: true}})
			} else {
				result = append(result, ReshapeTrackDef{Mono: ReshapeSrc{Empty: true}})
			}
		}
	}
	return result
}

// Reshape rebuilds d's tracks, channels, ADPC seek table and DATA
// payload according to plan. Reshape copies data for new buffers before
// committing them, so d is left unmodified if an error is returned.
func Reshape(d *InfoWithData, plan []ReshapeTrackDef) error {
	var channelReshape []ReshapeSrc
	var newTracks []Track
	var newChannels []Channel
	cur := 0

	infoForSrc := func(src ReshapeSrc) (hasVolumePan bool, volume, pan uint8) {
		if src.Empty {
			return false, 0, 0
		}
		for _, t := range d.Tracks {
			if (t.Stereo && (t.Left == src.Channel || t.Right == src.Channel)) || (!t.Stereo && t.Left == src.Channel) {
				return t.HasVolumePan, t.Volume, t.Pan
			}
		}
		return false, 0, 0
	}
	channelForSrc := func(src ReshapeSrc) (Channel, error) {
		if src.Empty {
			return Channel{}, nil
		}
		if src.Channel < 0 || src.Channel >= len(d.Channels) {
			return Channel{}, ErrChannelNotExistent
		}
		return d.Channels[src.Channel], nil
	}

	for _, t := range plan {
		if t.Stereo {
			channelReshape = append(channelReshape, t.Left, t.Right)
			hasVP, vol, pan := infoForSrc(t.Left)
			newTracks = append(newTracks, Track{HasVolumePan: hasVP, Volume: vol, Pan: pan, Stereo: true, Left: cur, Right: cur + 1})
			cur += 2
			lc, err := channelForSrc(t.Left)
			if err != nil {
				return err
			}
			rc, err := channelForSrc(t.Right)
			if err != nil {
				return err
			}
			newChannels = append(newChannels, lc, rc)
		} else {
			channelReshape = append(channelReshape, t.Mono)
			hasVP, vol, pan := infoForSrc(t.Mono)
			newTracks = append(newTracks, Track{HasVolumePan: hasVP, Volume: vol, Pan: pan, Stereo: false, Left: cur})
			cur++
			c, err := channelForSrc(t.Mono)
			if err != nil {
				return err
			}
			newChannels = append(newChannels, c)
		}
	}

	var adpc, data []byte
	for b := 0; b < int(d.TotalBlocks); b++ {
		blockLen := int(d.BlockBytes)
		if b == int(d.TotalBlocks)-1 {
			blockLen = int(d.FinalBlockBytesPadded)
		}
		for _, src := range channelReshape {
			if src.Empty {
				adpc = append(adpc, 0, 0, 0, 0)
				data = append(data, make([]byte, blockLen)...)
				continue
			}
			adpc = append(adpc, d.AdpcEntry(src.Channel, b)...)
			data = append(data, d.DataBlock(src.Channel, b)...)
		}
	}

	d.Tracks = newTracks
	d.Channels = newChannels
	d.Adpc = adpc
	d.Data = data
	return nil
}
