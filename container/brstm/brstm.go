/*
NAME
  brstm.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brstm

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/brstm/codec/dspadpcm"
)

// Channel holds one channel's ADPCM coefficients, seed history and
// loop-seek history, as stored in the HEAD3 sub-chunk.
type Channel struct {
	Coefs              dspadpcm.CoefTable
	Gain               int16
	InitialPredictor   int16
	HistorySample1     int16
	HistorySample2     int16
	LoopPredictor      int16
	LoopHistorySample1 int16
	LoopHistorySample2 int16
}

// Track is either a mono track referencing one channel, or a stereo track
// referencing a left and right channel, each by index into Info.Channels.
type Track struct {
	HasVolumePan bool
	Volume       uint8
	Pan          uint8
	Stereo       bool
	Left         int
	Right        int
}

// Info is the parsed BRSTM metadata: stream parameters, tracks and
// channels. It remembers where the ADPC and DATA payload live in the
// stream it was parsed from so Materialize can fetch them on demand.
type Info struct {
	Codec                 uint8
	LoopFlag              bool
	SampleRate            uint16
	LoopStart             uint32
	TotalSamples          uint32
	TotalBlocks           uint32
	BlockBytes            uint32
	BlockSamples          uint32
	FinalBlockBytes       uint32
	FinalBlockSamples     uint32
	FinalBlockBytesPadded uint32
	AdpcSamplesPerEntry   uint32
	AdpcBytesPerEntry     uint32

	Tracks   []Track
	Channels []Channel

	adpcOffset uint32
	adpcSize   uint32
	dataOffset uint32
	dataSize   uint32
}

// InfoWithData is an Info plus owned ADPC seek-table and DATA payload
// buffers, independent of any source reader.
type InfoWithData struct {
	Info
	Adpc []byte
	Data []byte
}

// Parse reads a BRSTM file's header and HEAD chunks from r, recording
// where the ADPC and DATA payload live for a later Materialize. It does
// not read payload bytes.
func Parse(r io.ReadSeeker) (*Info, error) {
	fh, err := readFileHeader(r)
	if err != nil {
		return nil, asParseError(err, "file header")
	}

	if _, err := r.Seek(int64(fh.headOffset), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to HEAD section")
	}
	sh, err := readHeadSectionHeader(r)
	if err != nil {
		return nil, asParseError(err, "HEAD section header")
	}
	headBase := fh.headOffset + 8

	if _, err := r.Seek(int64(headBase+sh.chunkOffs[0]), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to Head1")
	}
	h1, err := readHead1(r)
	if err != nil {
		return nil, asParseError(err, "Head1")
	}

	if _, err := r.Seek(int64(headBase+sh.chunkOffs[1]), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to Head2")
	}
	h2, err := readHead2(r)
	if err != nil {
		return nil, asParseError(err, "Head2")
	}

	if _, err := r.Seek(int64(headBase+sh.chunkOffs[2]), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to Head3")
	}
	h3, err := readHead3(r)
	if err != nil {
		return nil, asParseError(err, "Head3")
	}

	channels := make([]Channel, len(h3.channels))
	for i, off := range h3.channels {
		if _, err := r.Seek(int64(headBase+off.offset), io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "seeking to channel info")
		}
		ci, err := readAdpcmChannelInfo(r)
		if err != nil {
			return nil, asParseError(err, "channel info")
		}
		channels[i] = Channel{
			Coefs:              ci.coefs,
			Gain:               ci.gain,
			InitialPredictor:   ci.initialPredictor,
			HistorySample1:     ci.historySample1,
			HistorySample2:     ci.historySample2,
			LoopPredictor:      ci.loopPredictor,
			LoopHistorySample1: ci.loopHistorySample1,
			LoopHistorySample2: ci.loopHistorySample2,
		}
	}

	tracks := make([]Track, len(h2.tracks))
	for i, off := range h2.tracks {
		if off.trackInfoType != h2.trackInfoType {
			return nil, malformed("Head2", "differing track description type")
		}
		if _, err := r.Seek(int64(headBase+off.offset), io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "seeking to track description")
		}
		td, err := readTrackDescription(r, off.trackInfoType)
		if err != nil {
			return nil, asParseError(err, "track description")
		}
		t := Track{Stereo: td.channels.stereo, Left: int(td.channels.left), Right: int(td.channels.right)}
		if td.v1 != nil {
			t.HasVolumePan = true
			t.Volume = td.v1.volume
			t.Pan = td.v1.panning
		}
		tracks[i] = t
	}

	info := &Info{
		Codec:                 h1.codec,
		LoopFlag:              h1.loopFlag != 0,
		SampleRate:            h1.sampleRate,
		LoopStart:             h1.loopStart,
		TotalSamples:          h1.totalSamples,
		TotalBlocks:           h1.totalBlocks,
		BlockBytes:            h1.blocksSize,
		BlockSamples:          h1.blocksSamples,
		FinalBlockBytes:       h1.finalBlockSize,
		FinalBlockSamples:     h1.finalBlockSamples,
		FinalBlockBytesPadded: h1.finalBlockSizePadded,
		AdpcSamplesPerEntry:   h1.adpcSamplesPerEntry,
		AdpcBytesPerEntry:     h1.adpcBytesPerEntry,
		Tracks:                tracks,
		Channels:              channels,
		adpcOffset:            fh.adpcOffset,
		adpcSize:              fh.adpcSize,
		dataOffset:            fh.dataOffset,
		dataSize:              fh.dataSize,
	}
	return info, nil
}

// asParseError passes Malformed errors through unchanged and wraps
// anything else (i.e. an io error) with context.
func asParseError(err error, where string) error {
	var m *Malformed
	if errors.As(err, &m) {
		return m
	}
	return errors.Wrap(err, where)
}

// Materialize reads the ADPC and DATA payload referenced by i from r.
func (i *Info) Materialize(r io.ReadSeeker) (*InfoWithData, error) {
	if _, err := r.Seek(int64(i.adpcOffset), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to ADPC section")
	}
	adpc, err := readAdpcSection(r)
	if err != nil {
		return nil, asParseError(err, "ADPC section")
	}

	if _, err := r.Seek(int64(i.dataOffset), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to DATA section")
	}
	data, err := readDataSection(r)
	if err != nil {
		return nil, asParseError(err, "DATA section")
	}

	return &InfoWithData{Info: *i, Adpc: adpc, Data: data}, nil
}

// ChannelCount returns the number of channels.
func (i *Info) ChannelCount() int { return len(i.Channels) }

// ChannelsPerTrack returns the number of channels every track has (1 or
// 2) and whether all tracks agree.
func (i *Info) ChannelsPerTrack() (int, bool) {
	if len(i.Tracks) == 0 {
		return 0, false
	}
	want := 1
	if i.Tracks[0].Stereo {
		want = 2
	}
	for _, t := range i.Tracks[1:] {
		got := 1
		if t.Stereo {
			got = 2
		}
		if got != want {
			return 0, false
		}
	}
	return want, true
}

// IsStereo reports whether every track is stereo.
func (i *Info) IsStereo() bool {
	n, ok := i.ChannelsPerTrack()
	return ok && n == 2
}

// IsMono reports whether every track is mono.
func (i *Info) IsMono() bool {
	n, ok := i.ChannelsPerTrack()
	return ok && n == 1
}

// CheckTracksValid reports whether every track's channel references are
// in range and every channel is referenced by at least one track.
func CheckTracksValid(i *Info) bool {
	n := len(i.Channels)
	seen := make([]bool, n)
	for _, t := range i.Tracks {
		if t.Left < 0 || t.Left >= n {
			return false
		}
		seen[t.Left] = true
		if t.Stereo {
			if t.Right < 0 || t.Right >= n {
				return false
			}
			seen[t.Right] = true
		}
	}
	for _, s := range seen {
		if !s {
			return false
		}
	}
	return true
}

// FixTracks rebuilds i.Tracks deterministically when CheckTracksValid
// reports i invalid (a track references an out-of-range channel, or some
// channel is referenced by no track). The channel count is always
// len(i.Channels), so no separate count needs resyncing. It reports
// whether any change was made, and is a no-op (returning false) on an
// already-valid Info.
func FixTracks(i *Info) bool {
	if CheckTracksValid(i) {
		return false
	}

	n := len(i.Channels)
	var tracks []Track
	if n > 1 && n%2 == 0 {
		for c := 0; c < n; c += 2 {
			tracks = append(tracks, Track{Stereo: true, Left: c, Right: c + 1})
		}
	} else {
		for c := 0; c < n; c++ {
			tracks = append(tracks, Track{Stereo: false, Left: c})
		}
	}
	i.Tracks = tracks
	return true
}

// AdpcEntry returns the 4 raw big-endian seek-table bytes for channel c
// at block index b.
func (d *InfoWithData) AdpcEntry(c, b int) []byte {
	off := b*4*len(d.Channels) + c*4
	return d.Adpc[off : off+4]
}

// AdpcYn decodes the seek-table entry for channel c at block index b.
func (d *InfoWithData) AdpcYn(c, b int) (yn1, yn2 int16) {
	e := d.AdpcEntry(c, b)
	return int16(order.Uint16(e[0:2])), int16(order.Uint16(e[2:4]))
}

// dataBlockOffset returns the byte offset and length of channel c's data
// within block b.
func (i *Info) dataBlockOffset(c, b int) (off, length int) {
	length = int(i.BlockBytes)
	if b == int(i.TotalBlocks)-1 {
		length = int(i.FinalBlockBytesPadded)
	}
	off = b*len(i.Channels)*int(i.BlockBytes) + c*length
	return off, length
}

// DataBlock returns channel c's raw encoded bytes for block b.
func (d *InfoWithData) DataBlock(c, b int) []byte {
	off, length := d.dataBlockOffset(c, b)
	return d.Data[off : off+length]
}

// DataBlockWithSamples returns channel c's raw encoded bytes for block b,
// along with the number of PCM samples the block decodes to.
func (d *InfoWithData) DataBlockWithSamples(c, b int) ([]byte, int) {
	samples := int(d.BlockSamples)
	if b == int(d.TotalBlocks)-1 {
		samples = int(d.FinalBlockSamples)
	}
	return d.DataBlock(c, b), samples
}

// PCM decodes channel c's entire stream to 16-bit PCM samples.
func (d *InfoWithData) PCM(c int) ([]int16, error) {
	var out []int16
	for b := 0; b < int(d.TotalBlocks); b++ {
		block, samples := d.DataBlockWithSamples(c, b)
		yn1, yn2 := d.AdpcYn(c, b)
		decoded, err := dspadpcm.DecodeBlock(block, samples, d.Channels[c].Coefs, yn1, yn2)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding channel %d block %d", c, b)
		}
		out = append(out, decoded...)
	}
	return out, nil
}
