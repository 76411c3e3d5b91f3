/*
NAME
  brstm_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brstm

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/brstm/codec/dspadpcm"
)

func TestCheckTracksValid(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{
			name: "valid stereo",
			info: Info{Channels: make([]Channel, 2), Tracks: []Track{{Stereo: true, Left: 0, Right: 1}}},
			want: true,
		},
		{
			name: "valid mono pair",
			info: Info{Channels: make([]Channel, 2), Tracks: []Track{{Left: 0}, {Left: 1}}},
			want: true,
		},
		{
			name: "out of range channel",
			info: Info{Channels: make([]Channel, 4), Tracks: []Track{{Stereo: true, Left: 5, Right: 6}}},
			want: false,
		},
		{
			name: "unreferenced channel",
			info: Info{Channels: make([]Channel, 2), Tracks: []Track{{Left: 0}}},
			want: false,
		},
	}
	for _, test := range tests {
		if got := CheckTracksValid(&test.info); got != test.want {
			t.Errorf("%s: CheckTracksValid() = %v, want %v", test.name, got, test.want)
		}
	}
}

// TestFixTracksBrokenFile mirrors a broken BRSTM where a 4-channel file
// claims a single out-of-range stereo track: FixTracks should rebuild it
// into two in-range stereo tracks and report that it made a change.
func TestFixTracksBrokenFile(t *testing.T) {
	info := Info{
		Channels: make([]Channel, 4),
		Tracks:   []Track{{Stereo: true, Left: 5, Right: 6}},
	}
	if changed := FixTracks(&info); !changed {
		t.Fatal("FixTracks() = false, want true")
	}
	want := []Track{{Stereo: true, Left: 0, Right: 1}, {Stereo: true, Left: 2, Right: 3}}
	if diff := cmp.Diff(want, info.Tracks); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}
	if !CheckTracksValid(&info) {
		t.Error("CheckTracksValid() = false after FixTracks")
	}
}

func TestFixTracksNoopWhenValid(t *testing.T) {
	info := Info{Channels: make([]Channel, 2), Tracks: []Track{{Stereo: true, Left: 0, Right: 1}}}
	if FixTracks(&info) {
		t.Error("FixTracks() = true on an already-valid Info")
	}
}

func TestFixTracksOddChannelCountGivesMono(t *testing.T) {
	info := Info{Channels: make([]Channel, 3), Tracks: []Track{{Stereo: true, Left: 9, Right: 10}}}
	FixTracks(&info)
	want := []Track{{Left: 0}, {Left: 1}, {Left: 2}}
	if diff := cmp.Diff(want, info.Tracks); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}
}

// TestEncodeWriteParseRoundTrip encodes two channels of silence, writes
// them out, parses the result back and checks the header fields and
// decoded PCM match.
func TestEncodeWriteParseRoundTrip(t *testing.T) {
	const sampleCount = 50
	channels := [][]int16{make([]int16, sampleCount), make([]int16, sampleCount)}

	encoded, err := Encode(channels, 32000, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded.TotalBlocks != 1 {
		t.Fatalf("TotalBlocks = %d, want 1", encoded.TotalBlocks)
	}
	if encoded.FinalBlockSamples != sampleCount {
		t.Fatalf("FinalBlockSamples = %d, want %d", encoded.FinalBlockSamples, sampleCount)
	}

	var buf bytes.Buffer
	if err := encoded.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r := bytes.NewReader(buf.Bytes())
	info, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.SampleRate != 32000 {
		t.Errorf("SampleRate = %d, want 32000", info.SampleRate)
	}
	if info.TotalSamples != sampleCount {
		t.Errorf("TotalSamples = %d, want %d", info.TotalSamples, sampleCount)
	}
	if !info.IsStereo() {
		t.Error("IsStereo() = false")
	}
	if !CheckTracksValid(info) {
		t.Error("CheckTracksValid() = false")
	}

	data, err := info.Materialize(r)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	for c := 0; c < 2; c++ {
		pcm, err := data.PCM(c)
		if err != nil {
			t.Fatalf("PCM(%d): %v", c, err)
		}
		if len(pcm) != sampleCount {
			t.Fatalf("PCM(%d) length = %d, want %d", c, len(pcm), sampleCount)
		}
		for i, s := range pcm {
			if s != 0 {
				t.Errorf("PCM(%d)[%d] = %d, want 0", c, i, s)
			}
		}
	}
}

// TestEncodeRejectsInvalidInput checks the validation failure modes of
// Encode, and that each carries the offending values spec.md §4.3 documents.
func TestEncodeRejectsInvalidInput(t *testing.T) {
	if _, err := Encode(nil, 32000, nil); err != ErrEmptyChannels {
		t.Errorf("empty channels: got %v, want %v", err, ErrEmptyChannels)
	}

	_, err := Encode([][]int16{{1, 2}, {1}}, 32000, nil)
	var ml *MismatchedLengths
	if !errors.As(err, &ml) {
		t.Fatalf("mismatched lengths: got %v, want *MismatchedLengths", err)
	}
	if diff := cmp.Diff([]int{2, 1}, ml.Lens); diff != "" {
		t.Errorf("MismatchedLengths.Lens mismatch (-want +got):\n%s", diff)
	}

	_, err = Encode([][]int16{{1}, {1}, {1}}, 32000, nil)
	var uc *UnevenChannelCount
	if !errors.As(err, &uc) {
		t.Fatalf("uneven channel count: got %v, want *UnevenChannelCount", err)
	}
	if uc.N != 3 {
		t.Errorf("UnevenChannelCount.N = %d, want 3", uc.N)
	}

	seventeen := make([][]int16, 17)
	for i := range seventeen {
		seventeen[i] = []int16{0, 0}
	}
	_, err = Encode(seventeen, 32000, nil)
	var tm *TooManyChannels
	if !errors.As(err, &tm) {
		t.Fatalf("too many channels: got %v, want *TooManyChannels", err)
	}
	if tm.N != 17 {
		t.Errorf("TooManyChannels.N = %d, want 17", tm.N)
	}

	loop := uint32(100)
	_, err = Encode([][]int16{make([]int16, 10)}, 32000, &loop)
	var lb *LoopOutOfBounds
	if !errors.As(err, &lb) {
		t.Fatalf("loop out of bounds: got %v, want *LoopOutOfBounds", err)
	}
	if lb.Loop != 100 || lb.Total != 10 {
		t.Errorf("LoopOutOfBounds = {%d, %d}, want {100, 10}", lb.Loop, lb.Total)
	}
}

// TestEncodeScenario1DCZeroStereo covers spec.md §8 Concrete Scenario 1:
// two channels of 28672 (= 2×14336, exactly two full blocks with nothing
// left over) samples of silence must still produce a trailing empty third
// block, decode back to silence, and round-trip bit-exact through a
// parse/write cycle.
func TestEncodeScenario1DCZeroStereo(t *testing.T) {
	const sampleCount = 28672
	channels := [][]int16{make([]int16, sampleCount), make([]int16, sampleCount)}

	encoded, err := Encode(channels, 32000, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded.TotalBlocks != 3 {
		t.Errorf("TotalBlocks = %d, want 3", encoded.TotalBlocks)
	}
	if encoded.FinalBlockSamples != 0 {
		t.Errorf("FinalBlockSamples = %d, want 0", encoded.FinalBlockSamples)
	}

	for c := 0; c < 2; c++ {
		pcm, err := encoded.PCM(c)
		if err != nil {
			t.Fatalf("PCM(%d): %v", c, err)
		}
		if len(pcm) != sampleCount {
			t.Fatalf("PCM(%d) length = %d, want %d", c, len(pcm), sampleCount)
		}
		for i, s := range pcm {
			if s != 0 {
				t.Fatalf("PCM(%d)[%d] = %d, want 0", c, i, s)
			}
		}
	}

	var buf bytes.Buffer
	if err := encoded.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	written := append([]byte(nil), buf.Bytes()...)

	info, err := Parse(bytes.NewReader(written))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := info.Materialize(bytes.NewReader(written))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	var rewritten bytes.Buffer
	if err := data.Write(&rewritten); err != nil {
		t.Fatalf("Write (re-serialize): %v", err)
	}
	if !bytes.Equal(written, rewritten.Bytes()) {
		t.Error("write(parse(f)) != f: round trip is not bit-exact")
	}
}

// TestEncodeScenario2SineWithLoop covers spec.md §8 Concrete Scenario 2: a
// mono 440 Hz sine at 44100 Hz with a loop point at sample 22050 must
// capture the loop predictor from the packet actually covering that sample,
// and the two history samples immediately preceding it.
func TestEncodeScenario2SineWithLoop(t *testing.T) {
	const sampleRate = 44100
	const n = 44100
	const loop = 22050

	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}
	loopPoint := uint32(loop)

	encoded, err := Encode([][]int16{samples}, sampleRate, &loopPoint)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !encoded.LoopFlag {
		t.Error("LoopFlag = false, want true")
	}
	if encoded.LoopStart != loop {
		t.Errorf("LoopStart = %d, want %d", encoded.LoopStart, loop)
	}

	ch := encoded.Channels[0]
	if ch.LoopHistorySample1 != samples[loop-2] || ch.LoopHistorySample2 != samples[loop-1] {
		t.Errorf("loop history = (%d, %d), want (%d, %d)",
			ch.LoopHistorySample1, ch.LoopHistorySample2, samples[loop-2], samples[loop-1])
	}

	blockIdx := loop / blockSamples
	within := loop - blockIdx*blockSamples
	packetIdx := within / dspadpcm.PacketSamples
	block := encoded.DataBlock(0, blockIdx)
	headerByte := block[packetIdx*dspadpcm.PacketBytes]
	if byte(ch.LoopPredictor) != headerByte {
		t.Errorf("LoopPredictor = %#x, want header byte %#x of packet %d in block %d",
			byte(ch.LoopPredictor), headerByte, packetIdx, blockIdx)
	}
}
