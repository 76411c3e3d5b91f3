/*
NAME
  dspadpcm_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dspadpcm

import "testing"

// TestDecodeBlockSilence checks that an all-zero packet with an all-zero
// coefficient table decodes to silence, regardless of seed history.
func TestDecodeBlockSilence(t *testing.T) {
	packet := make([]byte, PacketBytes)
	var coefs CoefTable

	got, err := DecodeBlock(packet, PacketSamples, coefs, 123, -45)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if len(got) != PacketSamples {
		t.Fatalf("got %d samples, want %d", len(got), PacketSamples)
	}
	for i, s := range got {
		if s != 0 {
			t.Errorf("sample %d = %d, want 0", i, s)
		}
	}
}

// TestDecodeBlockShortData checks that DecodeBlock reports an error rather
// than panicking when data is too short for the requested sample count.
func TestDecodeBlockShortData(t *testing.T) {
	var coefs CoefTable
	if _, err := DecodeBlock([]byte{0x00}, PacketSamples, coefs, 0, 0); err == nil {
		t.Error("expected error for truncated packet, got nil")
	}
}

// TestEncodeDecodeRoundTripSilence checks that encoding a silent window and
// decoding the result reproduces silence.
func TestEncodeDecodeRoundTripSilence(t *testing.T) {
	var window [16]int16
	var coefs CoefTable

	packet := EncodeFrame(&window, PacketSamples, coefs)

	got, err := DecodeBlock(packet[:], PacketSamples, coefs, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	for i, s := range got {
		if s != 0 {
			t.Errorf("sample %d = %d, want 0", i, s)
		}
	}
}

// TestEncodeFramePartialPacket checks that a short final packet (fewer than
// PacketSamples samples) still round-trips its real samples; the trailing
// nibbles are encoded as zero but not checked against decoding, since a
// caller never asks DecodeBlock for more samples than the block claims.
func TestEncodeFramePartialPacket(t *testing.T) {
	var window [16]int16
	var coefs CoefTable
	const n = 5

	packet := EncodeFrame(&window, n, coefs)
	got, err := DecodeBlock(packet[:], n, coefs, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if len(got) != n {
		t.Fatalf("got %d samples, want %d", len(got), n)
	}
	for i, s := range got {
		if s != window[2+i] {
			t.Errorf("sample %d = %d, want %d", i, s, window[2+i])
		}
	}
}
