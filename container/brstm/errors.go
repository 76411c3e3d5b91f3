/*
NAME
  errors.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brstm

import (
	"errors"
	"fmt"
)

// Malformed reports a structural problem found while parsing a BRSTM
// file: a bad magic, an inconsistent length, an offset that doesn't fit,
// or similar. It is distinct from an I/O error, which is returned
// unwrapped (or wrapped with context via github.com/pkg/errors) so
// callers can still identify the underlying io error.
type Malformed struct {
	Where string
	Why   string
}

func (m *Malformed) Error() string {
	return fmt.Sprintf("malformed BRSTM, %s: %s", m.Where, m.Why)
}

func malformed(where, why string) error {
	return &Malformed{Where: where, Why: why}
}

// ErrEmptyChannels is returned by Encode when given no channels at all;
// there is no offending value to report beyond that.
var ErrEmptyChannels = errors.New("brstm: no channels given")

// MismatchedLengths is returned by Encode when channels don't all share
// the same sample count. Lens holds each channel's length, in order.
type MismatchedLengths struct {
	Lens []int
}

func (e *MismatchedLengths) Error() string {
	return fmt.Sprintf("brstm: channels have differing sample counts: %v", e.Lens)
}

// UnevenChannelCount is returned by Encode when the channel count is
// neither 1 nor even, so it cannot be split into mono/stereo tracks.
type UnevenChannelCount struct {
	N int
}

func (e *UnevenChannelCount) Error() string {
	return fmt.Sprintf("brstm: channel count %d does not evenly divide into mono/stereo tracks", e.N)
}

// TooManyChannels is returned by Encode when given more than 16 channels.
type TooManyChannels struct {
	N int
}

func (e *TooManyChannels) Error() string {
	return fmt.Sprintf("brstm: %d channels exceeds the 16-channel limit", e.N)
}

// LoopOutOfBounds is returned by Encode when the requested loop point
// falls past the end of the stream.
type LoopOutOfBounds struct {
	Loop, Total int
}

func (e *LoopOutOfBounds) Error() string {
	return fmt.Sprintf("brstm: loop point %d exceeds total samples %d", e.Loop, e.Total)
}

// Reshape errors.
var (
	ErrTrackNotExistent   = errors.New("brstm: reshape plan references a track that doesn't exist")
	ErrChannelNotExistent = errors.New("brstm: reshape plan references a channel that doesn't exist")
)
