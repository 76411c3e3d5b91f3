/*
NAME
  structs.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package brstm provides BRSTM container parsing, serialization, GC-DSP
// ADPCM encode/decode driving, and track/channel reshaping.
//
// See https://github.com/Kinnay/Nintendo-File-Formats/wiki/BRSTM-File-Format
// for format documentation.
package brstm

import (
	"encoding/binary"
	"io"

	"github.com/ausocean/brstm/codec/dspadpcm"
)

// order is the byte order of every field in a BRSTM file.
var order = binary.BigEndian

// align32 rounds off up to the next multiple of 32 bytes, the alignment
// every HEAD/ADPC/DATA chunk is padded to.
func align32(off uint32) uint32 {
	return (off + 0x1f) &^ 0x1f
}

const (
	fileHeaderLen   = 0x40
	headSectionHdrLen = 8 + 3*headChunkOffsetLen
	headChunkOffsetLen = 8
	head1Len        = 52
	trackInfoOffLen = 8
	trackDescV1Len  = 8
	trackDescTailLen = 4
	head3HdrLen     = 4
	channelInfoOffLen = 8
	adpcmChannelInfoLen = 56
	adpcHeaderLen   = 8
	dataHeaderLen   = 0x20
)

// fileHeader is the fixed 0x40-byte BRSTM file header.
type fileHeader struct {
	fileLength uint32
	headOffset uint32
	headSize   uint32
	adpcOffset uint32
	adpcSize   uint32
	dataOffset uint32
	dataSize   uint32
}

func readFileHeader(r io.Reader) (fileHeader, error) {
	var buf [fileHeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fileHeader{}, err
	}
	if string(buf[0:4]) != "RSTM" {
		return fileHeader{}, malformed("file header", "bad magic, expected RSTM")
	}
	if order.Uint16(buf[4:6]) != 0xfeff {
		return fileHeader{}, malformed("file header", "bad byte order mark")
	}
	if order.Uint16(buf[6:8]) != 0x0100 {
		return fileHeader{}, malformed("file header", "unsupported version")
	}
	var h fileHeader
	h.fileLength = order.Uint32(buf[8:12])
	if order.Uint16(buf[12:14]) != fileHeaderLen {
		return fileHeader{}, malformed("file header", "unexpected header length")
	}
	if order.Uint16(buf[14:16]) != 2 {
		return fileHeader{}, malformed("file header", "unexpected chunk count")
	}
	h.headOffset = order.Uint32(buf[16:20])
	h.headSize = order.Uint32(buf[20:24])
	h.adpcOffset = order.Uint32(buf[24:28])
	h.adpcSize = order.Uint32(buf[28:32])
	h.dataOffset = order.Uint32(buf[32:36])
	h.dataSize = order.Uint32(buf[36:40])
	return h, nil
}

func (h fileHeader) bytes() []byte {
	b := make([]byte, fileHeaderLen)
	copy(b[0:4], "RSTM")
	order.PutUint16(b[4:6], 0xfeff)
	order.PutUint16(b[6:8], 0x0100)
	order.PutUint32(b[8:12], h.fileLength)
	order.PutUint16(b[12:14], fileHeaderLen)
	order.PutUint16(b[14:16], 2)
	order.PutUint32(b[16:20], h.headOffset)
	order.PutUint32(b[20:24], h.headSize)
	order.PutUint32(b[24:28], h.adpcOffset)
	order.PutUint32(b[28:32], h.adpcSize)
	order.PutUint32(b[32:36], h.dataOffset)
	order.PutUint32(b[36:40], h.dataSize)
	return b
}

// headSectionHeader is the "HEAD" chunk preamble: its own size, followed by
// the byte offsets (relative to 8 bytes past this chunk's start) of the
// Head1, Head2 and Head3 sub-chunks.
type headSectionHeader struct {
	chunkSize  uint32
	chunkOffs  [3]uint32
}

func readHeadSectionHeader(r io.Reader) (headSectionHeader, error) {
	var buf [headSectionHdrLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return headSectionHeader{}, err
	}
	if string(buf[0:4]) != "HEAD" {
		return headSectionHeader{}, malformed("HEAD section header", "bad magic, expected HEAD")
	}
	var h headSectionHeader
	h.chunkSize = order.Uint32(buf[4:8])
	for i := 0; i < 3; i++ {
		off := 8 + i*headChunkOffsetLen
		// First 4 bytes of each entry are a constant 0x01000000 marker.
		h.chunkOffs[i] = order.Uint32(buf[off+4 : off+8])
	}
	return h, nil
}

func (h headSectionHeader) bytes() []byte {
	b := make([]byte, headSectionHdrLen)
	copy(b[0:4], "HEAD")
	order.PutUint32(b[4:8], h.chunkSize)
	for i := 0; i < 3; i++ {
		off := 8 + i*headChunkOffsetLen
		order.PutUint32(b[off:off+4], 0x01000000)
		order.PutUint32(b[off+4:off+8], h.chunkOffs[i])
	}
	return b
}

// head1 holds the audio stream parameters (codec, sample rate, block
// layout, loop point).
type head1 struct {
	codec                byte
	loopFlag             byte
	numChannels          byte
	sampleRate           uint16
	loopStart            uint32
	totalSamples         uint32
	audioOffset          uint32
	totalBlocks          uint32
	blocksSize           uint32
	blocksSamples        uint32
	finalBlockSize       uint32
	finalBlockSamples    uint32
	finalBlockSizePadded uint32
	adpcSamplesPerEntry  uint32
	adpcBytesPerEntry    uint32
}

func readHead1(r io.Reader) (head1, error) {
	var buf [head1Len]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return head1{}, err
	}
	var h head1
	h.codec = buf[0]
	h.loopFlag = buf[1]
	h.numChannels = buf[2]
	h.sampleRate = order.Uint16(buf[4:6])
	h.loopStart = order.Uint32(buf[8:12])
	h.totalSamples = order.Uint32(buf[12:16])
	h.audioOffset = order.Uint32(buf[16:20])
	h.totalBlocks = order.Uint32(buf[20:24])
	h.blocksSize = order.Uint32(buf[24:28])
	h.blocksSamples = order.Uint32(buf[28:32])
	h.finalBlockSize = order.Uint32(buf[32:36])
	h.finalBlockSamples = order.Uint32(buf[36:40])
	h.finalBlockSizePadded = order.Uint32(buf[40:44])
	h.adpcSamplesPerEntry = order.Uint32(buf[44:48])
	h.adpcBytesPerEntry = order.Uint32(buf[48:52])
	if h.adpcBytesPerEntry != 4 {
		return head1{}, malformed("Head1", "adpc_bytes_per_entry must be 4")
	}
	return h, nil
}

func (h head1) bytes() []byte {
	b := make([]byte, head1Len)
	b[0] = h.codec
	b[1] = h.loopFlag
	b[2] = h.numChannels
	order.PutUint16(b[4:6], h.sampleRate)
	order.PutUint32(b[8:12], h.loopStart)
	order.PutUint32(b[12:16], h.totalSamples)
	order.PutUint32(b[16:20], h.audioOffset)
	order.PutUint32(b[20:24], h.totalBlocks)
	order.PutUint32(b[24:28], h.blocksSize)
	order.PutUint32(b[28:32], h.blocksSamples)
	order.PutUint32(b[32:36], h.finalBlockSize)
	order.PutUint32(b[36:40], h.finalBlockSamples)
	order.PutUint32(b[40:44], h.finalBlockSizePadded)
	order.PutUint32(b[44:48], h.adpcSamplesPerEntry)
	order.PutUint32(b[48:52], h.adpcBytesPerEntry)
	return b
}

// trackInfoOffset locates one track's description relative to the HEAD
// section base, tagged with its description type (0 or 1).
type trackInfoOffset struct {
	trackInfoType byte
	offset        uint32
}

func readTrackInfoOffset(r io.Reader) (trackInfoOffset, error) {
	var buf [trackInfoOffLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return trackInfoOffset{}, err
	}
	var t trackInfoOffset
	t.trackInfoType = buf[1]
	t.offset = order.Uint32(buf[4:8])
	return t, nil
}

func (t trackInfoOffset) bytes() []byte {
	b := make([]byte, trackInfoOffLen)
	b[0] = 1
	b[1] = t.trackInfoType
	order.PutUint32(b[4:8], t.offset)
	return b
}

// head2 lists every track's description offset and the description type
// shared by all of them.
type head2 struct {
	trackInfoType byte
	tracks        []trackInfoOffset
}

func readHead2(r io.Reader) (head2, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return head2{}, err
	}
	numTracks := int(hdr[0])
	h := head2{trackInfoType: hdr[1]}
	h.tracks = make([]trackInfoOffset, numTracks)
	for i := range h.tracks {
		t, err := readTrackInfoOffset(r)
		if err != nil {
			return head2{}, err
		}
		h.tracks[i] = t
	}
	return h, nil
}

func (h head2) bytes() []byte {
	b := make([]byte, 4, head2Len(len(h.tracks)))
	b[0] = byte(len(h.tracks))
	b[1] = h.trackInfoType
	for _, t := range h.tracks {
		b = append(b, t.bytes()...)
	}
	return b
}

func head2Len(trackCount int) int { return 4 + trackCount*trackInfoOffLen }

// trackDescV1 carries the optional volume/pan fields present when a
// track's description type is 1.
type trackDescV1 struct {
	volume  byte
	panning byte
}

func readTrackDescV1(r io.Reader) (trackDescV1, error) {
	var buf [trackDescV1Len]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return trackDescV1{}, err
	}
	return trackDescV1{volume: buf[0], panning: buf[1]}, nil
}

func (t trackDescV1) bytes() []byte {
	b := make([]byte, trackDescV1Len)
	b[0] = t.volume
	b[1] = t.panning
	return b
}

// defaultTrackDescV1 is used when promoting a type-0 track description to
// type 1 (e.g. when some other track in the same file needs volume/pan).
var defaultTrackDescV1 = trackDescV1{volume: 0x7f, panning: 64}

// trackChannels is the tagged union of a track's channel indices: either
// one (mono) or two (stereo, left/right).
type trackChannels struct {
	stereo bool
	left   byte
	right  byte
}

// trackDescription is one track's description, variant on trackInfoType
// (0 = no volume/pan, 1 = volume/pan present).
type trackDescription struct {
	v1       *trackDescV1
	channels trackChannels
}

func readTrackDescription(r io.Reader, infoType byte) (trackDescription, error) {
	var td trackDescription
	if infoType == 1 {
		v1, err := readTrackDescV1(r)
		if err != nil {
			return trackDescription{}, err
		}
		td.v1 = &v1
	}
	var tail [trackDescTailLen]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return trackDescription{}, err
	}
	numChannels := tail[0]
	switch numChannels {
	case 1:
		td.channels = trackChannels{stereo: false, left: tail[1]}
	case 2:
		td.channels = trackChannels{stereo: true, left: tail[1], right: tail[2]}
	default:
		return trackDescription{}, malformed("track description", "channels_in_track must be 1 or 2")
	}
	return td, nil
}

func (t trackDescription) byteLen() int {
	if t.v1 != nil {
		return trackDescV1Len + trackDescTailLen
	}
	return trackDescTailLen
}

func (t trackDescription) bytes() []byte {
	b := make([]byte, 0, t.byteLen())
	if t.v1 != nil {
		b = append(b, t.v1.bytes()...)
	}
	tail := make([]byte, trackDescTailLen)
	if t.channels.stereo {
		tail[0] = 2
		tail[1] = t.channels.left
		tail[2] = t.channels.right
	} else {
		tail[0] = 1
		tail[1] = t.channels.left
	}
	return append(b, tail...)
}

// channelInfoOffset locates one channel's ADPCM info relative to the HEAD
// section base.
type channelInfoOffset struct {
	offset uint32
}

func readChannelInfoOffset(r io.Reader) (channelInfoOffset, error) {
	var buf [channelInfoOffLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return channelInfoOffset{}, err
	}
	return channelInfoOffset{offset: order.Uint32(buf[4:8])}, nil
}

func (c channelInfoOffset) bytes() []byte {
	b := make([]byte, channelInfoOffLen)
	order.PutUint32(b[0:4], 0x01000000)
	order.PutUint32(b[4:8], c.offset)
	return b
}

// head3 lists every channel's ADPCM info offset.
type head3 struct {
	channels []channelInfoOffset
}

func readHead3(r io.Reader) (head3, error) {
	var hdr [head3HdrLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return head3{}, err
	}
	n := int(hdr[0])
	h := head3{channels: make([]channelInfoOffset, n)}
	for i := range h.channels {
		c, err := readChannelInfoOffset(r)
		if err != nil {
			return head3{}, err
		}
		h.channels[i] = c
	}
	return h, nil
}

func (h head3) bytes() []byte {
	b := make([]byte, head3HdrLen, head3Len(len(h.channels)))
	b[0] = byte(len(h.channels))
	for _, c := range h.channels {
		b = append(b, c.bytes()...)
	}
	return b
}

func head3Len(channelCount int) int { return head3HdrLen + channelCount*channelInfoOffLen }

// adpcmChannelInfo is one channel's ADPCM coefficient table, seed history
// and loop-seek history.
type adpcmChannelInfo struct {
	coefs              dspadpcm.CoefTable
	gain               int16
	initialPredictor   int16
	historySample1     int16
	historySample2     int16
	loopPredictor      int16
	loopHistorySample1 int16
	loopHistorySample2 int16
}

func readAdpcmChannelInfo(r io.Reader) (adpcmChannelInfo, error) {
	var buf [adpcmChannelInfoLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return adpcmChannelInfo{}, err
	}
	var a adpcmChannelInfo
	off := 8 // skip marker + coefficients offset field
	for i := 0; i < 8; i++ {
		a.coefs[i][0] = int16(order.Uint16(buf[off+i*4 : off+i*4+2]))
		a.coefs[i][1] = int16(order.Uint16(buf[off+i*4+2 : off+i*4+4]))
	}
	off += 32
	a.gain = int16(order.Uint16(buf[off : off+2]))
	a.initialPredictor = int16(order.Uint16(buf[off+2 : off+4]))
	a.historySample1 = int16(order.Uint16(buf[off+4 : off+6]))
	a.historySample2 = int16(order.Uint16(buf[off+6 : off+8]))
	a.loopPredictor = int16(order.Uint16(buf[off+8 : off+10]))
	a.loopHistorySample1 = int16(order.Uint16(buf[off+10 : off+12]))
	a.loopHistorySample2 = int16(order.Uint16(buf[off+12 : off+14]))
	return a, nil
}

// bytes serializes the channel info. selfOffset is this struct's own byte
// offset relative to the HEAD section base (8 bytes past the HEAD chunk
// start), used to compute the self-referential coefficients offset field.
func (a adpcmChannelInfo) bytes(selfOffset uint32) []byte {
	b := make([]byte, adpcmChannelInfoLen)
	order.PutUint32(b[0:4], 0x01000000)
	order.PutUint32(b[4:8], selfOffset+8)
	off := 8
	for i := 0; i < 8; i++ {
		order.PutUint16(b[off+i*4:off+i*4+2], uint16(a.coefs[i][0]))
		order.PutUint16(b[off+i*4+2:off+i*4+4], uint16(a.coefs[i][1]))
	}
	off += 32
	order.PutUint16(b[off:off+2], uint16(a.gain))
	order.PutUint16(b[off+2:off+4], uint16(a.initialPredictor))
	order.PutUint16(b[off+4:off+6], uint16(a.historySample1))
	order.PutUint16(b[off+6:off+8], uint16(a.historySample2))
	order.PutUint16(b[off+8:off+10], uint16(a.loopPredictor))
	order.PutUint16(b[off+10:off+12], uint16(a.loopHistorySample1))
	order.PutUint16(b[off+12:off+14], uint16(a.loopHistorySample2))
	return b
}

// readAdpcSection reads the "ADPC" chunk header and returns its payload
// (the seek table), leaving r positioned after the payload.
func readAdpcSection(r io.Reader) ([]byte, error) {
	var hdr [adpcHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "ADPC" {
		return nil, malformed("ADPC section", "bad magic, expected ADPC")
	}
	dataLen := order.Uint32(hdr[4:8])
	if dataLen < adpcHeaderLen {
		return nil, malformed("ADPC section", "data_len smaller than header")
	}
	buf := make([]byte, dataLen-adpcHeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func adpcSectionHeaderBytes(payloadLen int) []byte {
	b := make([]byte, adpcHeaderLen)
	copy(b[0:4], "ADPC")
	order.PutUint32(b[4:8], uint32(payloadLen+adpcHeaderLen))
	return b
}

// readDataSection reads the "DATA" chunk header and returns its payload
// (the interleaved encoded blocks), leaving r positioned after the
// payload.
func readDataSection(r io.Reader) ([]byte, error) {
	var hdr [dataHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "DATA" {
		return nil, malformed("DATA section", "bad magic, expected DATA")
	}
	dataLen := order.Uint32(hdr[4:8])
	if dataLen < dataHeaderLen {
		return nil, malformed("DATA section", "data_len smaller than header")
	}
	if order.Uint32(hdr[8:12]) != 0x18 {
		return nil, malformed("DATA section", "unexpected padding field")
	}
	buf := make([]byte, dataLen-dataHeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func dataSectionHeaderBytes(payloadLen int) []byte {
	b := make([]byte, dataHeaderLen)
	copy(b[0:4], "DATA")
	order.PutUint32(b[4:8], uint32(payloadLen+dataHeaderLen))
	order.PutUint32(b[8:12], 0x18)
	return b
}
