/*
NAME
  write.go

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
)

// Write serializes i's HEAD metadata together with the given ADPC
// seek-table and DATA payload bytes, producing a complete BRSTM file.
// adpc and data must already be built to match i (e.g. from Encode or
// from a prior Materialize); Write does not validate their contents. It
// checks only that adpc holds one 4-byte entry per channel per block;
// the length of data is not checked against i's header fields.
func (i *Info) Write(w io.Writer, adpc, data []byte) error {
	anyV1 := false
	for _, t := range i.Tracks {
		if t.HasVolumePan {
			anyV1 = true
			break
		}
	}

	tds := make([]trackDescription, len(i.Tracks))
	for idx, t := range i.Tracks {
		td := trackDescription{channels: trackChannels{stereo: t.Stereo, left: byte(t.Left), right: byte(t.Right)}}
		if anyV1 {
			if t.HasVolumePan {
				td.v1 = &trackDescV1{volume: t.Volume, panning: t.Pan}
			} else {
				v := defaultTrackDescV1
				td.v1 = &v
			}
		}
		tds[idx] = td
	}
	trackInfoType := byte(0)
	trackBytes := trackDescTailLen
	if anyV1 {
		trackInfoType = 1
		trackBytes = trackDescV1Len + trackDescTailLen
	}

	cis := make([]adpcmChannelInfo, len(i.Channels))
	for idx, c := range i.Channels {
		cis[idx] = adpcmChannelInfo{
			coefs:              c.Coefs,
			gain:               c.Gain,
			initialPredictor:   c.InitialPredictor,
			historySample1:     c.HistorySample1,
			historySample2:     c.HistorySample2,
			loopPredictor:      c.LoopPredictor,
			loopHistorySample1: c.LoopHistorySample1,
			loopHistorySample2: c.LoopHistorySample2,
		}
	}

	T := uint32(len(tds))
	C := uint32(len(cis))

	headHdrOff := align32(fileHeaderLen)
	head1Off := headHdrOff + headSectionHdrLen
	head2Off := head1Off + head1Len
	trackInfosOff := head2Off + 4 + T*trackInfoOffLen
	head3Off := trackInfosOff + T*uint32(trackBytes)
	chanInfosOff := head3Off + 4 + C*channelInfoOffLen
	adpcOff := align32(chanInfosOff + C*adpcmChannelInfoLen)
	adpcRaw := C * i.TotalBlocks * 4
	dataOff := align32(adpcOff + align32(adpcRaw+adpcHeaderLen))
	fileLength := align32(dataOff + uint32(len(data)) + dataHeaderLen)

	if uint32(len(adpc)) != adpcRaw {
		return errors.Errorf("brstm: ADPC payload length %d, want %d", len(adpc), adpcRaw)
	}

	headBase := headHdrOff + 8

	headSize := adpcOff - headHdrOff

	h1 := head1{
		codec: i.Codec, numChannels: byte(len(i.Channels)),
		sampleRate: i.SampleRate, loopStart: i.LoopStart, totalSamples: i.TotalSamples,
		audioOffset: dataOff + dataHeaderLen, totalBlocks: i.TotalBlocks,
		blocksSize: i.BlockBytes, blocksSamples: i.BlockSamples,
		finalBlockSize: i.FinalBlockBytes, finalBlockSamples: i.FinalBlockSamples,
		finalBlockSizePadded: i.FinalBlockBytesPadded,
		adpcSamplesPerEntry:  i.AdpcSamplesPerEntry, adpcBytesPerEntry: i.AdpcBytesPerEntry,
	}
	if i.LoopFlag {
		h1.loopFlag = 1
	}

	sh := headSectionHeader{
		chunkOffs: [3]uint32{head1Off - headBase, head2Off - headBase, head3Off - headBase},
		chunkSize: headSize,
	}

	h2 := head2{trackInfoType: trackInfoType}
	trackOff := trackInfosOff
	for _, td := range tds {
		h2.tracks = append(h2.tracks, trackInfoOffset{trackInfoType: trackInfoType, offset: trackOff - headBase})
		trackOff += uint32(td.byteLen())
	}

	h3 := head3{}
	chanOff := chanInfosOff
	for range cis {
		h3.channels = append(h3.channels, channelInfoOffset{offset: chanOff - headBase})
		chanOff += adpcmChannelInfoLen
	}

	fh := fileHeader{
		fileLength: fileLength,
		headOffset: headHdrOff, headSize: headSize,
		adpcOffset: adpcOff, adpcSize: adpcRaw + adpcHeaderLen,
		dataOffset: dataOff, dataSize: uint32(len(data)) + dataHeaderLen,
	}

	var buf []byte
	buf = append(buf, fh.bytes()...)
	padTo(&buf, headHdrOff)
	buf = append(buf, sh.bytes()...)
	padTo(&buf, head1Off)
	buf = append(buf, h1.bytes()...)
	padTo(&buf, head2Off)
	buf = append(buf, h2.bytes()...)
	padTo(&buf, trackInfosOff)
	for _, td := range tds {
		buf = append(buf, td.bytes()...)
	}
	padTo(&buf, head3Off)
	buf = append(buf, h3.bytes()...)
	padTo(&buf, chanInfosOff)
	for idx, ci := range cis {
		buf = append(buf, ci.bytes(h3.channels[idx].offset)...)
	}
	padTo(&buf, adpcOff)
	buf = append(buf, adpcSectionHeaderBytes(len(adpc))...)
	buf = append(buf, adpc...)
	padTo(&buf, dataOff)
	buf = append(buf, dataSectionHeaderBytes(len(data))...)
	buf = append(buf, data...)
	padTo(&buf, fileLength)

	_, err := w.Write(buf)
	return errors.Wrap(err, "writing BRSTM")
}

// padTo zero-pads buf up to length n.
func padTo(buf *[]byte, n uint32) {
	if uint32(len(*buf)) < n {
		*buf = append(*buf, make([]byte, n-uint32(len(*buf)))...)
	}
}

// Write serializes d's metadata, ADPC seek table and DATA payload as a
// complete BRSTM file.
func (d *InfoWithData) Write(w io.Writer) error {
	return d.Info.Write(w, d.Adpc, d.Data)
}
