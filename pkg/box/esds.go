package box

import (
	gocodec "github.com/yapingcat/gomedia/go-codec"

	"m7s.live/omaf/pkg/util"
)

// aligned(8) class ESDBox extends FullBox(‘esds’, version = 0, 0) {
// 	ES_Descriptor ES;
// }
//
// The descriptor tree is kept as bytes. Accessors walk it on demand with a
// ByteStream, which fails on short input where BitStream would panic.

const (
	ESDescrTag            = 0x03
	DecoderConfigDescrTag = 0x04
	DecSpecificInfoTag    = 0x05
	SLConfigDescrTag      = 0x06

	ObjectTypeAudioISO14496_3 = 0x40
	StreamTypeAudio           = 0x05
)

type ESDBox struct {
	FullBox
	Descriptor []byte
}

// NewESDBox builds an ES_Descriptor for an MPEG-4 audio stream.
func NewESDBox(esID uint16, asc []byte, maxBitrate, avgBitrate uint32) *ESDBox {
	dsi := descriptor(DecSpecificInfoTag, asc)

	body := gocodec.NewBitStreamWriter(13 + len(dsi))
	body.PutByte(ObjectTypeAudioISO14496_3)
	body.PutUint8(StreamTypeAudio, 6)
	body.PutUint8(0, 1) // upStream
	body.PutUint8(1, 1)
	body.PutUint32(0, 24) // bufferSizeDB
	body.PutUint32(maxBitrate, 32)
	body.PutUint32(avgBitrate, 32)
	body.PutBytes(dsi)
	dcd := descriptor(DecoderConfigDescrTag, body.Bits())

	sl := descriptor(SLConfigDescrTag, []byte{0x02})

	es := gocodec.NewBitStreamWriter(3 + len(dcd) + len(sl))
	es.PutUint16(esID, 16)
	es.PutByte(0) // no dependency, URL or OCR stream
	es.PutBytes(dcd)
	es.PutBytes(sl)
	return &ESDBox{Descriptor: descriptor(ESDescrTag, es.Bits())}
}

func (b *ESDBox) Type() BoxType {
	return TypeESDS
}

func (b *ESDBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.Descriptor = cloneBytes(s.ReadRemaining())
	return s.Err()
}

func (b *ESDBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeESDS)
	b.encodeFull(s)
	s.WriteBytes(b.Descriptor)
	EndBox(s, pos)
}

// decoderConfig returns the DecoderConfigDescriptor payload.
func (b *ESDBox) decoderConfig() []byte {
	es := findDescriptor(b.Descriptor, ESDescrTag)
	if es == nil {
		return nil
	}
	s := util.NewByteStream(es)
	s.Skip(2)
	flags := s.ReadUint8()
	if flags&0x80 != 0 {
		s.Skip(2)
	}
	if flags&0x40 != 0 {
		s.Skip(int(s.ReadUint8()))
	}
	if flags&0x20 != 0 {
		s.Skip(2)
	}
	if s.Err() != nil {
		return nil
	}
	return findDescriptor(s.ReadRemaining(), DecoderConfigDescrTag)
}

func (b *ESDBox) ObjectTypeIndication() uint8 {
	dcd := b.decoderConfig()
	if len(dcd) == 0 {
		return 0
	}
	return dcd[0]
}

// DecoderSpecificInfo returns the AudioSpecificConfig for AAC streams.
func (b *ESDBox) DecoderSpecificInfo() []byte {
	dcd := b.decoderConfig()
	if len(dcd) < 13 {
		return nil
	}
	return findDescriptor(dcd[13:], DecSpecificInfoTag)
}

// findDescriptor scans sibling descriptors for tag and returns its payload.
func findDescriptor(b []byte, tag uint8) []byte {
	s := util.NewByteStream(b)
	for s.Remaining() > 0 {
		t := s.ReadUint8()
		var size int
		for range 4 {
			c := s.ReadUint8()
			size = size<<7 | int(c&0x7F)
			if c&0x80 == 0 {
				break
			}
		}
		payload := s.ReadN(size)
		if s.Err() != nil {
			return nil
		}
		if t == tag {
			return payload
		}
	}
	return nil
}

// descriptor prefixes payload with tag and a four byte expandable size.
func descriptor(tag uint8, payload []byte) []byte {
	n := uint32(len(payload))
	bsw := gocodec.NewBitStreamWriter(5 + len(payload))
	bsw.PutByte(tag)
	for shift := 21; shift > 0; shift -= 7 {
		bsw.PutUint8(1, 1)
		bsw.PutUint32(n>>shift, 7)
	}
	bsw.PutUint8(0, 1)
	bsw.PutUint32(n, 7)
	bsw.PutBytes(payload)
	return bsw.Bits()
}
