package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class MediaBox extends Box(‘mdia’) {
// }

type MediaBox struct {
	Container
	Mdhd *MediaHeaderBox
	Hdlr *HandlerBox
	Minf *MediaInformationBox
}

func (b *MediaBox) Type() BoxType {
	return TypeMDIA
}

func (b *MediaBox) AddChild(child Box) {
	switch c := child.(type) {
	case *MediaHeaderBox:
		b.Mdhd = c
	case *HandlerBox:
		b.Hdlr = c
	case *MediaInformationBox:
		b.Minf = c
	}
	b.Children = append(b.Children, child)
}

func (b *MediaBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *MediaBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeMDIA, b.Children)
}

// aligned(8) class MediaHeaderBox extends FullBox(‘mdhd’, version, 0) {
// 	if (version==1) {
// 		unsigned int(64)  creation_time;
// 		unsigned int(64)  modification_time;
// 		unsigned int(32)  timescale;
// 		unsigned int(64)  duration;
// 	} else { // version==0
// 		unsigned int(32)  creation_time;
// 		unsigned int(32)  modification_time;
// 		unsigned int(32)  timescale;
// 		unsigned int(32)  duration;
// 	}
// 	bit(1) pad = 0;
// 	unsigned int(5)[3] language; // ISO-639-2/T language code
// 	unsigned int(16) pre_defined = 0;
// }

type MediaHeaderBox struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	Timescale        uint32
	Duration         uint64
	Language         [3]byte
}

func NewMediaHeaderBox(timescale uint32) *MediaHeaderBox {
	return &MediaHeaderBox{Timescale: timescale, Language: [3]byte{'u', 'n', 'd'}}
}

func (b *MediaHeaderBox) Type() BoxType {
	return TypeMDHD
}

func (b *MediaHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	if b.Version == 1 {
		b.CreationTime = s.ReadUint64()
		b.ModificationTime = s.ReadUint64()
		b.Timescale = s.ReadUint32()
		b.Duration = s.ReadUint64()
	} else {
		b.CreationTime = uint64(s.ReadUint32())
		b.ModificationTime = uint64(s.ReadUint32())
		b.Timescale = s.ReadUint32()
		b.Duration = uint64(s.ReadUint32())
	}
	s.ReadBits(1)
	for i := range b.Language {
		b.Language[i] = byte(s.ReadBits(5)) + 0x60
	}
	s.Skip(2)
	return s.Err()
}

func (b *MediaHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeMDHD)
	b.encodeFull(s)
	if b.Version == 1 {
		s.WriteUint64(b.CreationTime)
		s.WriteUint64(b.ModificationTime)
		s.WriteUint32(b.Timescale)
		s.WriteUint64(b.Duration)
	} else {
		s.WriteUint32(uint32(b.CreationTime))
		s.WriteUint32(uint32(b.ModificationTime))
		s.WriteUint32(b.Timescale)
		s.WriteUint32(uint32(b.Duration))
	}
	s.WriteBits(0, 1)
	for _, c := range b.Language {
		s.WriteBits(uint32(c-0x60), 5)
	}
	s.WriteUint16(0)
	EndBox(s, pos)
}

// aligned(8) class HandlerBox extends FullBox(‘hdlr’, version = 0, 0) {
// 	unsigned int(32) pre_defined = 0;
// 	unsigned int(32) handler_type;
// 	const unsigned int(32)[3] reserved = 0;
// 	string   name;
// }

type HandlerBox struct {
	FullBox
	HandlerType BoxType
	Name        string
}

func NewHandlerBox(handlerType BoxType, name string) *HandlerBox {
	return &HandlerBox{HandlerType: handlerType, Name: name}
}

func (b *HandlerBox) Type() BoxType {
	return TypeHDLR
}

func (b *HandlerBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	s.Skip(4)
	b.HandlerType = s.ReadFourCC()
	s.Skip(12)
	b.Name = s.ReadZeroTerminatedString()
	return s.Err()
}

func (b *HandlerBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeHDLR)
	b.encodeFull(s)
	s.WriteUint32(0)
	s.WriteFourCC(b.HandlerType)
	s.WriteZeros(12)
	s.WriteZeroTerminatedString(b.Name)
	EndBox(s, pos)
}
