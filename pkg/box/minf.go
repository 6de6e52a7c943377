package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class MediaInformationBox extends Box(‘minf’) {
// }

type MediaInformationBox struct {
	Container
	Vmhd *VideoMediaHeaderBox
	Smhd *SoundMediaHeaderBox
	Nmhd *NullMediaHeaderBox
	Dinf *DataInformationBox
	Stbl *SampleTableBox
}

func (b *MediaInformationBox) Type() BoxType {
	return TypeMINF
}

func (b *MediaInformationBox) AddChild(child Box) {
	switch c := child.(type) {
	case *VideoMediaHeaderBox:
		b.Vmhd = c
	case *SoundMediaHeaderBox:
		b.Smhd = c
	case *NullMediaHeaderBox:
		b.Nmhd = c
	case *DataInformationBox:
		b.Dinf = c
	case *SampleTableBox:
		b.Stbl = c
	}
	b.Children = append(b.Children, child)
}

func (b *MediaInformationBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *MediaInformationBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeMINF, b.Children)
}

// aligned(8) class VideoMediaHeaderBox extends FullBox(‘vmhd’, version = 0, 1) {
// 	template unsigned int(16) graphicsmode = 0; // copy, see below
// 	template unsigned int(16)[3] opcolor = {0, 0, 0};
// }

type VideoMediaHeaderBox struct {
	FullBox
	GraphicsMode uint16
	Opcolor      [3]uint16
}

func NewVideoMediaHeaderBox() *VideoMediaHeaderBox {
	return &VideoMediaHeaderBox{FullBox: FullBox{Flags: 1}}
}

func (b *VideoMediaHeaderBox) Type() BoxType {
	return TypeVMHD
}

func (b *VideoMediaHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.GraphicsMode = s.ReadUint16()
	for i := range b.Opcolor {
		b.Opcolor[i] = s.ReadUint16()
	}
	return s.Err()
}

func (b *VideoMediaHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeVMHD)
	b.encodeFull(s)
	s.WriteUint16(b.GraphicsMode)
	for _, c := range b.Opcolor {
		s.WriteUint16(c)
	}
	EndBox(s, pos)
}

// aligned(8) class SoundMediaHeaderBox extends FullBox(‘smhd’, version = 0, 0) {
// 	template int(16) balance = 0;
// 	const unsigned int(16)  reserved = 0;
// }

type SoundMediaHeaderBox struct {
	FullBox
	Balance int16
}

func (b *SoundMediaHeaderBox) Type() BoxType {
	return TypeSMHD
}

func (b *SoundMediaHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.Balance = s.ReadInt16()
	s.Skip(2)
	return s.Err()
}

func (b *SoundMediaHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSMHD)
	b.encodeFull(s)
	s.WriteInt16(b.Balance)
	s.WriteUint16(0)
	EndBox(s, pos)
}

// aligned(8) class NullMediaHeaderBox extends FullBox(’nmhd’, version = 0, flags) {
// }

type NullMediaHeaderBox struct {
	FullBox
}

func (b *NullMediaHeaderBox) Type() BoxType {
	return TypeNMHD
}

func (b *NullMediaHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	return s.Err()
}

func (b *NullMediaHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeNMHD)
	b.encodeFull(s)
	EndBox(s, pos)
}

// aligned(8) class DataInformationBox extends Box(‘dinf’) {
// }

type DataInformationBox struct {
	Container
	Dref *DataReferenceBox
}

// NewDataInformationBox holds the one self-contained url entry fragmented files use.
func NewDataInformationBox() *DataInformationBox {
	dref := &DataReferenceBox{Entries: []Box{&DataEntryURLBox{FullBox: FullBox{Flags: 1}}}}
	b := &DataInformationBox{}
	b.AddChild(dref)
	return b
}

func (b *DataInformationBox) Type() BoxType {
	return TypeDINF
}

func (b *DataInformationBox) AddChild(child Box) {
	if c, ok := child.(*DataReferenceBox); ok {
		b.Dref = c
	}
	b.Children = append(b.Children, child)
}

func (b *DataInformationBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *DataInformationBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeDINF, b.Children)
}

// aligned(8) class DataReferenceBox extends FullBox(‘dref’, version = 0, 0) {
// 	unsigned int(32) entry_count;
// 	for (i=1; i <= entry_count; i++) {
// 		DataEntryBox(entry_version, entry_flags) data_entry;
// 	}
// }

type DataReferenceBox struct {
	FullBox
	Entries []Box
}

func (b *DataReferenceBox) Type() BoxType {
	return TypeDREF
}

func (b *DataReferenceBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), BasicBoxLen) {
		return s.Err()
	}
	for range count {
		entry, err := ReadBox(s)
		if err != nil {
			return err
		}
		b.Entries = append(b.Entries, entry)
	}
	return s.Err()
}

func (b *DataReferenceBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeDREF)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		e.Encode(s)
	}
	EndBox(s, pos)
}

// aligned(8) class DataEntryUrlBox (bit(24) flags) extends FullBox(‘url ’, version = 0, flags) {
// 	string location;
// }

type DataEntryURLBox struct {
	FullBox
	Location string
}

func (b *DataEntryURLBox) Type() BoxType {
	return TypeURL
}

func (b *DataEntryURLBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	if b.Flags&1 == 0 {
		b.Location = s.ReadZeroTerminatedString()
	}
	return s.Err()
}

func (b *DataEntryURLBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeURL)
	b.encodeFull(s)
	if b.Flags&1 == 0 {
		s.WriteZeroTerminatedString(b.Location)
	}
	EndBox(s, pos)
}
