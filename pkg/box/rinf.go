package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class RestrictedSchemeInfoBox(fmt) extends Box('rinf') {
// 	OriginalFormatBox(fmt) original_format;
// 	SchemeTypeBox scheme_type_box;
// 	SchemeInformationBox info; // optional
// }
//
// sinf has the same layout, so one type serves both.

type SchemeInfoBox struct {
	Container
	BoxType BoxType
	Frma    *OriginalFormatBox
	Schm    *SchemeTypeBox
	Schi    *SchemeInformationBox
}

func (b *SchemeInfoBox) Type() BoxType {
	return b.BoxType
}

func (b *SchemeInfoBox) AddChild(child Box) {
	switch c := child.(type) {
	case *OriginalFormatBox:
		b.Frma = c
	case *SchemeTypeBox:
		b.Schm = c
	case *SchemeInformationBox:
		b.Schi = c
	}
	b.Children = append(b.Children, child)
}

func (b *SchemeInfoBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *SchemeInfoBox) Encode(s *util.ByteStream) {
	encodeContainer(s, b.BoxType, b.Children)
}

// aligned(8) class OriginalFormatBox(codingname) extends Box ('frma') {
// 	unsigned int(32) data_format = codingname;
// }

type OriginalFormatBox struct {
	DataFormat BoxType
}

func (b *OriginalFormatBox) Type() BoxType {
	return TypeFRMA
}

func (b *OriginalFormatBox) Decode(s *util.ByteStream) error {
	b.DataFormat = s.ReadFourCC()
	return s.Err()
}

func (b *OriginalFormatBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeFRMA)
	s.WriteFourCC(b.DataFormat)
	EndBox(s, pos)
}

// aligned(8) class SchemeTypeBox extends FullBox('schm', 0, flags) {
// 	unsigned int(32) scheme_type; // 4CC identifying the scheme
// 	unsigned int(32) scheme_version; // scheme version
// 	if (flags & 0x000001) {
// 		unsigned int(8) scheme_uri[]; // browser uri
// 	}
// }

type SchemeTypeBox struct {
	FullBox
	SchemeType    BoxType
	SchemeVersion uint32
	SchemeURI     string
}

func (b *SchemeTypeBox) Type() BoxType {
	return TypeSCHM
}

func (b *SchemeTypeBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.SchemeType = s.ReadFourCC()
	b.SchemeVersion = s.ReadUint32()
	if b.Flags&1 != 0 {
		b.SchemeURI = s.ReadZeroTerminatedString()
	}
	return s.Err()
}

func (b *SchemeTypeBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSCHM)
	b.encodeFull(s)
	s.WriteFourCC(b.SchemeType)
	s.WriteUint32(b.SchemeVersion)
	if b.Flags&1 != 0 {
		s.WriteZeroTerminatedString(b.SchemeURI)
	}
	EndBox(s, pos)
}

// aligned(8) class SchemeInformationBox extends Box('schi') {
// 	Box scheme_specific_data[];
// }

type SchemeInformationBox struct {
	Container
	Povd *ProjectedOmniVideoBox
	Stvi *StereoVideoBox
}

func (b *SchemeInformationBox) Type() BoxType {
	return TypeSCHI
}

func (b *SchemeInformationBox) AddChild(child Box) {
	switch c := child.(type) {
	case *ProjectedOmniVideoBox:
		b.Povd = c
	case *StereoVideoBox:
		b.Stvi = c
	}
	b.Children = append(b.Children, child)
}

func (b *SchemeInformationBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *SchemeInformationBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeSCHI, b.Children)
}
