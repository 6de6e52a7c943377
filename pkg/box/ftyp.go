package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class FileTypeBox extends Box(‘ftyp’) {
//  unsigned int(32) major_brand;
//  unsigned int(32) minor_version;
//  unsigned int(32) compatible_brands[]; // to end of the box
// }
//
// The same layout serves styp.

type FileTypeBox struct {
	BoxType          BoxType
	MajorBrand       BoxType
	MinorVersion     uint32
	CompatibleBrands []BoxType
}

func NewFileTypeBox(t BoxType, major BoxType, minor uint32, compatible ...BoxType) *FileTypeBox {
	return &FileTypeBox{
		BoxType:          t,
		MajorBrand:       major,
		MinorVersion:     minor,
		CompatibleBrands: compatible,
	}
}

func (b *FileTypeBox) Type() BoxType {
	return b.BoxType
}

// HasBrand reports whether brand is the major brand or one of the compatible ones.
func (b *FileTypeBox) HasBrand(brand BoxType) bool {
	if b.MajorBrand == brand {
		return true
	}
	for _, c := range b.CompatibleBrands {
		if c == brand {
			return true
		}
	}
	return false
}

func (b *FileTypeBox) Decode(s *util.ByteStream) error {
	b.MajorBrand = s.ReadFourCC()
	b.MinorVersion = s.ReadUint32()
	for s.Remaining() >= 4 {
		b.CompatibleBrands = append(b.CompatibleBrands, s.ReadFourCC())
	}
	return s.Err()
}

func (b *FileTypeBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, b.BoxType)
	s.WriteFourCC(b.MajorBrand)
	s.WriteUint32(b.MinorVersion)
	for _, c := range b.CompatibleBrands {
		s.WriteFourCC(c)
	}
	EndBox(s, pos)
}
