package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class MediaDataBox extends Box(‘mdat’) {
//  bit(8) data[];
// }

type MediaDataBox struct {
	Data []byte
	// LargeSize forces the 64-bit header. Decoding sets it from the input.
	LargeSize bool
}

func (b *MediaDataBox) Type() BoxType {
	return TypeMDAT
}

// HeaderSize is the header length Encode will use.
func (b *MediaDataBox) HeaderSize() int {
	if b.LargeSize || uint64(len(b.Data))+BasicBoxLen > 0xFFFFFFFF {
		return LargeBoxLen
	}
	return BasicBoxLen
}

func (b *MediaDataBox) Decode(s *util.ByteStream) error {
	b.Data = cloneBytes(s.ReadRemaining())
	return s.Err()
}

func (b *MediaDataBox) Encode(s *util.ByteStream) {
	if b.HeaderSize() == LargeBoxLen {
		pos := BeginLargeBox(s, TypeMDAT)
		s.WriteBytes(b.Data)
		EndLargeBox(s, pos)
		return
	}
	pos := BeginBox(s, TypeMDAT)
	s.WriteBytes(b.Data)
	EndBox(s, pos)
}
