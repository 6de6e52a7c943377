package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class MovieFragmentBox extends Box(‘moof’){
// }

type MovieFragmentBox struct {
	Container
	Mfhd  *MovieFragmentHeaderBox
	Trafs []*TrackFragmentBox
}

func (b *MovieFragmentBox) Type() BoxType {
	return TypeMOOF
}

func (b *MovieFragmentBox) AddChild(child Box) {
	switch c := child.(type) {
	case *MovieFragmentHeaderBox:
		b.Mfhd = c
	case *TrackFragmentBox:
		b.Trafs = append(b.Trafs, c)
	}
	b.Children = append(b.Children, child)
}

func (b *MovieFragmentBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *MovieFragmentBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeMOOF, b.Children)
}

// aligned(8) class MovieFragmentHeaderBox extends FullBox(‘mfhd’, 0, 0){
// 	unsigned int(32) sequence_number;
// }

type MovieFragmentHeaderBox struct {
	FullBox
	SequenceNumber uint32
}

func (b *MovieFragmentHeaderBox) Type() BoxType {
	return TypeMFHD
}

func (b *MovieFragmentHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.SequenceNumber = s.ReadUint32()
	return s.Err()
}

func (b *MovieFragmentHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeMFHD)
	b.encodeFull(s)
	s.WriteUint32(b.SequenceNumber)
	EndBox(s, pos)
}

// aligned(8) class TrackFragmentBox extends Box(‘traf’){
// }

type TrackFragmentBox struct {
	Container
	Tfhd  *TrackFragmentHeaderBox
	Tfdt  *TrackFragmentBaseMediaDecodeTimeBox
	Truns []*TrackRunBox
}

func (b *TrackFragmentBox) Type() BoxType {
	return TypeTRAF
}

func (b *TrackFragmentBox) AddChild(child Box) {
	switch c := child.(type) {
	case *TrackFragmentHeaderBox:
		b.Tfhd = c
	case *TrackFragmentBaseMediaDecodeTimeBox:
		b.Tfdt = c
	case *TrackRunBox:
		b.Truns = append(b.Truns, c)
	}
	b.Children = append(b.Children, child)
}

func (b *TrackFragmentBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *TrackFragmentBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeTRAF, b.Children)
}

// aligned(8) class TrackFragmentBaseMediaDecodeTimeBox extends FullBox(‘tfdt’, version, 0) {
// 	if (version==1) {
// 		unsigned int(64) baseMediaDecodeTime;
// 	} else { // version==0
// 		unsigned int(32) baseMediaDecodeTime;
// 	}
// }

type TrackFragmentBaseMediaDecodeTimeBox struct {
	FullBox
	BaseMediaDecodeTime uint64
}

func NewTrackFragmentBaseMediaDecodeTimeBox(t uint64) *TrackFragmentBaseMediaDecodeTimeBox {
	b := &TrackFragmentBaseMediaDecodeTimeBox{BaseMediaDecodeTime: t}
	if t > 0xFFFFFFFF {
		b.Version = 1
	}
	return b
}

func (b *TrackFragmentBaseMediaDecodeTimeBox) Type() BoxType {
	return TypeTFDT
}

func (b *TrackFragmentBaseMediaDecodeTimeBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	if b.Version == 1 {
		b.BaseMediaDecodeTime = s.ReadUint64()
	} else {
		b.BaseMediaDecodeTime = uint64(s.ReadUint32())
	}
	return s.Err()
}

func (b *TrackFragmentBaseMediaDecodeTimeBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTFDT)
	b.encodeFull(s)
	if b.Version == 1 {
		s.WriteUint64(b.BaseMediaDecodeTime)
	} else {
		s.WriteUint32(uint32(b.BaseMediaDecodeTime))
	}
	EndBox(s, pos)
}
