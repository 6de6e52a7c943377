package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class MovieExtendsBox extends Box(‘mvex’){
// }

type MovieExtendsBox struct {
	Container
	Mehd  *MovieExtendsHeaderBox
	Trexs []*TrackExtendsBox
}

func (b *MovieExtendsBox) Type() BoxType {
	return TypeMVEX
}

func (b *MovieExtendsBox) AddChild(child Box) {
	switch c := child.(type) {
	case *MovieExtendsHeaderBox:
		b.Mehd = c
	case *TrackExtendsBox:
		b.Trexs = append(b.Trexs, c)
	}
	b.Children = append(b.Children, child)
}

func (b *MovieExtendsBox) Trex(trackID uint32) *TrackExtendsBox {
	for _, t := range b.Trexs {
		if t.TrackID == trackID {
			return t
		}
	}
	return nil
}

func (b *MovieExtendsBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *MovieExtendsBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeMVEX, b.Children)
}

// aligned(8) class MovieExtendsHeaderBox extends FullBox(‘mehd’, version, 0) {
// 	if (version==1) {
// 		unsigned int(64)  fragment_duration;
// 	} else { // version==0
// 		unsigned int(32)  fragment_duration;
// 	}
// }

type MovieExtendsHeaderBox struct {
	FullBox
	FragmentDuration uint64
}

func (b *MovieExtendsHeaderBox) Type() BoxType {
	return TypeMEHD
}

func (b *MovieExtendsHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	if b.Version == 1 {
		b.FragmentDuration = s.ReadUint64()
	} else {
		b.FragmentDuration = uint64(s.ReadUint32())
	}
	return s.Err()
}

func (b *MovieExtendsHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeMEHD)
	b.encodeFull(s)
	if b.Version == 1 {
		s.WriteUint64(b.FragmentDuration)
	} else {
		s.WriteUint32(uint32(b.FragmentDuration))
	}
	EndBox(s, pos)
}

// aligned(8) class TrackExtendsBox extends FullBox(‘trex’, 0, 0){
// 	unsigned int(32) track_ID;
// 	unsigned int(32) default_sample_description_index;
// 	unsigned int(32) default_sample_duration;
// 	unsigned int(32) default_sample_size;
// 	unsigned int(32) default_sample_flags;
// }

type TrackExtendsBox struct {
	FullBox
	TrackID                       uint32
	DefaultSampleDescriptionIndex uint32
	DefaultSampleDuration         uint32
	DefaultSampleSize             uint32
	DefaultSampleFlags            SampleFlags
}

func NewTrackExtendsBox(trackID uint32) *TrackExtendsBox {
	return &TrackExtendsBox{
		TrackID:                       trackID,
		DefaultSampleDescriptionIndex: 1,
	}
}

func (b *TrackExtendsBox) Type() BoxType {
	return TypeTREX
}

func (b *TrackExtendsBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.TrackID = s.ReadUint32()
	b.DefaultSampleDescriptionIndex = s.ReadUint32()
	b.DefaultSampleDuration = s.ReadUint32()
	b.DefaultSampleSize = s.ReadUint32()
	b.DefaultSampleFlags = SampleFlags(s.ReadUint32())
	return s.Err()
}

func (b *TrackExtendsBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTREX)
	b.encodeFull(s)
	s.WriteUint32(b.TrackID)
	s.WriteUint32(b.DefaultSampleDescriptionIndex)
	s.WriteUint32(b.DefaultSampleDuration)
	s.WriteUint32(b.DefaultSampleSize)
	s.WriteUint32(uint32(b.DefaultSampleFlags))
	EndBox(s, pos)
}
