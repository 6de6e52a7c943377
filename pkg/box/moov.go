package box

import "m7s.live/omaf/pkg/util"

// Container keeps the children of a box in file order. Concrete containers
// also index the children they know in typed fields.
type Container struct {
	Children []Box
}

// aligned(8) class MovieBox extends Box(‘moov’) {
// }

type MovieBox struct {
	Container
	Mvhd  *MovieHeaderBox
	Traks []*TrackBox
	Mvex  *MovieExtendsBox
}

func (b *MovieBox) Type() BoxType {
	return TypeMOOV
}

func (b *MovieBox) AddChild(child Box) {
	switch c := child.(type) {
	case *MovieHeaderBox:
		b.Mvhd = c
	case *TrackBox:
		b.Traks = append(b.Traks, c)
	case *MovieExtendsBox:
		b.Mvex = c
	}
	b.Children = append(b.Children, child)
}

func (b *MovieBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *MovieBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeMOOV, b.Children)
}

// aligned(8) class MovieHeaderBox extends FullBox(‘mvhd’, version, 0) {
// if (version==1) {
// 	unsigned int(64)  creation_time;
// 	unsigned int(64)  modification_time;
// 	unsigned int(32)  timescale;
// 	unsigned int(64)  duration;
//  } else { // version==0
// 	unsigned int(32)  creation_time;
// 	unsigned int(32)  modification_time;
// 	unsigned int(32)  timescale;
// 	unsigned int(32)  duration;
// }
// template int(32) rate = 0x00010000; // typically 1.0
// template int(16) volume = 0x0100; // typically, full volume const bit(16) reserved = 0;
// const unsigned int(32)[2] reserved = 0;
// template int(32)[9] matrix =
// { 0x00010000,0,0,0,0x00010000,0,0,0,0x40000000 };
// 	// Unity matrix
//  bit(32)[6]  pre_defined = 0;
//  unsigned int(32)  next_track_ID;
// }

var UnityMatrix = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

type MovieHeaderBox struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	Timescale        uint32
	Duration         uint64
	Rate             int32
	Volume           int16
	Matrix           [9]int32
	NextTrackID      uint32
}

func NewMovieHeaderBox(timescale uint32, nextTrackID uint32) *MovieHeaderBox {
	return &MovieHeaderBox{
		Timescale:   timescale,
		Rate:        0x00010000,
		Volume:      0x0100,
		Matrix:      UnityMatrix,
		NextTrackID: nextTrackID,
	}
}

func (b *MovieHeaderBox) Type() BoxType {
	return TypeMVHD
}

func (b *MovieHeaderBox) Decode(s *util.ByteStream) error {
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
	b.Rate = s.ReadInt32()
	b.Volume = s.ReadInt16()
	s.Skip(10)
	for i := range b.Matrix {
		b.Matrix[i] = s.ReadInt32()
	}
	s.Skip(24)
	b.NextTrackID = s.ReadUint32()
	return s.Err()
}

func (b *MovieHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeMVHD)
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
	s.WriteInt32(b.Rate)
	s.WriteInt16(b.Volume)
	s.WriteZeros(10)
	for _, m := range b.Matrix {
		s.WriteInt32(m)
	}
	s.WriteZeros(24)
	s.WriteUint32(b.NextTrackID)
	EndBox(s, pos)
}
