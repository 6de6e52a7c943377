package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class TrackBox extends Box(‘trak’) {
// }

type TrackBox struct {
	Container
	Tkhd *TrackHeaderBox
	Tref *TrackReferenceBox
	Trgr *TrackGroupBox
	Edts *EditBox
	Mdia *MediaBox
	// SphericalV1 is the spherical video v1 uuid box, if the track has one.
	SphericalV1 *UUIDBox
}

func (b *TrackBox) Type() BoxType {
	return TypeTRAK
}

func (b *TrackBox) AddChild(child Box) {
	switch c := child.(type) {
	case *TrackHeaderBox:
		b.Tkhd = c
	case *TrackReferenceBox:
		b.Tref = c
	case *TrackGroupBox:
		b.Trgr = c
	case *EditBox:
		b.Edts = c
	case *MediaBox:
		b.Mdia = c
	case *UUIDBox:
		if c.UserType == SphericalV1UUID {
			b.SphericalV1 = c
		}
	}
	b.Children = append(b.Children, child)
}

func (b *TrackBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *TrackBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeTRAK, b.Children)
}

// Stbl walks mdia/minf/stbl.
func (b *TrackBox) Stbl() *SampleTableBox {
	if b.Mdia == nil || b.Mdia.Minf == nil {
		return nil
	}
	return b.Mdia.Minf.Stbl
}

// aligned(8) class TrackHeaderBox extends FullBox(‘tkhd’, version, flags){
// 	if (version==1) {
// 		unsigned int(64)  creation_time;
// 		unsigned int(64)  modification_time;
// 		unsigned int(32)  track_ID;
// 		const unsigned int(32)  reserved = 0;
// 		unsigned int(64)  duration;
// 	} else { // version==0
// 		unsigned int(32)  creation_time;
// 		unsigned int(32)  modification_time;
// 		unsigned int(32)  track_ID;
// 		const unsigned int(32)  reserved = 0;
// 		unsigned int(32)  duration;
// 	}
// 	const unsigned int(32)[2] reserved = 0;
// 	template int(16) layer = 0;
// 	template int(16) alternate_group = 0;
// 	template int(16) volume = {if track_is_audio 0x0100 else 0};
// 	const unsigned int(16) reserved = 0;
// 	template int(32)[9] matrix= { 0x00010000,0,0,0,0x00010000,0,0,0,0x40000000 };
// 	// unity matrix
// 	unsigned int(32) width;
// 	unsigned int(32) height;
// }

const (
	TKHD_FLAG_ENABLED    = 0x000001
	TKHD_FLAG_IN_MOVIE   = 0x000002
	TKHD_FLAG_IN_PREVIEW = 0x000004
)

type TrackHeaderBox struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	TrackID          uint32
	Duration         uint64
	Layer            int16
	AlternateGroup   int16
	Volume           int16
	Matrix           [9]int32
	Width            uint32 // 16.16
	Height           uint32 // 16.16
}

func NewTrackHeaderBox(trackID uint32) *TrackHeaderBox {
	return &TrackHeaderBox{
		FullBox: FullBox{Flags: TKHD_FLAG_ENABLED | TKHD_FLAG_IN_MOVIE},
		TrackID: trackID,
		Matrix:  UnityMatrix,
	}
}

func (b *TrackHeaderBox) Type() BoxType {
	return TypeTKHD
}

func (b *TrackHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	if b.Version == 1 {
		b.CreationTime = s.ReadUint64()
		b.ModificationTime = s.ReadUint64()
		b.TrackID = s.ReadUint32()
		s.Skip(4)
		b.Duration = s.ReadUint64()
	} else {
		b.CreationTime = uint64(s.ReadUint32())
		b.ModificationTime = uint64(s.ReadUint32())
		b.TrackID = s.ReadUint32()
		s.Skip(4)
		b.Duration = uint64(s.ReadUint32())
	}
	s.Skip(8)
	b.Layer = s.ReadInt16()
	b.AlternateGroup = s.ReadInt16()
	b.Volume = s.ReadInt16()
	s.Skip(2)
	for i := range b.Matrix {
		b.Matrix[i] = s.ReadInt32()
	}
	b.Width = s.ReadUint32()
	b.Height = s.ReadUint32()
	return s.Err()
}

func (b *TrackHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTKHD)
	b.encodeFull(s)
	if b.Version == 1 {
		s.WriteUint64(b.CreationTime)
		s.WriteUint64(b.ModificationTime)
		s.WriteUint32(b.TrackID)
		s.WriteUint32(0)
		s.WriteUint64(b.Duration)
	} else {
		s.WriteUint32(uint32(b.CreationTime))
		s.WriteUint32(uint32(b.ModificationTime))
		s.WriteUint32(b.TrackID)
		s.WriteUint32(0)
		s.WriteUint32(uint32(b.Duration))
	}
	s.WriteZeros(8)
	s.WriteInt16(b.Layer)
	s.WriteInt16(b.AlternateGroup)
	s.WriteInt16(b.Volume)
	s.WriteZeros(2)
	for _, m := range b.Matrix {
		s.WriteInt32(m)
	}
	s.WriteUint32(b.Width)
	s.WriteUint32(b.Height)
	EndBox(s, pos)
}
