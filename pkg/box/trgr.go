package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class TrackGroupBox extends Box('trgr') {
// }
// aligned(8) class TrackGroupTypeBox(unsigned int(32) track_group_type) extends
// 	FullBox(track_group_type, version = 0, flags = 0) {
// 	unsigned int(32) track_group_id;
// 	// the remaining data may be specified for a particular track_group_type
// }

type TrackGroupBox struct {
	Groups []*TrackGroupTypeBox
}

type TrackGroupTypeBox struct {
	FullBox
	GroupType    BoxType
	TrackGroupID uint32
	Data         []byte
}

func (b *TrackGroupTypeBox) Type() BoxType {
	return b.GroupType
}

func (b *TrackGroupTypeBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.TrackGroupID = s.ReadUint32()
	b.Data = cloneBytes(s.ReadRemaining())
	return s.Err()
}

func (b *TrackGroupTypeBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, b.GroupType)
	b.encodeFull(s)
	s.WriteUint32(b.TrackGroupID)
	s.WriteBytes(b.Data)
	EndBox(s, pos)
}

func (b *TrackGroupBox) Type() BoxType {
	return TypeTRGR
}

func (b *TrackGroupBox) Decode(s *util.ByteStream) error {
	for s.Remaining() > 0 {
		hdr, sub, err := s.ReadSubAtomStream()
		if err != nil {
			return err
		}
		g := &TrackGroupTypeBox{GroupType: hdr.Type}
		if err = g.Decode(sub); err != nil {
			return &ParseError{Type: g.GroupType, Offset: hdr.Offset, Err: err}
		}
		b.Groups = append(b.Groups, g)
	}
	return s.Err()
}

func (b *TrackGroupBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTRGR)
	for _, g := range b.Groups {
		g.Encode(s)
	}
	EndBox(s, pos)
}
