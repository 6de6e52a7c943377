package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class TrackReferenceBox extends Box('tref') {
// 	TrackReferenceTypeBox [];
// }
// aligned(8) class TrackReferenceTypeBox (unsigned int(32) reference_type) extends Box(reference_type) {
// 	unsigned int(32) track_IDs[];
// }

type TrackReferenceBox struct {
	References []*TrackReferenceTypeBox
}

type TrackReferenceTypeBox struct {
	ReferenceType BoxType
	TrackIDs      []uint32
}

func (b *TrackReferenceTypeBox) Type() BoxType {
	return b.ReferenceType
}

func (b *TrackReferenceTypeBox) Decode(s *util.ByteStream) error {
	for s.Remaining() >= 4 {
		b.TrackIDs = append(b.TrackIDs, s.ReadUint32())
	}
	return s.Err()
}

func (b *TrackReferenceTypeBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, b.ReferenceType)
	for _, id := range b.TrackIDs {
		s.WriteUint32(id)
	}
	EndBox(s, pos)
}

func (b *TrackReferenceBox) Type() BoxType {
	return TypeTREF
}

// Get returns the track IDs referenced with refType.
func (b *TrackReferenceBox) Get(refType BoxType) []uint32 {
	for _, r := range b.References {
		if r.ReferenceType == refType {
			return r.TrackIDs
		}
	}
	return nil
}

func (b *TrackReferenceBox) Decode(s *util.ByteStream) error {
	for s.Remaining() > 0 {
		hdr, sub, err := s.ReadSubAtomStream()
		if err != nil {
			return err
		}
		ref := &TrackReferenceTypeBox{ReferenceType: hdr.Type}
		if err = ref.Decode(sub); err != nil {
			return &ParseError{Type: ref.ReferenceType, Offset: hdr.Offset, Err: err}
		}
		b.References = append(b.References, ref)
	}
	return s.Err()
}

func (b *TrackReferenceBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTREF)
	for _, r := range b.References {
		r.Encode(s)
	}
	EndBox(s, pos)
}
