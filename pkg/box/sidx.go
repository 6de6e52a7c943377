package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class SegmentIndexBox extends FullBox(‘sidx’, version, 0) {
//    unsigned int(32) reference_ID;
//    unsigned int(32) timescale;
//    if (version==0) {
//          unsigned int(32) earliest_presentation_time;
//          unsigned int(32) first_offset;
//    }
//    else {
//          unsigned int(64) earliest_presentation_time;
//          unsigned int(64) first_offset;
//    }
//    unsigned int(16) reserved = 0;
//    unsigned int(16) reference_count;
//    for(i=1; i <= reference_count; i++)
//    {
//       bit (1)           reference_type;
//       unsigned int(31)  referenced_size;
//       unsigned int(32)  subsegment_duration;
//       bit(1)            starts_with_SAP;
//       unsigned int(3)   SAP_type;
//       unsigned int(28)  SAP_delta_time;
//    }
// }

type SidxReference struct {
	ReferenceType      bool // true when the reference points at another sidx
	ReferencedSize     uint32
	SubsegmentDuration uint32
	StartsWithSAP      bool
	SAPType            uint8
	SAPDeltaTime       uint32
}

type SegmentIndexBox struct {
	FullBox
	ReferenceID              uint32
	Timescale                uint32
	EarliestPresentationTime uint64
	FirstOffset              uint64
	References               []SidxReference
}

func (b *SegmentIndexBox) Type() BoxType {
	return TypeSIDX
}

func (b *SegmentIndexBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.ReferenceID = s.ReadUint32()
	b.Timescale = s.ReadUint32()
	if b.Version == 0 {
		b.EarliestPresentationTime = uint64(s.ReadUint32())
		b.FirstOffset = uint64(s.ReadUint32())
	} else {
		b.EarliestPresentationTime = s.ReadUint64()
		b.FirstOffset = s.ReadUint64()
	}
	s.Skip(2)
	count := s.ReadUint16()
	if !checkCount(s, uint64(count), 12) {
		return s.Err()
	}
	if count > 0 {
		b.References = make([]SidxReference, count)
	}
	for i := range b.References {
		r := &b.References[i]
		r.ReferenceType = s.ReadBit()
		r.ReferencedSize = s.ReadBits(31)
		r.SubsegmentDuration = s.ReadUint32()
		r.StartsWithSAP = s.ReadBit()
		r.SAPType = uint8(s.ReadBits(3))
		r.SAPDeltaTime = s.ReadBits(28)
	}
	return s.Err()
}

func (b *SegmentIndexBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSIDX)
	b.encodeFull(s)
	s.WriteUint32(b.ReferenceID)
	s.WriteUint32(b.Timescale)
	if b.Version == 0 {
		s.WriteUint32(uint32(b.EarliestPresentationTime))
		s.WriteUint32(uint32(b.FirstOffset))
	} else {
		s.WriteUint64(b.EarliestPresentationTime)
		s.WriteUint64(b.FirstOffset)
	}
	s.WriteUint16(0)
	s.WriteUint16(uint16(len(b.References)))
	for _, r := range b.References {
		s.WriteBit(r.ReferenceType)
		s.WriteBits(r.ReferencedSize, 31)
		s.WriteUint32(r.SubsegmentDuration)
		s.WriteBit(r.StartsWithSAP)
		s.WriteBits(uint32(r.SAPType), 3)
		s.WriteBits(r.SAPDeltaTime, 28)
	}
	EndBox(s, pos)
}
