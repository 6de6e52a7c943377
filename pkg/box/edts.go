package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class EditBox extends Box(‘edts’) {
// }

type EditBox struct {
	Container
	Elst *EditListBox
}

func (b *EditBox) Type() BoxType {
	return TypeEDTS
}

func (b *EditBox) AddChild(child Box) {
	if c, ok := child.(*EditListBox); ok {
		b.Elst = c
	}
	b.Children = append(b.Children, child)
}

func (b *EditBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *EditBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeEDTS, b.Children)
}

// aligned(8) class EditListBox extends FullBox(‘elst’, version, 0) {
// 	unsigned int(32) entry_count;
// 	for (i=1; i <= entry_count; i++) {
// 		if (version==1) {
// 			unsigned int(64) segment_duration;
// 			int(64) media_time;
// 		} else { // version==0
// 			unsigned int(32) segment_duration;
// 			int(32)  media_time;
// 		}
// 		int(16) media_rate_integer;
// 		int(16) media_rate_fraction = 0;
// 	}
// }

type EditListEntry struct {
	SegmentDuration   uint64 // movie timescale
	MediaTime         int64  // media timescale, -1 for an empty edit
	MediaRateInteger  int16
	MediaRateFraction int16
}

type EditListBox struct {
	FullBox
	Entries []EditListEntry
}

func (b *EditListBox) Type() BoxType {
	return TypeELST
}

func (b *EditListBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	entrySize := 12
	if b.Version == 1 {
		entrySize = 20
	}
	if !checkCount(s, uint64(count), entrySize) {
		return s.Err()
	}
	if count > 0 {
		b.Entries = make([]EditListEntry, count)
	}
	for i := range b.Entries {
		e := &b.Entries[i]
		if b.Version == 1 {
			e.SegmentDuration = s.ReadUint64()
			e.MediaTime = s.ReadInt64()
		} else {
			e.SegmentDuration = uint64(s.ReadUint32())
			e.MediaTime = int64(s.ReadInt32())
		}
		e.MediaRateInteger = s.ReadInt16()
		e.MediaRateFraction = s.ReadInt16()
	}
	return s.Err()
}

func (b *EditListBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeELST)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		if b.Version == 1 {
			s.WriteUint64(e.SegmentDuration)
			s.WriteInt64(e.MediaTime)
		} else {
			s.WriteUint32(uint32(e.SegmentDuration))
			s.WriteInt32(int32(e.MediaTime))
		}
		s.WriteInt16(e.MediaRateInteger)
		s.WriteInt16(e.MediaRateFraction)
	}
	EndBox(s, pos)
}
