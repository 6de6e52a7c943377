package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class TimeToSampleBox extends FullBox(’stts’, version = 0, 0) {
// 	unsigned int(32)  entry_count;
// 	int i;
// 	for (i=0; i < entry_count; i++) {
// 		unsigned int(32)  sample_count;
// 		unsigned int(32)  sample_delta;
// 	}
// }

type STTSEntry struct {
	SampleCount uint32
	SampleDelta uint32
}

type TimeToSampleBox struct {
	FullBox
	Entries []STTSEntry
}

func (b *TimeToSampleBox) Type() BoxType {
	return TypeSTTS
}

func (b *TimeToSampleBox) SampleCount() (n uint64) {
	for _, e := range b.Entries {
		n += uint64(e.SampleCount)
	}
	return
}

func (b *TimeToSampleBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 8) {
		return s.Err()
	}
	if count > 0 {
		b.Entries = make([]STTSEntry, count)
	}
	for i := range b.Entries {
		b.Entries[i].SampleCount = s.ReadUint32()
		b.Entries[i].SampleDelta = s.ReadUint32()
	}
	return s.Err()
}

func (b *TimeToSampleBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTTS)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		s.WriteUint32(e.SampleCount)
		s.WriteUint32(e.SampleDelta)
	}
	EndBox(s, pos)
}

// aligned(8) class CompositionOffsetBox extends FullBox(‘ctts’, version = 0, 0) {
// 	unsigned int(32) entry_count;
// 	int i;
// 	if (version==0) {
// 		for (i=0; i < entry_count; i++) {
// 			unsigned int(32) sample_count;
// 			unsigned int(32) sample_offset;
// 		}
// 	}
// 	else if (version == 1) {
// 		for (i=0; i < entry_count; i++) {
// 			unsigned int(32) sample_count;
// 			signed int(32) sample_offset;
// 		}
// 	}
// }

type CTTSEntry struct {
	SampleCount  uint32
	SampleOffset uint32 // signed in version 1
}

type CompositionOffsetBox struct {
	FullBox
	Entries []CTTSEntry
}

func (b *CompositionOffsetBox) Type() BoxType {
	return TypeCTTS
}

// Offset interprets entry i by the box version.
func (b *CompositionOffsetBox) Offset(i int) int64 {
	if b.Version == 0 {
		return int64(b.Entries[i].SampleOffset)
	}
	return int64(int32(b.Entries[i].SampleOffset))
}

func (b *CompositionOffsetBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 8) {
		return s.Err()
	}
	if count > 0 {
		b.Entries = make([]CTTSEntry, count)
	}
	for i := range b.Entries {
		b.Entries[i].SampleCount = s.ReadUint32()
		b.Entries[i].SampleOffset = s.ReadUint32()
	}
	return s.Err()
}

func (b *CompositionOffsetBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeCTTS)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		s.WriteUint32(e.SampleCount)
		s.WriteUint32(e.SampleOffset)
	}
	EndBox(s, pos)
}
