package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class TrackRunBox extends FullBox(‘trun’, version, tr_flags) {
//      unsigned int(32) sample_count;
//      // the following are optional fields
//      signed int(32) data_offset;
//       unsigned int(32) first_sample_flags;
//      // all fields in the following array are optional
//      {
//          unsigned int(32) sample_duration;
//          unsigned int(32) sample_size;
//          unsigned int(32) sample_flags
//          if (version == 0)
//          {
//              unsigned int(32) sample_composition_time_offset;
//          }
//          else
//          {
//              signed int(32) sample_composition_time_offset;
//          }
//      }[ sample_count ]
// }

const (
	TR_FLAG_DATA_OFFSET                  uint32 = 0x000001
	TR_FLAG_DATA_FIRST_SAMPLE_FLAGS      uint32 = 0x000004
	TR_FLAG_DATA_SAMPLE_DURATION         uint32 = 0x000100
	TR_FLAG_DATA_SAMPLE_SIZE             uint32 = 0x000200
	TR_FLAG_DATA_SAMPLE_FLAGS            uint32 = 0x000400
	TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME uint32 = 0x000800
)

type TrunEntry struct {
	Duration              uint32
	Size                  uint32
	Flags                 SampleFlags
	CompositionTimeOffset uint32 // signed in version 1
}

type TrackRunBox struct {
	FullBox
	DataOffset       int32
	FirstSampleFlags SampleFlags
	Entries          []TrunEntry
}

func (b *TrackRunBox) Type() BoxType {
	return TypeTRUN
}

func (b *TrackRunBox) Has(flag uint32) bool {
	return b.Flags&flag != 0
}

// CompositionOffset interprets the offset of entry i by the box version.
func (b *TrackRunBox) CompositionOffset(i int) int64 {
	if b.Version == 0 {
		return int64(b.Entries[i].CompositionTimeOffset)
	}
	return int64(int32(b.Entries[i].CompositionTimeOffset))
}

func (b *TrackRunBox) entrySize() (n int) {
	for _, flag := range []uint32{TR_FLAG_DATA_SAMPLE_DURATION, TR_FLAG_DATA_SAMPLE_SIZE, TR_FLAG_DATA_SAMPLE_FLAGS, TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME} {
		if b.Has(flag) {
			n += 4
		}
	}
	return
}

func (b *TrackRunBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if b.Has(TR_FLAG_DATA_OFFSET) {
		b.DataOffset = s.ReadInt32()
	}
	if b.Has(TR_FLAG_DATA_FIRST_SAMPLE_FLAGS) {
		b.FirstSampleFlags = SampleFlags(s.ReadUint32())
	}
	if !checkCount(s, uint64(count), b.entrySize()) {
		return s.Err()
	}
	if count > 0 {
		b.Entries = make([]TrunEntry, count)
	}
	for i := range b.Entries {
		e := &b.Entries[i]
		if b.Has(TR_FLAG_DATA_SAMPLE_DURATION) {
			e.Duration = s.ReadUint32()
		}
		if b.Has(TR_FLAG_DATA_SAMPLE_SIZE) {
			e.Size = s.ReadUint32()
		}
		if b.Has(TR_FLAG_DATA_SAMPLE_FLAGS) {
			e.Flags = SampleFlags(s.ReadUint32())
		}
		if b.Has(TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME) {
			e.CompositionTimeOffset = s.ReadUint32()
		}
	}
	return s.Err()
}

func (b *TrackRunBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTRUN)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	if b.Has(TR_FLAG_DATA_OFFSET) {
		s.WriteInt32(b.DataOffset)
	}
	if b.Has(TR_FLAG_DATA_FIRST_SAMPLE_FLAGS) {
		s.WriteUint32(uint32(b.FirstSampleFlags))
	}
	for _, e := range b.Entries {
		if b.Has(TR_FLAG_DATA_SAMPLE_DURATION) {
			s.WriteUint32(e.Duration)
		}
		if b.Has(TR_FLAG_DATA_SAMPLE_SIZE) {
			s.WriteUint32(e.Size)
		}
		if b.Has(TR_FLAG_DATA_SAMPLE_FLAGS) {
			s.WriteUint32(uint32(e.Flags))
		}
		if b.Has(TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME) {
			s.WriteUint32(e.CompositionTimeOffset)
		}
	}
	EndBox(s, pos)
}
