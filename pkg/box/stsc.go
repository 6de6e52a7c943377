package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class SampleToChunkBox extends FullBox(‘stsc’, version = 0, 0) {
// 	unsigned int(32) entry_count;
// 	for (i=1; i <= entry_count; i++) {
// 		unsigned int(32) first_chunk;
// 		unsigned int(32) samples_per_chunk;
// 		unsigned int(32) sample_description_index;
// 	}
// }

type STSCEntry struct {
	FirstChunk             uint32
	SamplesPerChunk        uint32
	SampleDescriptionIndex uint32
}

type SampleToChunkBox struct {
	FullBox
	Entries []STSCEntry
}

func (b *SampleToChunkBox) Type() BoxType {
	return TypeSTSC
}

func (b *SampleToChunkBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 12) {
		return s.Err()
	}
	if count > 0 {
		b.Entries = make([]STSCEntry, count)
	}
	for i := range b.Entries {
		b.Entries[i].FirstChunk = s.ReadUint32()
		b.Entries[i].SamplesPerChunk = s.ReadUint32()
		b.Entries[i].SampleDescriptionIndex = s.ReadUint32()
	}
	return s.Err()
}

func (b *SampleToChunkBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTSC)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		s.WriteUint32(e.FirstChunk)
		s.WriteUint32(e.SamplesPerChunk)
		s.WriteUint32(e.SampleDescriptionIndex)
	}
	EndBox(s, pos)
}
