package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class SyncSampleBox extends FullBox(‘stss’, version = 0, 0) {
// 	unsigned int(32) entry_count;
// 	int i;
// 	for (i=0; i < entry_count; i++) {
// 		unsigned int(32) sample_number;
// 	}
// }

type SyncSampleBox struct {
	FullBox
	SampleNumbers []uint32 // 1-based
}

func (b *SyncSampleBox) Type() BoxType {
	return TypeSTSS
}

func (b *SyncSampleBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 4) {
		return s.Err()
	}
	if count > 0 {
		b.SampleNumbers = make([]uint32, count)
	}
	for i := range b.SampleNumbers {
		b.SampleNumbers[i] = s.ReadUint32()
	}
	return s.Err()
}

func (b *SyncSampleBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTSS)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.SampleNumbers)))
	for _, n := range b.SampleNumbers {
		s.WriteUint32(n)
	}
	EndBox(s, pos)
}
