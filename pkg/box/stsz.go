package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class SampleSizeBox extends FullBox(‘stsz’, version = 0, 0) {
// 	unsigned int(32) sample_size;
// 	unsigned int(32) sample_count;
// 	if (sample_size==0) {
// 		for (i=1; i <= sample_count; i++) {
// 			unsigned int(32) entry_size;
// 		}
// 	}
// }

type SampleSizeBox struct {
	FullBox
	SampleSize  uint32
	SampleCount uint32
	EntrySizes  []uint32
}

func (b *SampleSizeBox) Type() BoxType {
	return TypeSTSZ
}

// Size returns the size of the 0-based sample i.
func (b *SampleSizeBox) Size(i int) uint32 {
	if b.SampleSize != 0 {
		return b.SampleSize
	}
	return b.EntrySizes[i]
}

func (b *SampleSizeBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.SampleSize = s.ReadUint32()
	b.SampleCount = s.ReadUint32()
	if b.SampleSize != 0 || b.SampleCount == 0 {
		return s.Err()
	}
	if !checkCount(s, uint64(b.SampleCount), 4) {
		return s.Err()
	}
	b.EntrySizes = make([]uint32, b.SampleCount)
	for i := range b.EntrySizes {
		b.EntrySizes[i] = s.ReadUint32()
	}
	return s.Err()
}

func (b *SampleSizeBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTSZ)
	b.encodeFull(s)
	s.WriteUint32(b.SampleSize)
	if b.SampleSize != 0 {
		s.WriteUint32(b.SampleCount)
	} else {
		s.WriteUint32(uint32(len(b.EntrySizes)))
		for _, size := range b.EntrySizes {
			s.WriteUint32(size)
		}
	}
	EndBox(s, pos)
}
