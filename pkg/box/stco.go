package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class ChunkOffsetBox extends FullBox(‘stco’, version = 0, 0) {
// 	unsigned int(32) entry_count;
// 	for (i=1; i <= entry_count; i++) {
// 		unsigned int(32) chunk_offset;
// 	}
// }
// aligned(8) class ChunkLargeOffsetBox extends FullBox(‘co64’, version = 0, 0) {
// 	unsigned int(32) entry_count;
// 	for (i=1; i <= entry_count; i++) {
// 		unsigned int(64) chunk_offset;
// 	}
// }

type ChunkOffsetBox struct {
	FullBox
	ChunkOffsets []uint32
}

func (b *ChunkOffsetBox) Type() BoxType {
	return TypeSTCO
}

func (b *ChunkOffsetBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 4) {
		return s.Err()
	}
	if count > 0 {
		b.ChunkOffsets = make([]uint32, count)
	}
	for i := range b.ChunkOffsets {
		b.ChunkOffsets[i] = s.ReadUint32()
	}
	return s.Err()
}

func (b *ChunkOffsetBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTCO)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.ChunkOffsets)))
	for _, o := range b.ChunkOffsets {
		s.WriteUint32(o)
	}
	EndBox(s, pos)
}

type ChunkLargeOffsetBox struct {
	FullBox
	ChunkOffsets []uint64
}

func (b *ChunkLargeOffsetBox) Type() BoxType {
	return TypeCO64
}

func (b *ChunkLargeOffsetBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 8) {
		return s.Err()
	}
	if count > 0 {
		b.ChunkOffsets = make([]uint64, count)
	}
	for i := range b.ChunkOffsets {
		b.ChunkOffsets[i] = s.ReadUint64()
	}
	return s.Err()
}

func (b *ChunkLargeOffsetBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeCO64)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.ChunkOffsets)))
	for _, o := range b.ChunkOffsets {
		s.WriteUint64(o)
	}
	EndBox(s, pos)
}
