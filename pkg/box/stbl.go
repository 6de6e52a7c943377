package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class SampleTableBox extends Box(‘stbl’) {
// }

type SampleTableBox struct {
	Container
	Stsd *SampleDescriptionBox
	Stts *TimeToSampleBox
	Ctts *CompositionOffsetBox
	Stsc *SampleToChunkBox
	Stsz *SampleSizeBox
	Stco *ChunkOffsetBox
	Co64 *ChunkLargeOffsetBox
	Stss *SyncSampleBox
}

func (b *SampleTableBox) Type() BoxType {
	return TypeSTBL
}

func (b *SampleTableBox) AddChild(child Box) {
	switch c := child.(type) {
	case *SampleDescriptionBox:
		b.Stsd = c
	case *TimeToSampleBox:
		b.Stts = c
	case *CompositionOffsetBox:
		b.Ctts = c
	case *SampleToChunkBox:
		b.Stsc = c
	case *SampleSizeBox:
		b.Stsz = c
	case *ChunkOffsetBox:
		b.Stco = c
	case *ChunkLargeOffsetBox:
		b.Co64 = c
	case *SyncSampleBox:
		b.Stss = c
	}
	b.Children = append(b.Children, child)
}

func (b *SampleTableBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *SampleTableBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeSTBL, b.Children)
}

// ChunkOffsets merges stco and co64.
func (b *SampleTableBox) ChunkOffsets() []uint64 {
	if b.Co64 != nil {
		return b.Co64.ChunkOffsets
	}
	if b.Stco == nil {
		return nil
	}
	ret := make([]uint64, len(b.Stco.ChunkOffsets))
	for i, o := range b.Stco.ChunkOffsets {
		ret[i] = uint64(o)
	}
	return ret
}

// aligned(8) class SampleDescriptionBox (unsigned int(32) handler_type) extends FullBox('stsd', 0, 0){
// 	int i ;
// 	unsigned int(32) entry_count;
// 	for (i = 1 ; i <= entry_count ; i++){
// 		SampleEntry();
// 	}
// }

type SampleDescriptionBox struct {
	FullBox
	Entries []Box
}

func (b *SampleDescriptionBox) Type() BoxType {
	return TypeSTSD
}

// Entry returns the entry for a 1-based sample_description_index.
func (b *SampleDescriptionBox) Entry(index uint32) (Box, bool) {
	if index == 0 || int(index) > len(b.Entries) {
		return nil, false
	}
	return b.Entries[index-1], true
}

func (b *SampleDescriptionBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), BasicBoxLen) {
		return s.Err()
	}
	for range count {
		entry, err := ReadBox(s)
		if err != nil {
			return err
		}
		b.Entries = append(b.Entries, entry)
	}
	return s.Err()
}

func (b *SampleDescriptionBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTSD)
	b.encodeFull(s)
	s.WriteUint32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		e.Encode(s)
	}
	EndBox(s, pos)
}
