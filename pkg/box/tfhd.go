package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class TrackFragmentHeaderBox extends FullBox(‘tfhd’, 0, tf_flags){
// 	unsigned int(32) track_ID;
// 	// all the following are optional fields
// 	unsigned int(64) base_data_offset;
// 	unsigned int(32) sample_description_index;
// 	unsigned int(32) default_sample_duration;
// 	unsigned int(32) default_sample_size;
// 	unsigned int(32) default_sample_flags
// }

const (
	TF_FLAG_BASE_DATA_OFFSET         uint32 = 0x000001
	TF_FLAG_SAMPLE_DESCRIPTION_INDEX uint32 = 0x000002
	TF_FLAG_DEFAULT_SAMPLE_DURATION  uint32 = 0x000008
	TF_FLAG_DEFAULT_SAMPLE_SIZE      uint32 = 0x000010
	TF_FLAG_DEFAULT_SAMPLE_FLAGS     uint32 = 0x000020
	TF_FLAG_DURATION_IS_EMPTY        uint32 = 0x010000
	TF_FLAG_DEFAULT_BASE_IS_MOOF     uint32 = 0x020000
)

type TrackFragmentHeaderBox struct {
	FullBox
	TrackID                uint32
	BaseDataOffset         uint64
	SampleDescriptionIndex uint32
	DefaultSampleDuration  uint32
	DefaultSampleSize      uint32
	DefaultSampleFlags     SampleFlags
}

func (b *TrackFragmentHeaderBox) Type() BoxType {
	return TypeTFHD
}

func (b *TrackFragmentHeaderBox) Has(flag uint32) bool {
	return b.Flags&flag != 0
}

func (b *TrackFragmentHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.TrackID = s.ReadUint32()
	if b.Has(TF_FLAG_BASE_DATA_OFFSET) {
		b.BaseDataOffset = s.ReadUint64()
	}
	if b.Has(TF_FLAG_SAMPLE_DESCRIPTION_INDEX) {
		b.SampleDescriptionIndex = s.ReadUint32()
	}
	if b.Has(TF_FLAG_DEFAULT_SAMPLE_DURATION) {
		b.DefaultSampleDuration = s.ReadUint32()
	}
	if b.Has(TF_FLAG_DEFAULT_SAMPLE_SIZE) {
		b.DefaultSampleSize = s.ReadUint32()
	}
	if b.Has(TF_FLAG_DEFAULT_SAMPLE_FLAGS) {
		b.DefaultSampleFlags = SampleFlags(s.ReadUint32())
	}
	return s.Err()
}

func (b *TrackFragmentHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeTFHD)
	b.encodeFull(s)
	s.WriteUint32(b.TrackID)
	if b.Has(TF_FLAG_BASE_DATA_OFFSET) {
		s.WriteUint64(b.BaseDataOffset)
	}
	if b.Has(TF_FLAG_SAMPLE_DESCRIPTION_INDEX) {
		s.WriteUint32(b.SampleDescriptionIndex)
	}
	if b.Has(TF_FLAG_DEFAULT_SAMPLE_DURATION) {
		s.WriteUint32(b.DefaultSampleDuration)
	}
	if b.Has(TF_FLAG_DEFAULT_SAMPLE_SIZE) {
		s.WriteUint32(b.DefaultSampleSize)
	}
	if b.Has(TF_FLAG_DEFAULT_SAMPLE_FLAGS) {
		s.WriteUint32(uint32(b.DefaultSampleFlags))
	}
	EndBox(s, pos)
}
