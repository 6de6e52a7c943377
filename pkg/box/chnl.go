package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class ChannelLayout extends FullBox('chnl', version = 0, flags = 0) {
// 	unsigned int(8) stream_structure;
// 	if (stream_structure & channelStructured) {
// 		unsigned int(8) definedLayout;
// 		if (definedLayout==0) {
// 			for (i = 1 ; i <= channelCount ; i++) {
// 				unsigned int(8) speaker_position;
// 				if (speaker_position == 126) { // explicit position
// 					signed int (16) azimuth;
// 					signed int (8) elevation;
// 				}
// 			}
// 		} else {
// 			unsigned int(64) omittedChannelsMap;
// 		}
// 	}
// 	if (stream_structure & objectStructured) {
// 		unsigned int(8) object_count;
// 	}
// }

const (
	ChannelStructured = 1
	ObjectStructured  = 2

	ExplicitSpeakerPosition = 126
)

type SpeakerPosition struct {
	Position  uint8
	Azimuth   int16
	Elevation int8
}

type ChannelLayoutBox struct {
	FullBox
	StreamStructure    uint8
	DefinedLayout      uint8
	Speakers           []SpeakerPosition
	OmittedChannelsMap uint64
	ObjectCount        uint8
}

func (b *ChannelLayoutBox) Type() BoxType {
	return TypeCHNL
}

func (b *ChannelLayoutBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.StreamStructure = s.ReadUint8()
	tail := 0
	if b.StreamStructure&ObjectStructured != 0 {
		tail = 1
	}
	if b.StreamStructure&ChannelStructured != 0 {
		b.DefinedLayout = s.ReadUint8()
		if b.DefinedLayout == 0 {
			// the channel count lives in the sample entry, so positions run to the tail
			for s.Err() == nil && s.Remaining() > tail {
				sp := SpeakerPosition{Position: s.ReadUint8()}
				if sp.Position == ExplicitSpeakerPosition {
					sp.Azimuth = s.ReadInt16()
					sp.Elevation = s.ReadInt8()
				}
				b.Speakers = append(b.Speakers, sp)
			}
		} else {
			b.OmittedChannelsMap = s.ReadUint64()
		}
	}
	if b.StreamStructure&ObjectStructured != 0 {
		b.ObjectCount = s.ReadUint8()
	}
	return s.Err()
}

func (b *ChannelLayoutBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeCHNL)
	b.encodeFull(s)
	s.WriteUint8(b.StreamStructure)
	if b.StreamStructure&ChannelStructured != 0 {
		s.WriteUint8(b.DefinedLayout)
		if b.DefinedLayout == 0 {
			for _, sp := range b.Speakers {
				s.WriteUint8(sp.Position)
				if sp.Position == ExplicitSpeakerPosition {
					s.WriteInt16(sp.Azimuth)
					s.WriteInt8(sp.Elevation)
				}
			}
		} else {
			s.WriteUint64(b.OmittedChannelsMap)
		}
	}
	if b.StreamStructure&ObjectStructured != 0 {
		s.WriteUint8(b.ObjectCount)
	}
	EndBox(s, pos)
}

// aligned(8) class SpatialAudioBox extends Box(‘SA3D’) {
// 	unsigned int(8)  version;
// 	unsigned int(8)  ambisonic_type;
// 	unsigned int(32) ambisonic_order;
// 	unsigned int(8)  ambisonic_channel_ordering;
// 	unsigned int(8)  ambisonic_normalization;
// 	unsigned int(32) num_channels;
// 	for (i = 0; i < num_channels; i++) {
// 		unsigned int(32) channel_map;
// 	}
// }

type SpatialAudioBox struct {
	Version                  uint8
	AmbisonicType            uint8
	AmbisonicOrder           uint32
	AmbisonicChannelOrdering uint8
	AmbisonicNormalization   uint8
	ChannelMap               []uint32
}

func (b *SpatialAudioBox) Type() BoxType {
	return TypeSA3D
}

func (b *SpatialAudioBox) Decode(s *util.ByteStream) error {
	b.Version = s.ReadUint8()
	b.AmbisonicType = s.ReadUint8()
	b.AmbisonicOrder = s.ReadUint32()
	b.AmbisonicChannelOrdering = s.ReadUint8()
	b.AmbisonicNormalization = s.ReadUint8()
	count := s.ReadUint32()
	if !checkCount(s, uint64(count), 4) {
		return s.Err()
	}
	if count > 0 {
		b.ChannelMap = make([]uint32, count)
	}
	for i := range b.ChannelMap {
		b.ChannelMap[i] = s.ReadUint32()
	}
	return s.Err()
}

func (b *SpatialAudioBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSA3D)
	s.WriteUint8(b.Version)
	s.WriteUint8(b.AmbisonicType)
	s.WriteUint32(b.AmbisonicOrder)
	s.WriteUint8(b.AmbisonicChannelOrdering)
	s.WriteUint8(b.AmbisonicNormalization)
	s.WriteUint32(uint32(len(b.ChannelMap)))
	for _, c := range b.ChannelMap {
		s.WriteUint32(c)
	}
	EndBox(s, pos)
}
