package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class AVCDecoderConfigurationRecord {
// 	unsigned int(8) configurationVersion = 1;
// 	unsigned int(8) AVCProfileIndication;
// 	unsigned int(8) profile_compatibility;
// 	unsigned int(8) AVCLevelIndication;
// 	bit(6) reserved = ‘111111’b;
// 	unsigned int(2) lengthSizeMinusOne;
// 	bit(3) reserved = ‘111’b;
// 	unsigned int(5) numOfSequenceParameterSets;
// 	for (i=0; i< numOfSequenceParameterSets; i++) {
// 		unsigned int(16) sequenceParameterSetLength ;
// 		bit(8*sequenceParameterSetLength) sequenceParameterSetNALUnit;
// 	}
// 	unsigned int(8) numOfPictureParameterSets;
// 	for (i=0; i< numOfPictureParameterSets; i++) {
// 		unsigned int(16) pictureParameterSetLength;
// 		bit(8*pictureParameterSetLength) pictureParameterSetNALUnit;
// 	}
// 	if( profile_idc == 100 || profile_idc == 110 ||
// 	    profile_idc == 122 || profile_idc == 144 )
// 	{
// 		bit(6) reserved = ‘111111’b;
// 		unsigned int(2) chroma_format;
// 		bit(5) reserved = ‘11111’b;
// 		unsigned int(3) bit_depth_luma_minus8;
// 		bit(5) reserved = ‘11111’b;
// 		unsigned int(3) bit_depth_chroma_minus8;
// 		unsigned int(8) numOfSequenceParameterSetExt;
// 		for (i=0; i< numOfSequenceParameterSetExt; i++) {
// 			unsigned int(16) sequenceParameterSetExtLength;
// 			bit(8*sequenceParameterSetExtLength) sequenceParameterSetExtNALUnit;
// 		}
// 	}
// }

type AVCConfigurationBox struct {
	ConfigurationVersion uint8
	Profile              uint8
	ProfileCompatibility uint8
	Level                uint8
	LengthSizeMinusOne   uint8
	SPS                  [][]byte
	PPS                  [][]byte
	// HighProfileFields is set when the record carries the chroma/bit depth extension.
	HighProfileFields    bool
	ChromaFormat         uint8
	BitDepthLumaMinus8   uint8
	BitDepthChromaMinus8 uint8
	SPSExt               [][]byte
}

func (b *AVCConfigurationBox) Type() BoxType {
	return TypeAVCC
}

func (b *AVCConfigurationBox) ParameterSets() (ret []ParameterSet) {
	for _, sps := range b.SPS {
		ret = append(ret, ParameterSet{Kind: ParameterSetSPS, Data: sps})
	}
	for _, pps := range b.PPS {
		ret = append(ret, ParameterSet{Kind: ParameterSetPPS, Data: pps})
	}
	return
}

func hasAVCHighProfileFields(profile uint8) bool {
	switch profile {
	case 100, 110, 122, 144:
		return true
	}
	return false
}

func readNALUs(s *util.ByteStream, count int) (ret [][]byte) {
	for range count {
		n := int(s.ReadUint16())
		nalu := s.ReadN(n)
		if s.Err() != nil {
			return nil
		}
		ret = append(ret, cloneBytes(nalu))
	}
	return
}

func writeNALUs(s *util.ByteStream, nalus [][]byte) {
	for _, nalu := range nalus {
		s.WriteUint16(uint16(len(nalu)))
		s.WriteBytes(nalu)
	}
}

func (b *AVCConfigurationBox) Decode(s *util.ByteStream) error {
	b.ConfigurationVersion = s.ReadUint8()
	b.Profile = s.ReadUint8()
	b.ProfileCompatibility = s.ReadUint8()
	b.Level = s.ReadUint8()
	s.ReadBits(6)
	b.LengthSizeMinusOne = uint8(s.ReadBits(2))
	s.ReadBits(3)
	b.SPS = readNALUs(s, int(s.ReadBits(5)))
	b.PPS = readNALUs(s, int(s.ReadUint8()))
	if s.Err() == nil && s.Remaining() >= 4 && hasAVCHighProfileFields(b.Profile) {
		b.HighProfileFields = true
		s.ReadBits(6)
		b.ChromaFormat = uint8(s.ReadBits(2))
		s.ReadBits(5)
		b.BitDepthLumaMinus8 = uint8(s.ReadBits(3))
		s.ReadBits(5)
		b.BitDepthChromaMinus8 = uint8(s.ReadBits(3))
		b.SPSExt = readNALUs(s, int(s.ReadUint8()))
	}
	return s.Err()
}

func (b *AVCConfigurationBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeAVCC)
	s.WriteUint8(b.ConfigurationVersion)
	s.WriteUint8(b.Profile)
	s.WriteUint8(b.ProfileCompatibility)
	s.WriteUint8(b.Level)
	s.WriteBits(0x3F, 6)
	s.WriteBits(uint32(b.LengthSizeMinusOne), 2)
	s.WriteBits(0x7, 3)
	s.WriteBits(uint32(len(b.SPS)), 5)
	writeNALUs(s, b.SPS)
	s.WriteUint8(uint8(len(b.PPS)))
	writeNALUs(s, b.PPS)
	if b.HighProfileFields {
		s.WriteBits(0x3F, 6)
		s.WriteBits(uint32(b.ChromaFormat), 2)
		s.WriteBits(0x1F, 5)
		s.WriteBits(uint32(b.BitDepthLumaMinus8), 3)
		s.WriteBits(0x1F, 5)
		s.WriteBits(uint32(b.BitDepthChromaMinus8), 3)
		s.WriteUint8(uint8(len(b.SPSExt)))
		writeNALUs(s, b.SPSExt)
	}
	EndBox(s, pos)
}
