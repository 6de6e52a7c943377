package box

import (
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/util"
)

// aligned(8) class HEVCDecoderConfigurationRecord {
// 	unsigned int(8) configurationVersion = 1;
// 	unsigned int(2) general_profile_space;
// 	unsigned int(1) general_tier_flag;
// 	unsigned int(5) general_profile_idc;
// 	unsigned int(32) general_profile_compatibility_flags;
// 	unsigned int(48) general_constraint_indicator_flags;
// 	unsigned int(8) general_level_idc;
// 	bit(4) reserved = ‘1111’b;
// 	unsigned int(12) min_spatial_segmentation_idc;
// 	bit(6) reserved = ‘111111’b;
// 	unsigned int(2) parallelismType;
// 	bit(6) reserved = ‘111111’b;
// 	unsigned int(2) chromaFormat;
// 	bit(5) reserved = ‘11111’b;
// 	unsigned int(3) bitDepthLumaMinus8;
// 	bit(5) reserved = ‘11111’b;
// 	unsigned int(3) bitDepthChromaMinus8;
// 	bit(16) avgFrameRate;
// 	bit(2) constantFrameRate;
// 	bit(3) numTemporalLayers;
// 	bit(1) temporalIdNested;
// 	unsigned int(2) lengthSizeMinusOne;
// 	unsigned int(8) numOfArrays;
// 	for (j=0; j < numOfArrays; j++) {
// 		bit(1) array_completeness;
// 		unsigned int(1) reserved = 0;
// 		unsigned int(6) NAL_unit_type;
// 		unsigned int(16) numNalus;
// 		for (i=0; i< numNalus; i++) {
// 			unsigned int(16) nalUnitLength;
// 			bit(8*nalUnitLength) nalUnit;
// 		}
// 	}
// }

type HEVCNALArray struct {
	Complete    bool
	NALUnitType codec.H265NALUType
	NALUs       [][]byte
}

type HEVCConfigurationBox struct {
	ConfigurationVersion      uint8
	codec.ProfileTierLevel
	MinSpatialSegmentationIDC uint16
	ParallelismType           uint8
	ChromaFormat              uint8
	BitDepthLumaMinus8        uint8
	BitDepthChromaMinus8      uint8
	AvgFrameRate              uint16
	ConstantFrameRate         uint8
	LengthSizeMinusOne        uint8
	Arrays                    []HEVCNALArray
}

func (b *HEVCConfigurationBox) Type() BoxType {
	return TypeHVCC
}

// NALUs returns the units of every array of type t.
func (b *HEVCConfigurationBox) NALUs(t codec.H265NALUType) (ret [][]byte) {
	for _, a := range b.Arrays {
		if a.NALUnitType == t {
			ret = append(ret, a.NALUs...)
		}
	}
	return
}

func (b *HEVCConfigurationBox) ParameterSets() (ret []ParameterSet) {
	for _, a := range b.Arrays {
		var kind ParameterSetKind
		switch a.NALUnitType {
		case codec.NAL_UNIT_VPS:
			kind = ParameterSetVPS
		case codec.NAL_UNIT_SPS:
			kind = ParameterSetSPS
		case codec.NAL_UNIT_PPS:
			kind = ParameterSetPPS
		case codec.NAL_UNIT_PREFIX_SEI, codec.NAL_UNIT_SUFFIX_SEI:
			kind = ParameterSetSEI
		default:
			continue
		}
		for _, nalu := range a.NALUs {
			ret = append(ret, ParameterSet{Kind: kind, Data: nalu})
		}
	}
	return
}

func (b *HEVCConfigurationBox) Decode(s *util.ByteStream) error {
	b.ConfigurationVersion = s.ReadUint8()
	b.ProfileSpace = uint8(s.ReadBits(2))
	b.TierFlag = s.ReadBit()
	b.ProfileIDC = uint8(s.ReadBits(5))
	b.CompatibilityFlags = s.ReadUint32()
	b.ConstraintFlags = uint64(s.ReadUint32())<<16 | uint64(s.ReadUint16())
	b.LevelIDC = s.ReadUint8()
	s.ReadBits(4)
	b.MinSpatialSegmentationIDC = uint16(s.ReadBits(12))
	s.ReadBits(6)
	b.ParallelismType = uint8(s.ReadBits(2))
	s.ReadBits(6)
	b.ChromaFormat = uint8(s.ReadBits(2))
	s.ReadBits(5)
	b.BitDepthLumaMinus8 = uint8(s.ReadBits(3))
	s.ReadBits(5)
	b.BitDepthChromaMinus8 = uint8(s.ReadBits(3))
	b.AvgFrameRate = s.ReadUint16()
	b.ConstantFrameRate = uint8(s.ReadBits(2))
	b.NumTemporalLayers = uint8(s.ReadBits(3))
	b.TemporalIDNested = s.ReadBit()
	b.LengthSizeMinusOne = uint8(s.ReadBits(2))
	numArrays := int(s.ReadUint8())
	if !checkCount(s, uint64(numArrays), 3) {
		return s.Err()
	}
	for range numArrays {
		var a HEVCNALArray
		a.Complete = s.ReadBit()
		s.ReadBits(1)
		a.NALUnitType = codec.H265NALUType(s.ReadBits(6))
		a.NALUs = readNALUs(s, int(s.ReadUint16()))
		if s.Err() != nil {
			break
		}
		b.Arrays = append(b.Arrays, a)
	}
	return s.Err()
}

func (b *HEVCConfigurationBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeHVCC)
	s.WriteUint8(b.ConfigurationVersion)
	s.WriteBits(uint32(b.ProfileSpace), 2)
	s.WriteBit(b.TierFlag)
	s.WriteBits(uint32(b.ProfileIDC), 5)
	s.WriteUint32(b.CompatibilityFlags)
	s.WriteUint32(uint32(b.ConstraintFlags >> 16))
	s.WriteUint16(uint16(b.ConstraintFlags))
	s.WriteUint8(b.LevelIDC)
	s.WriteBits(0xF, 4)
	s.WriteBits(uint32(b.MinSpatialSegmentationIDC), 12)
	s.WriteBits(0x3F, 6)
	s.WriteBits(uint32(b.ParallelismType), 2)
	s.WriteBits(0x3F, 6)
	s.WriteBits(uint32(b.ChromaFormat), 2)
	s.WriteBits(0x1F, 5)
	s.WriteBits(uint32(b.BitDepthLumaMinus8), 3)
	s.WriteBits(0x1F, 5)
	s.WriteBits(uint32(b.BitDepthChromaMinus8), 3)
	s.WriteUint16(b.AvgFrameRate)
	s.WriteBits(uint32(b.ConstantFrameRate), 2)
	s.WriteBits(uint32(b.NumTemporalLayers), 3)
	s.WriteBit(b.TemporalIDNested)
	s.WriteBits(uint32(b.LengthSizeMinusOne), 2)
	s.WriteUint8(uint8(len(b.Arrays)))
	for _, a := range b.Arrays {
		s.WriteBit(a.Complete)
		s.WriteBits(0, 1)
		s.WriteBits(uint32(a.NALUnitType), 6)
		s.WriteUint16(uint16(len(a.NALUs)))
		writeNALUs(s, a.NALUs)
	}
	EndBox(s, pos)
}
