package codec

import (
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/h265"
	"github.com/deepch/vdk/codec/h265parser"
	gocodec "github.com/yapingcat/gomedia/go-codec"

	"m7s.live/omaf/pkg/util"
)

type H265NALUType byte

func ParseH265NALUType(b byte) H265NALUType {
	return H265NALUType(b & 0x7E >> 1)
}

const (
	NAL_UNIT_CODED_SLICE_IDR_W_RADL H265NALUType = 19
	NAL_UNIT_CODED_SLICE_IDR_N_LP   H265NALUType = 20
	NAL_UNIT_CODED_SLICE_CRA        H265NALUType = 21
	NAL_UNIT_VPS                    H265NALUType = 32
	NAL_UNIT_SPS                    H265NALUType = 33
	NAL_UNIT_PPS                    H265NALUType = 34
	NAL_UNIT_ACCESS_UNIT_DELIMITER  H265NALUType = 35
	NAL_UNIT_PREFIX_SEI             H265NALUType = 39
	NAL_UNIT_SUFFIX_SEI             H265NALUType = 40
	NAL_UNIT_AGGREGATOR             H265NALUType = 48
	NAL_UNIT_EXTRACTOR              H265NALUType = 49
)

func (t H265NALUType) IsVCL() bool {
	return gocodec.IsH265VCLNaluType(gocodec.H265_NAL_TYPE(t))
}

// H265Dimensions reads the conformance-window picture size from an SPS NAL unit.
func H265Dimensions(sps []byte) (width, height uint32, err error) {
	info, err := h265parser.ParseSPS(sps)
	if err != nil {
		return 0, 0, fmt.Errorf("h265 sps: %w", err)
	}
	return uint32(info.Width), uint32(info.Height), nil
}

func H265IsKeyFrame(au [][]byte) bool {
	return h265.IsRandomAccess(au)
}

// ProfileTierLevel is the general part of profile_tier_level() an hvcC header repeats.
type ProfileTierLevel struct {
	ProfileSpace       uint8
	TierFlag           bool
	ProfileIDC         uint8
	CompatibilityFlags uint32
	ConstraintFlags    uint64 // 48 bits
	LevelIDC           uint8
	NumTemporalLayers  uint8
	TemporalIDNested   bool
}

func ParseH265ProfileTierLevel(sps []byte) (ptl ProfileTierLevel, err error) {
	rbsp := h264.EmulationPreventionRemove(sps)
	if len(rbsp) < 15 {
		return ptl, fmt.Errorf("h265 sps: %d bytes is too short", len(rbsp))
	}
	s := util.NewByteStream(rbsp[2:])
	s.ReadBits(4) // sps_video_parameter_set_id
	ptl.NumTemporalLayers = uint8(s.ReadBits(3)) + 1
	ptl.TemporalIDNested = s.ReadBit()
	ptl.ProfileSpace = uint8(s.ReadBits(2))
	ptl.TierFlag = s.ReadBit()
	ptl.ProfileIDC = uint8(s.ReadBits(5))
	ptl.CompatibilityFlags = s.ReadBits(32)
	ptl.ConstraintFlags = uint64(s.ReadBits(32))<<16 | uint64(s.ReadBits(16))
	ptl.LevelIDC = uint8(s.ReadBits(8))
	return ptl, s.Err()
}
