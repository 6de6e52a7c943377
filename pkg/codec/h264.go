package codec

import (
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/deepch/vdk/codec/h264parser"
	gocodec "github.com/yapingcat/gomedia/go-codec"
)

type H264NALUType byte

func ParseH264NALUType(b byte) H264NALUType {
	return H264NALUType(b & 0x1F)
}

const (
	NALU_Non_IDR_Picture       H264NALUType = 1
	NALU_IDR_Picture           H264NALUType = 5
	NALU_SEI                   H264NALUType = 6
	NALU_SPS                   H264NALUType = 7
	NALU_PPS                   H264NALUType = 8
	NALU_Access_Unit_Delimiter H264NALUType = 9
)

func (t H264NALUType) IsVCL() bool {
	return gocodec.IsH264VCLNaluType(gocodec.H264_NAL_TYPE(t))
}

// H264Dimensions reads the coded picture size from an SPS NAL unit.
func H264Dimensions(sps []byte) (width, height uint32, err error) {
	info, err := h264parser.ParseSPS(sps)
	if err != nil {
		return 0, 0, fmt.Errorf("h264 sps: %w", err)
	}
	return uint32(info.Width), uint32(info.Height), nil
}

func H264IsKeyFrame(au [][]byte) bool {
	return h264.IDRPresent(au)
}

// H264Record builds an AVCDecoderConfigurationRecord from raw parameter sets.
func H264Record(spss, ppss [][]byte) ([]byte, error) {
	if len(spss) == 0 || len(ppss) == 0 {
		return nil, fmt.Errorf("h264 record: need sps and pps")
	}
	// the builder strips a leading start code from every unit
	return gocodec.CreateH264AVCCExtradata(withStartCode(spss), withStartCode(ppss))
}

func withStartCode(units [][]byte) [][]byte {
	ret := make([][]byte, len(units))
	for i, u := range units {
		ret[i] = append([]byte{0, 0, 0, 1}, u...)
	}
	return ret
}
