package writer

import (
	"fmt"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/util"
)

// AVCSampleEntry builds an avc1 entry with a 4-byte NAL length size. A zero
// width or height is read from the SPS.
func AVCSampleEntry(sps, pps []byte, width, height uint16) (*box.VisualSampleEntry, error) {
	record, err := codec.H264Record([][]byte{sps}, [][]byte{pps})
	if err != nil {
		return nil, err
	}
	var avcc box.AVCConfigurationBox
	if err = avcc.Decode(util.NewByteStream(record)); err != nil {
		return nil, fmt.Errorf("avcC: %w", err)
	}
	if width == 0 || height == 0 {
		w, h, err := codec.H264Dimensions(sps)
		if err != nil {
			return nil, err
		}
		width, height = uint16(w), uint16(h)
	}
	entry := box.NewVisualSampleEntry(box.TypeAVC1, width, height)
	entry.AddChild(&avcc)
	return entry, nil
}

// HEVCSampleEntry builds an hvc1 entry, or an hvc2 entry for extractor
// tracks, with a 4-byte NAL length size. Extractor tracks may leave the
// parameter sets empty when width and height are given.
func HEVCSampleEntry(vps, sps, pps []byte, width, height uint16, extractor bool) (*box.VisualSampleEntry, error) {
	hvcc := &box.HEVCConfigurationBox{
		ConfigurationVersion: 1,
		ChromaFormat:         1,
		LengthSizeMinusOne:   3,
	}
	if len(sps) > 0 {
		ptl, err := codec.ParseH265ProfileTierLevel(sps)
		if err != nil {
			return nil, err
		}
		hvcc.ProfileTierLevel = ptl
		if width == 0 || height == 0 {
			w, h, err := codec.H265Dimensions(sps)
			if err != nil {
				return nil, err
			}
			width, height = uint16(w), uint16(h)
		}
	}
	for _, ps := range []struct {
		t    codec.H265NALUType
		nalu []byte
	}{{codec.NAL_UNIT_VPS, vps}, {codec.NAL_UNIT_SPS, sps}, {codec.NAL_UNIT_PPS, pps}} {
		if len(ps.nalu) > 0 {
			hvcc.Arrays = append(hvcc.Arrays, box.HEVCNALArray{Complete: true, NALUnitType: ps.t, NALUs: [][]byte{ps.nalu}})
		}
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: hevc entry without sps needs width and height", pkg.ErrOperationFailed)
	}
	t := box.TypeHVC1
	if extractor {
		t = box.TypeHVC2
	}
	entry := box.NewVisualSampleEntry(t, width, height)
	entry.AddChild(hvcc)
	return entry, nil
}

// AACSampleEntry builds an mp4a entry. Channels and rate default to the
// AudioSpecificConfig values when zero.
func AACSampleEntry(asc []byte, channels uint16, rate uint32) (*box.AudioSampleEntry, error) {
	conf, err := codec.ParseAACConfig(asc)
	if err != nil {
		return nil, err
	}
	if channels == 0 {
		channels = uint16(conf.Channels)
	}
	if rate == 0 {
		rate = uint32(conf.SampleRate)
	}
	entry := box.NewAudioSampleEntry(box.TypeMP4A, channels, rate)
	entry.AddChild(box.NewESDBox(0, asc, 0, 0))
	return entry, nil
}
