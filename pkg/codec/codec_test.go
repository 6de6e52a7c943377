package codec

import (
	"bytes"
	"errors"
	"math/bits"
	"testing"

	gocodec "github.com/yapingcat/gomedia/go-codec"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/util"
)

func writeUE(s *util.ByteStream, v uint32) {
	n := bits.Len32(v + 1)
	s.WriteBits(0, n-1)
	s.WriteBits(v+1, n)
}

// baseline 320x240 SPS, no VUI
func testSPS() []byte {
	var s util.ByteStream
	s.WriteBytes([]byte{0x67, 66, 0xc0, 30})
	writeUE(&s, 0)  // seq_parameter_set_id
	writeUE(&s, 0)  // log2_max_frame_num_minus4
	writeUE(&s, 2)  // pic_order_cnt_type
	writeUE(&s, 1)  // max_num_ref_frames
	s.WriteBits(0, 1)
	writeUE(&s, 19) // pic_width_in_mbs_minus1
	writeUE(&s, 14) // pic_height_in_map_units_minus1
	s.WriteBits(1, 1) // frame_mbs_only_flag
	s.WriteBits(1, 1) // direct_8x8_inference_flag
	s.WriteBits(0, 1) // frame_cropping_flag
	s.WriteBits(0, 1) // vui_parameters_present_flag
	s.WriteBits(1, 1) // rbsp_stop_one_bit
	return s.Bytes()
}

func TestH264Dimensions(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		w, h, err := H264Dimensions(testSPS())
		if err != nil {
			t.Fatal(err)
		}
		if w != 320 || h != 240 {
			t.Errorf("%dx%d", w, h)
		}
	})
}

func TestH264Record(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		sps, pps := testSPS(), []byte{0x68, 0xce, 0x3c, 0x80}
		record, err := H264Record([][]byte{sps}, [][]byte{pps})
		if err != nil {
			t.Fatal(err)
		}
		if record[0] != 1 || record[1] != 66 || record[3] != 30 {
			t.Errorf("header % x", record[:6])
		}
		spss, ppss := gocodec.CovertExtradata(record)
		if len(spss) != 1 || len(ppss) != 1 {
			t.Fatalf("%d sps %d pps", len(spss), len(ppss))
		}
		if !bytes.HasSuffix(spss[0], sps) || !bytes.HasSuffix(ppss[0], pps) {
			t.Errorf("sps % x pps % x", spss[0], ppss[0])
		}
	})
}

func TestH265ProfileTierLevel(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		var s util.ByteStream
		s.WriteBytes([]byte{0x42, 0x01})
		s.WriteBits(0, 4)
		s.WriteBits(0, 3)
		s.WriteBits(1, 1)
		s.WriteBits(0, 2)
		s.WriteBits(0, 1)
		s.WriteBits(1, 5)
		s.WriteBits(0x60000000, 32)
		s.WriteBits(0x9000, 16)
		s.WriteBits(0, 32)
		s.WriteBits(93, 8)
		s.WriteBytes([]byte{0xa0, 0x02, 0x80})
		ptl, err := ParseH265ProfileTierLevel(s.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		want := ProfileTierLevel{
			ProfileIDC:         1,
			CompatibilityFlags: 0x60000000,
			ConstraintFlags:    0x900000000000,
			LevelIDC:           93,
			NumTemporalLayers:  1,
			TemporalIDNested:   true,
		}
		if ptl != want {
			t.Errorf("%+v", ptl)
		}
	})
}

func TestSplitLengthPrefixed(t *testing.T) {
	sample := AppendLengthPrefixed(nil, [][]byte{{0x65, 1, 2}, {0x06, 9}}, 4)
	t.Run("split", func(t *testing.T) {
		nalus, err := SplitLengthPrefixed(sample, 4)
		if err != nil || len(nalus) != 2 || !bytes.Equal(nalus[1], []byte{0x06, 9}) {
			t.Errorf("%v %x", err, nalus)
		}
	})
	t.Run("annexb", func(t *testing.T) {
		b, err := ToAnnexB(sample, 4)
		if err != nil {
			t.Fatal(err)
		}
		want := []byte{0, 0, 0, 1, 0x65, 1, 2, 0, 0, 0, 1, 0x06, 9}
		if !bytes.Equal(b, want) {
			t.Errorf("% x", b)
		}
	})
	t.Run("truncated", func(t *testing.T) {
		if _, err := SplitLengthPrefixed(sample[:len(sample)-1], 4); !errors.Is(err, pkg.ErrTruncatedStream) {
			t.Error(err)
		}
	})
	t.Run("length size", func(t *testing.T) {
		if _, err := SplitLengthPrefixed(sample, 3); !errors.Is(err, pkg.ErrUnsupportedCodec) {
			t.Error(err)
		}
	})
}

func TestKeyFrame(t *testing.T) {
	t.Run("h264", func(t *testing.T) {
		if !H264IsKeyFrame([][]byte{{0x67}, {0x68}, {0x65, 0x88}}) {
			t.Error("idr not detected")
		}
		if H264IsKeyFrame([][]byte{{0x41, 0x9a}}) {
			t.Error("non-idr slice reported as key frame")
		}
	})
	t.Run("h265", func(t *testing.T) {
		if !H265IsKeyFrame([][]byte{{19 << 1, 1, 0xaf}}) {
			t.Error("idr_w_radl not detected")
		}
		if H265IsKeyFrame([][]byte{{1 << 1, 1, 0xd0}}) {
			t.Error("trail_r reported as key frame")
		}
	})
}

func TestAACConfig(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		asc, err := AACConfig{SampleRate: 48000, Channels: 2}.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(asc, []byte{0x11, 0x90}) {
			t.Errorf("% x", asc)
		}
		cfg, err := ParseAACConfig(asc)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.SampleRate != 48000 || cfg.Channels != 2 || cfg.ObjectType != 2 {
			t.Errorf("%+v", cfg)
		}
	})
	t.Run("mono", func(t *testing.T) {
		asc, err := AACConfig{SampleRate: 44100, Channels: 1}.Marshal()
		if err != nil || !bytes.Equal(asc, []byte{0x12, 0x08}) {
			t.Errorf("%v % x", err, asc)
		}
	})
	t.Run("96k", func(t *testing.T) {
		asc, err := AACConfig{SampleRate: 96000, Channels: 2}.Marshal()
		if err != nil || !bytes.Equal(asc, []byte{0x10, 0x10}) {
			t.Errorf("%v % x", err, asc)
		}
	})
	t.Run("unindexed rate", func(t *testing.T) {
		if _, err := (AACConfig{SampleRate: 44000, Channels: 2}).Marshal(); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("channels", func(t *testing.T) {
		if _, err := (AACConfig{SampleRate: 48000, Channels: 7}).Marshal(); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestFamilyOf(t *testing.T) {
	for entry, want := range map[FourCC]Family{
		FourCC_AVC3: FamilyAVC,
		FourCC_HEV1: FamilyHEVC,
		FourCC_HVC2: FamilyHEVCExtractor,
		FourCC_MP4A: FamilyAAC,
		{'r', 'e', 's', 'v'}: FamilyUnknown,
	} {
		if got := FamilyOf(entry); got != want {
			t.Errorf("%s: %v", entry, got)
		}
	}
}
