package writer

import (
	"bytes"
	"math/bits"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/config"
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
	writeUE(&s, 0)
	writeUE(&s, 0)
	writeUE(&s, 2)
	writeUE(&s, 1)
	s.WriteBits(0, 1)
	writeUE(&s, 19)
	writeUE(&s, 14)
	s.WriteBits(1, 1)
	s.WriteBits(1, 1)
	s.WriteBits(0, 1)
	s.WriteBits(0, 1)
	s.WriteBits(1, 1)
	return s.Bytes()
}

var testPPS = []byte{0x68, 0xce, 0x3c, 0x80}

func testMetas(t *testing.T) []TrackMeta {
	t.Helper()
	avc1, err := AVCSampleEntry(testSPS(), testPPS, 0, 0)
	require.NoError(t, err)
	mp4a, err := AACSampleEntry([]byte{0x11, 0x90}, 0, 0)
	require.NoError(t, err)
	return []TrackMeta{
		{TrackID: 2, Timescale: 48000, Type: box.TypeSOUN, SampleEntry: mp4a, AlternateGroup: 1},
		{TrackID: 1, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: avc1},
	}
}

func videoFrame(i int) Frame {
	nalType := byte(0x41)
	if i%30 == 0 {
		nalType = 0x65
	}
	return Frame{
		Data:     codec.AppendLengthPrefixed(nil, [][]byte{{nalType, byte(i), byte(i >> 8)}}, 4),
		Duration: 3003,
		IsIDR:    i%30 == 0,
	}
}

func audioFrame(i int) Frame {
	return Frame{Data: []byte{0x21, byte(i), byte(i >> 8)}, Duration: 1024}
}

// feed writes 6 s of 29.97 fps video and 48 kHz AAC.
func feed(t *testing.T, w *SegmentWriter) {
	t.Helper()
	for i := range 180 {
		require.NoError(t, w.Feed(1, videoFrame(i)))
	}
	for i := range 282 {
		require.NoError(t, w.Feed(2, audioFrame(i)))
	}
	require.NoError(t, w.FeedEndOfStream(1))
	require.NoError(t, w.FeedEndOfStream(2))
}

func TestSampleEntries(t *testing.T) {
	t.Run("avc", func(t *testing.T) {
		entry, err := AVCSampleEntry(testSPS(), testPPS, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, box.TypeAVC1, entry.Type())
		assert.Equal(t, uint16(320), entry.Width)
		assert.Equal(t, uint16(240), entry.Height)
		assert.Equal(t, 4, entry.NALLengthSize())
		ps := entry.ParameterSets()
		require.Len(t, ps, 2)
		assert.Equal(t, box.ParameterSetSPS, ps[0].Kind)
		assert.Equal(t, testPPS, ps[1].Data)
	})
	t.Run("hevc extractor", func(t *testing.T) {
		entry, err := HEVCSampleEntry(nil, nil, nil, 1920, 960, true)
		require.NoError(t, err)
		assert.Equal(t, box.TypeHVC2, entry.Type())
		assert.Equal(t, 4, entry.NALLengthSize())
		_, err = HEVCSampleEntry(nil, nil, nil, 0, 0, false)
		assert.ErrorIs(t, err, pkg.ErrOperationFailed)
	})
	t.Run("aac", func(t *testing.T) {
		entry, err := AACSampleEntry([]byte{0x11, 0x90}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, uint16(2), entry.ChannelCount)
		assert.Equal(t, uint32(48000), entry.Rate())
		ps := entry.ParameterSets()
		require.Len(t, ps, 1)
		assert.Equal(t, []byte{0x11, 0x90}, ps[0].Data)
	})
}

func TestNew(t *testing.T) {
	metas := testMetas(t)
	t.Run("duplicate track", func(t *testing.T) {
		_, err := New(config.Writer{}, pkg.DiscardLogger(), metas[0], metas[0])
		assert.ErrorIs(t, err, pkg.ErrInvalidContextID)
	})
	t.Run("missing sample entry", func(t *testing.T) {
		_, err := New(config.Writer{}, pkg.DiscardLogger(), TrackMeta{TrackID: 3, Timescale: 1000})
		assert.ErrorIs(t, err, pkg.ErrOperationFailed)
	})
	t.Run("defaults", func(t *testing.T) {
		w, err := New(config.Writer{}, nil, metas...)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, w.cfg.SegmentDuration)
		assert.Equal(t, []uint32{1, 2}, w.order)
		assert.Equal(t, int64(90000), w.tracks[1].subTarget)
		assert.Equal(t, int64(96000), w.tracks[2].segTarget)
	})
}

func TestFeed(t *testing.T) {
	w, err := New(config.Writer{}, pkg.DiscardLogger(), testMetas(t)...)
	require.NoError(t, err)
	t.Run("unknown track", func(t *testing.T) {
		assert.ErrorIs(t, w.Feed(9, videoFrame(0)), pkg.ErrInvalidContextID)
		assert.ErrorIs(t, w.FeedEndOfStream(9), pkg.ErrInvalidContextID)
	})
	t.Run("composition offset", func(t *testing.T) {
		f := videoFrame(0)
		f.CTS = []int64{6006}
		require.NoError(t, w.Feed(1, f))
		assert.Equal(t, int64(6006), w.tracks[1].cur.samples[0].cto)
	})
	t.Run("after end of stream", func(t *testing.T) {
		require.NoError(t, w.FeedEndOfStream(2))
		require.NoError(t, w.FeedEndOfStream(2))
		assert.ErrorIs(t, w.Feed(2, audioFrame(0)), pkg.ErrOperationFailed)
	})
}

func TestSegmentation(t *testing.T) {
	t.Run("sub-segments close on sync frames", func(t *testing.T) {
		w, err := New(config.Writer{}, pkg.DiscardLogger(), testMetas(t)...)
		require.NoError(t, err)
		for i := range 61 {
			require.NoError(t, w.Feed(1, videoFrame(i)))
		}
		v := w.tracks[1]
		require.Len(t, v.segments, 1)
		require.Len(t, v.segments[0], 2)
		assert.Len(t, v.segments[0][0].samples, 30)
		assert.Equal(t, int64(30*3003), v.segments[0][1].baseTime)
		assert.Len(t, v.cur.samples, 1)

		segs, err := w.ExtractSegments()
		require.NoError(t, err)
		assert.Empty(t, segs, "audio has nothing committed yet")
	})
	t.Run("skip sub-segments", func(t *testing.T) {
		w, err := New(config.Writer{SkipSubsegments: 1}, pkg.DiscardLogger(), testMetas(t)...)
		require.NoError(t, err)
		for i := range 91 {
			require.NoError(t, w.Feed(1, videoFrame(i)))
		}
		v := w.tracks[1]
		require.Len(t, v.segments, 1)
		require.Len(t, v.segments[0], 1)
		assert.Len(t, v.segments[0][0].samples, 60)
		assert.Len(t, v.cur.samples, 31)
	})
	t.Run("long sub-segment", func(t *testing.T) {
		w, err := New(config.Writer{}, pkg.DiscardLogger(), testMetas(t)...)
		require.NoError(t, err)
		// a 5 s GOP followed by 1 s GOPs
		frame := func(i int) Frame {
			f := videoFrame(i)
			f.IsIDR = i == 0 || i >= 150 && i%30 == 0
			return f
		}
		for i := range 151 {
			require.NoError(t, w.Feed(1, frame(i)))
		}
		v := w.tracks[1]
		require.Len(t, v.segments, 1)
		assert.Len(t, v.segments[0][0].samples, 150)
		assert.Equal(t, int64(150*3003)%v.segTarget, v.elapsed)
		assert.Less(t, v.elapsed, v.segTarget)

		// the carried part lines the next boundary up with the 6 s mark
		for i := 151; i < 181; i++ {
			require.NoError(t, w.Feed(1, frame(i)))
		}
		require.Len(t, v.segments, 2)
		require.Len(t, v.segments[1], 1)
		assert.Equal(t, int64(150*3003), v.segments[1][0].baseTime)
		assert.Equal(t, int64(180*3003)%v.segTarget, v.elapsed)

		// then segments wait for a whole target again
		for i := 181; i < 211; i++ {
			require.NoError(t, w.Feed(1, frame(i)))
		}
		require.Len(t, v.segments, 2, "one 1 s sub-segment does not close a segment")
		for i := 211; i < 241; i++ {
			require.NoError(t, w.Feed(1, frame(i)))
		}
		require.Len(t, v.segments, 3)
		require.Len(t, v.segments[2], 2)
		assert.Equal(t, int64(180*3003), v.segments[2][0].baseTime)
	})
	t.Run("lock-step", func(t *testing.T) {
		w, err := New(config.Writer{}, pkg.DiscardLogger(), testMetas(t)...)
		require.NoError(t, err)
		feed(t, w)
		segs, err := w.ExtractSegments()
		require.NoError(t, err)
		require.Len(t, segs, 3)
		for i, seg := range segs {
			assert.Equal(t, uint32(i+1), seg.Sequence)
			// video starts first, audio ends last
			start := util.NewFraction(int64(i*60*3003), 90000)
			end := util.NewFraction(int64((i+1)*94*1024), 48000)
			assert.Equal(t, 0, seg.Start.Cmp(start), seg.Start.String())
			assert.Equal(t, 0, seg.Duration.Cmp(end.Sub(start)), seg.Duration.String())
		}
		more, err := w.ExtractSegments()
		require.NoError(t, err)
		assert.Empty(t, more)
	})
}

func TestSegmentSpan(t *testing.T) {
	t.Run("composition offsets", func(t *testing.T) {
		metas := testMetas(t)[1:]
		w, err := New(config.Writer{}, pkg.DiscardLogger(), metas...)
		require.NoError(t, err)
		for i := range 60 {
			f := Frame{Data: []byte{0, 0, 0, 1, 0x41}, Duration: 3000, IsIDR: i%30 == 0, CTS: []int64{int64(i+2) * 3000}}
			require.NoError(t, w.Feed(1, f))
		}
		require.NoError(t, w.FeedEndOfStream(1))
		segs, err := w.ExtractSegments()
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, 0, segs[0].Start.Cmp(util.NewFraction(6000, 90000)), segs[0].Start.String())
		assert.Equal(t, 0, segs[0].Duration.Cmp(util.NewFraction(2, 1)), segs[0].Duration.String())
	})
	t.Run("across tracks", func(t *testing.T) {
		w, err := New(config.Writer{}, pkg.DiscardLogger(), testMetas(t)...)
		require.NoError(t, err)
		// audio starts half a second after the video and outlasts it
		for i := range 30 {
			require.NoError(t, w.Feed(1, videoFrame(i)))
		}
		for i := range 60 {
			f := audioFrame(i)
			f.CTS = []int64{24000 + int64(i)*1024}
			require.NoError(t, w.Feed(2, f))
		}
		require.NoError(t, w.FeedEndOfStream(1))
		require.NoError(t, w.FeedEndOfStream(2))
		segs, err := w.ExtractSegments()
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, 0, segs[0].Start.Cmp(util.NewFraction(0, 1)), segs[0].Start.String())
		end := util.NewFraction(24000+60*1024, 48000)
		assert.Equal(t, 0, segs[0].Duration.Cmp(end), segs[0].Duration.String())
	})
}

func TestOutput(t *testing.T) {
	w, err := New(config.Writer{}, pkg.DiscardLogger(), testMetas(t)...)
	require.NoError(t, err)
	feed(t, w)
	segs, err := w.ExtractSegments()
	require.NoError(t, err)
	require.Len(t, segs, 3)
	var init bytes.Buffer
	require.NoError(t, w.WriteInitSegment(&init))

	t.Run("own decoder", func(t *testing.T) {
		boxes, err := box.DecodeAll(init.Bytes(), 0)
		require.NoError(t, err)
		require.Len(t, boxes, 2)
		ftyp := boxes[0].(*box.FileTypeBox)
		assert.Equal(t, box.BoxType{'i', 's', 'o', '6'}, ftyp.MajorBrand)
		assert.Contains(t, ftyp.CompatibleBrands, box.TypeMSDH)
		moov := boxes[1].(*box.MovieBox)
		require.Len(t, moov.Traks, 2)
		assert.Equal(t, uint32(3), moov.Mvhd.NextTrackID)
		assert.Equal(t, uint64(6016), moov.Mvex.Mehd.FragmentDuration)
		assert.Equal(t, uint32(320<<16), moov.Traks[0].Tkhd.Width)
		assert.Equal(t, int16(1), moov.Traks[1].Tkhd.AlternateGroup)
		assert.Equal(t, box.TypeSOUN, moov.Traks[1].Mdia.Hdlr.HandlerType)

		boxes, err = box.DecodeAll(segs[1].Data, 0)
		require.NoError(t, err)
		// styp, two sidx, then two moof+mdat pairs per track
		require.Len(t, boxes, 11)
		styp := boxes[0].(*box.FileTypeBox)
		assert.Equal(t, box.TypeSTYP, styp.Type())
		assert.Equal(t, box.TypeMSDH, styp.MajorBrand)
		sidx := boxes[1].(*box.SegmentIndexBox)
		assert.Equal(t, uint32(1), sidx.ReferenceID)
		assert.Equal(t, uint64(60*3003), sidx.EarliestPresentationTime)
		require.Len(t, sidx.References, 2)
		assert.True(t, sidx.References[0].StartsWithSAP)
		assert.Equal(t, uint32(30*3003), sidx.References[1].SubsegmentDuration)
		audio := boxes[2].(*box.SegmentIndexBox)
		assert.Equal(t, uint32(2), audio.ReferenceID)
		assert.Equal(t, uint64(94*1024), audio.EarliestPresentationTime)

		// the audio sidx points past the video fragments
		var videoSize uint64
		for _, ref := range sidx.References {
			videoSize += uint64(ref.ReferencedSize)
		}
		assert.Equal(t, videoSize, audio.FirstOffset)
		assert.Equal(t, uint64(box.SizeOf(audio)), sidx.FirstOffset)

		moof := boxes[3].(*box.MovieFragmentBox)
		traf := moof.Trafs[0]
		assert.Equal(t, uint64(60*3003), traf.Tfdt.BaseMediaDecodeTime)
		trun := traf.Truns[0]
		require.Len(t, trun.Entries, 30)
		assert.True(t, box.SampleFlags(trun.Entries[0].Flags).IsSync())
		assert.False(t, box.SampleFlags(trun.Entries[1].Flags).IsSync())
		mdat := boxes[4].(*box.MediaDataBox)
		assert.Equal(t, int32(box.SizeOf(moof)+mdat.HeaderSize()), trun.DataOffset)
		assert.Equal(t, videoFrame(60).Data, mdat.Data[:len(videoFrame(60).Data)])
	})

	t.Run("mp4ff", func(t *testing.T) {
		file := append([]byte{}, init.Bytes()...)
		for _, seg := range segs {
			file = append(file, seg.Data...)
		}
		f, err := mp4.DecodeFile(bytes.NewReader(file))
		require.NoError(t, err)
		require.NotNil(t, f.Init)
		require.Len(t, f.Init.Moov.Traks, 2)
		assert.Equal(t, uint32(1), f.Init.Moov.Traks[0].Tkhd.TrackID)
		require.Len(t, f.Segments, 3)
		var video, audio uint32
		var seq uint32
		for _, seg := range f.Segments {
			require.Len(t, seg.Fragments, 4)
			for _, frag := range seg.Fragments {
				seq++
				assert.Equal(t, seq, frag.Moof.Mfhd.SequenceNumber)
				switch frag.Moof.Traf.Tfhd.TrackID {
				case 1:
					video += frag.Moof.Traf.Trun.SampleCount()
				case 2:
					audio += frag.Moof.Traf.Trun.SampleCount()
				}
			}
		}
		assert.Equal(t, uint32(180), video)
		assert.Equal(t, uint32(282), audio)
	})
}

func TestNoSidx(t *testing.T) {
	w, err := New(config.Writer{NoSidx: true, SegmentBrand: "cmfs"}, pkg.DiscardLogger(), testMetas(t)[1])
	require.NoError(t, err)
	for i := range 90 {
		require.NoError(t, w.Feed(1, videoFrame(i)))
	}
	require.NoError(t, w.FeedEndOfStream(1))
	segs, err := w.ExtractSegments()
	require.NoError(t, err)
	require.Len(t, segs, 2)
	boxes, err := box.DecodeAll(segs[0].Data, 0)
	require.NoError(t, err)
	require.Len(t, boxes, 5)
	assert.Equal(t, box.BoxType{'c', 'm', 'f', 's'}, boxes[0].(*box.FileTypeBox).MajorBrand)
	_, ok := boxes[1].(*box.MovieFragmentBox)
	assert.True(t, ok)
}
