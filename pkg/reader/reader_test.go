package reader

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/config"
	"m7s.live/omaf/pkg/extractor"
	"m7s.live/omaf/pkg/writer"
)

type parent interface {
	box.Box
	AddChild(box.Box)
}

func with[T parent](b T, children ...box.Box) T {
	for _, c := range children {
		b.AddChild(c)
	}
	return b
}

var (
	testSPS = []byte{0x67, 66, 0xc0, 30, 0xd9}
	testPPS = []byte{0x68, 0xce, 0x3c, 0x80}
)

func avc1() *box.VisualSampleEntry {
	return with(box.NewVisualSampleEntry(box.TypeAVC1, 320, 240), &box.AVCConfigurationBox{
		ConfigurationVersion: 1,
		Profile:              66,
		ProfileCompatibility: 0xc0,
		Level:                30,
		LengthSizeMinusOne:   3,
		SPS:                  [][]byte{testSPS},
		PPS:                  [][]byte{testPPS},
	})
}

func mp4a(t *testing.T) *box.AudioSampleEntry {
	t.Helper()
	entry, err := writer.AACSampleEntry([]byte{0x11, 0x90}, 0, 0)
	require.NoError(t, err)
	return entry
}

func videoFrame(i int) writer.Frame {
	nalType := byte(0x41)
	if i%30 == 0 {
		nalType = 0x65
	}
	return writer.Frame{
		Data:     codec.AppendLengthPrefixed(nil, [][]byte{{nalType, byte(i), byte(i >> 8)}}, 4),
		Duration: 3003,
		IsIDR:    i%30 == 0,
	}
}

func audioFrame(i int) writer.Frame {
	return writer.Frame{Data: []byte{0x21, byte(i), byte(i >> 8)}, Duration: 1024}
}

type stream struct {
	init     []byte
	segments [][]byte
}

// encode runs the segment writer over metas and returns its output.
func encode(t *testing.T, metas []writer.TrackMeta, feed func(w *writer.SegmentWriter)) stream {
	t.Helper()
	w, err := writer.New(config.Writer{}, pkg.DiscardLogger(), metas...)
	require.NoError(t, err)
	feed(w)
	for _, meta := range metas {
		require.NoError(t, w.FeedEndOfStream(meta.TrackID))
	}
	segs, err := w.ExtractSegments()
	require.NoError(t, err)
	var init bytes.Buffer
	require.NoError(t, w.WriteInitSegment(&init))
	s := stream{init: init.Bytes()}
	for _, seg := range segs {
		s.segments = append(s.segments, seg.Data)
	}
	return s
}

// avStream is 6 s of 29.97 fps video on track 1 and 48 kHz AAC on track 2.
func avStream(t *testing.T) stream {
	return encode(t, []writer.TrackMeta{
		{TrackID: 1, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: avc1()},
		{TrackID: 2, Timescale: 48000, Type: box.TypeSOUN, SampleEntry: mp4a(t)},
	}, func(w *writer.SegmentWriter) {
		for i := range 180 {
			require.NoError(t, w.Feed(1, videoFrame(i)))
		}
		for i := range 282 {
			require.NoError(t, w.Feed(2, audioFrame(i)))
		}
	})
}

func load(t *testing.T, s stream) *Reader {
	t.Helper()
	r := New(config.Reader{}, pkg.DiscardLogger())
	require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
	for i, seg := range s.segments {
		require.NoError(t, r.ParseSegment(bytes.NewReader(seg), 1, SegmentID(i+1)))
	}
	return r
}

func TestWriterRoundTrip(t *testing.T) {
	s := avStream(t)
	require.Len(t, s.segments, 3)
	r := load(t, s)

	t.Run("track information", func(t *testing.T) {
		infos := r.GetTrackInformation()
		require.Len(t, infos, 2)
		video, audio := infos[0], infos[1]
		assert.Equal(t, ContextVideo, video.Type)
		assert.Equal(t, ContextAudio, audio.Type)
		assert.Equal(t, []box.BoxType{box.TypeAVC1}, video.SampleEntryTypes)
		assert.Equal(t, uint32(320), video.Width)
		require.Len(t, video.Samples, 180)
		require.Len(t, audio.Samples, 282)
		for i, s := range video.Samples {
			assert.Equal(t, ItemID(i), s.ID)
			assert.Equal(t, SegmentID(i/60+1), s.Segment)
			assert.Equal(t, i%30 == 0, s.Sync)
		}
		assert.Equal(t, int64(180*3003), video.DurationTS)
		assert.Equal(t, uint32(7), video.MaxSampleSize)
		assert.Zero(t, video.Features)
		require.NotNil(t, audio.SampleDescriptions[0].AAC)
		assert.Equal(t, 48000, audio.SampleDescriptions[0].AAC.SampleRate)
	})
	t.Run("file properties", func(t *testing.T) {
		props, err := r.GetFileProperties(1)
		require.NoError(t, err)
		assert.Equal(t, box.TypeISO6, props.MajorBrand)
		brands, err := r.GetSegmentBrands(1, 2)
		require.NoError(t, err)
		assert.Equal(t, []box.BoxType{box.TypeMSDH, box.TypeMSDH, box.TypeMSIX}, brands)
		_, err = r.GetSegmentBrands(1, 7)
		assert.ErrorIs(t, err, pkg.ErrInvalidSegment)
	})
	t.Run("sample data", func(t *testing.T) {
		data, err := r.GetSampleData(1, 1, 61, false)
		require.NoError(t, err)
		assert.Equal(t, videoFrame(61).Data, data)
		data, err = r.GetSampleData(1, 1, 61, true)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 1, 0x41, 61, 0}, data)
		data, err = r.GetSampleData(1, 2, 281, false)
		require.NoError(t, err)
		assert.Equal(t, audioFrame(281).Data, data)
		_, err = r.GetSampleData(1, 2, 0, true)
		assert.ErrorIs(t, err, pkg.ErrUnsupportedCodec)
	})
	t.Run("small buffer", func(t *testing.T) {
		buf := make([]byte, 4)
		n, err := r.ReadSampleData(1, 1, 0, buf, true)
		assert.ErrorIs(t, err, pkg.ErrMemoryTooSmallBuffer)
		assert.Equal(t, 7, n)
		n, err = r.ReadSampleData(1, 1, 0, make([]byte, n), true)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})
	t.Run("sample offset", func(t *testing.T) {
		seg, offset, length, err := r.GetSampleOffset(1, 1, 60)
		require.NoError(t, err)
		assert.Equal(t, SegmentID(2), seg)
		assert.Equal(t, uint32(7), length)
		assert.Equal(t, videoFrame(60).Data, s.segments[1][offset:offset+int64(length)])
	})
	t.Run("decoder configuration", func(t *testing.T) {
		dsi, err := r.GetDecoderConfiguration(1, 1, 5)
		require.NoError(t, err)
		require.Len(t, dsi, 2)
		assert.Equal(t, box.ParameterSetSPS, dsi[0].Kind)
		assert.Equal(t, append([]byte{0, 0, 0, 1}, testSPS...), dsi[0].Data)
		assert.Equal(t, append([]byte{0, 0, 0, 1}, testPPS...), dsi[1].Data)
		dsi, err = r.GetDecoderConfiguration(1, 2, 5)
		require.NoError(t, err)
		require.Len(t, dsi, 1)
		assert.Equal(t, box.ParameterSetASC, dsi[0].Kind)
		assert.Equal(t, []byte{0x11, 0x90}, dsi[0].Data)
	})
	t.Run("timestamps", func(t *testing.T) {
		items, err := r.GetTrackTimestamps(1, 1)
		require.NoError(t, err)
		require.Len(t, items, 180)
		for i, item := range items {
			assert.Equal(t, ItemID(i), item.Item)
			if i > 0 {
				assert.Greater(t, item.Time, items[i-1].Time)
			}
		}
		ts, err := r.GetTimestampsTS(1, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, []int64{100 * 3003}, ts)
		order, err := r.GetSamplesInDecodingOrder(1, 2)
		require.NoError(t, err)
		require.Len(t, order, 282)
		assert.Equal(t, int64(200*1024), order[200].DecodeTimeTS)
		assert.Equal(t, order[200].DecodeTimeTS, order[200].PresentationTimeTS)
	})
	t.Run("seek", func(t *testing.T) {
		item, err := r.GetItemIDByTime(1, 1, 1500*time.Millisecond, false)
		require.NoError(t, err)
		assert.Equal(t, ItemID(44), item)
		item, err = r.GetItemIDByTime(1, 1, 1500*time.Millisecond, true)
		require.NoError(t, err)
		assert.Equal(t, ItemID(30), item)
		_, err = r.GetItemIDByTime(1, 1, -time.Second, false)
		assert.ErrorIs(t, err, pkg.ErrInvalidItemID)
	})
	t.Run("duration", func(t *testing.T) {
		d, timescale, err := r.GetTrackDuration(1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(282*1024), d)
		assert.Equal(t, uint32(48000), timescale)
	})
	t.Run("sample types", func(t *testing.T) {
		items, err := r.GetSamplesByType(1, 1, OutputReference)
		require.NoError(t, err)
		assert.Len(t, items, 180)
		items, err = r.GetSamplesByType(1, 1, NonOutputReference)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
	t.Run("segment index", func(t *testing.T) {
		for _, track := range []ContextID{1, 2} {
			index, err := r.GetSegmentIndex(1, track)
			require.NoError(t, err)
			require.Len(t, index, 6)
			for i, info := range index {
				seg := s.segments[info.SegmentID-1]
				assert.Equal(t, SegmentID(i/2+1), info.SegmentID)
				assert.Equal(t, "moof", string(seg[info.DataOffset+4:info.DataOffset+8]))
				assert.LessOrEqual(t, info.DataOffset+int64(info.DataSize), int64(len(seg)))
			}
			assert.True(t, index[0].StartsWithSAP)
		}
		index, _ := r.GetSegmentIndex(1, 1)
		assert.Equal(t, int64(60*3003), index[2].EarliestPTS)
		assert.Equal(t, uint32(30*3003), index[3].Duration)
	})
	t.Run("unknown ids", func(t *testing.T) {
		_, err := r.GetSampleData(1, 1, 180, false)
		assert.ErrorIs(t, err, pkg.ErrInvalidItemID)
		_, err = r.GetSampleData(1, 9, 0, false)
		assert.ErrorIs(t, err, pkg.ErrInvalidContextID)
		_, err = r.GetTrackTimestamps(9, 1)
		assert.ErrorIs(t, err, pkg.ErrInvalidInitSegment)
		_, err = r.GetProjectionFormat(1, 1, 0)
		assert.ErrorIs(t, err, pkg.ErrPropertyNotFound)
	})
}

func TestRegistration(t *testing.T) {
	s := avStream(t)
	t.Run("duplicate ids", func(t *testing.T) {
		r := load(t, s)
		err := r.ParseInitSegment(bytes.NewReader(s.init), 1)
		assert.ErrorIs(t, err, pkg.ErrInvalidInitSegment)
		assert.ErrorIs(t, err, pkg.ErrInvalidSegment)
		assert.ErrorIs(t, r.ParseSegment(bytes.NewReader(s.segments[0]), 1, 1), pkg.ErrInvalidSegment)
		assert.ErrorIs(t, r.ParseSegment(bytes.NewReader(s.segments[0]), 2, 4), pkg.ErrInvalidInitSegment)
	})
	t.Run("missing moov", func(t *testing.T) {
		r := New(config.Reader{}, pkg.DiscardLogger())
		err := r.ParseInitSegment(bytes.NewReader(s.segments[0]), 1)
		assert.ErrorIs(t, err, pkg.ErrInvalidFileHeader)
		_, err = r.GetFileProperties(1)
		assert.ErrorIs(t, err, pkg.ErrInvalidInitSegment)
	})
	t.Run("atom limit", func(t *testing.T) {
		r := New(config.Reader{MaxAtomSize: 64}, pkg.DiscardLogger())
		assert.ErrorIs(t, r.ParseInitSegment(bytes.NewReader(s.init), 1), pkg.ErrInvalidSize)
	})
	t.Run("disable segment", func(t *testing.T) {
		r := load(t, s)
		require.NoError(t, r.DisableSegment(1, 2))
		assert.ErrorIs(t, r.DisableSegment(1, 2), pkg.ErrInvalidSegment)
		_, err := r.GetSampleData(1, 1, 60, false)
		assert.ErrorIs(t, err, pkg.ErrInvalidItemID)
		data, err := r.GetSampleData(1, 1, 120, false)
		require.NoError(t, err)
		assert.Equal(t, videoFrame(120).Data, data)
		index, err := r.GetSegmentIndex(1, 1)
		require.NoError(t, err)
		assert.Len(t, index, 4)
		items, err := r.GetTrackTimestamps(1, 1)
		require.NoError(t, err)
		assert.Len(t, items, 120)

		// a re-registered segment continues the item numbering
		require.NoError(t, r.ParseSegment(bytes.NewReader(s.segments[1]), 1, 2))
		data, err = r.GetSampleData(1, 1, 180, false)
		require.NoError(t, err)
		assert.Equal(t, videoFrame(60).Data, data)
	})
	t.Run("disable init segment", func(t *testing.T) {
		r := load(t, s)
		require.NoError(t, r.DisableInitSegment(1))
		assert.ErrorIs(t, r.DisableInitSegment(1), pkg.ErrInvalidInitSegment)
		_, err := r.GetSampleData(1, 1, 0, false)
		assert.ErrorIs(t, err, pkg.ErrInvalidInitSegment)
		assert.Empty(t, r.GetTrackInformation())
		require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
	})
}

// fragment builds a moof+mdat without tfdt, so decode times come from the reader.
func fragment(seq uint32, frames []writer.Frame) []byte {
	trun := &box.TrackRunBox{FullBox: box.FullBox{
		Flags: box.TR_FLAG_DATA_OFFSET | box.TR_FLAG_DATA_SAMPLE_DURATION | box.TR_FLAG_DATA_SAMPLE_SIZE | box.TR_FLAG_DATA_FIRST_SAMPLE_FLAGS,
	}, FirstSampleFlags: box.SyncSampleFlags}
	mdat := &box.MediaDataBox{}
	for _, f := range frames {
		trun.Entries = append(trun.Entries, box.TrunEntry{Duration: f.Duration, Size: uint32(len(f.Data))})
		mdat.Data = append(mdat.Data, f.Data...)
	}
	tfhd := &box.TrackFragmentHeaderBox{FullBox: box.FullBox{Flags: box.TF_FLAG_DEFAULT_BASE_IS_MOOF | box.TF_FLAG_DEFAULT_SAMPLE_FLAGS}, TrackID: 1, DefaultSampleFlags: box.NonSyncSampleFlags}
	moof := with(&box.MovieFragmentBox{}, &box.MovieFragmentHeaderBox{SequenceNumber: seq}, with(&box.TrackFragmentBox{}, tfhd, trun))
	trun.DataOffset = int32(box.SizeOf(moof) + mdat.HeaderSize())
	return box.EncodeBox(moof, mdat)
}

func videoFrames(from, n int) (frames []writer.Frame) {
	for i := from; i < from+n; i++ {
		frames = append(frames, videoFrame(i))
	}
	return
}

func TestDecodeTimeFallback(t *testing.T) {
	s := encode(t, []writer.TrackMeta{{TrackID: 1, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: avc1()}}, func(*writer.SegmentWriter) {})
	require.Empty(t, s.segments)
	r := New(config.Reader{}, pkg.DiscardLogger())
	require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
	first := func(t *testing.T, seg SegmentID) DecodingOrderItem {
		t.Helper()
		order, err := r.GetSamplesInDecodingOrder(1, 1)
		require.NoError(t, err)
		for _, o := range order {
			if id, _, _, _ := r.GetSampleOffset(1, 1, o.Item); id == seg {
				return o
			}
		}
		t.Fatalf("segment %d has no samples", seg)
		return DecodingOrderItem{}
	}

	t.Run("start of stream", func(t *testing.T) {
		require.NoError(t, r.ParseSegment(bytes.NewReader(fragment(1, videoFrames(0, 10))), 1, 1))
		assert.Equal(t, int64(0), first(t, 1).DecodeTimeTS)
	})
	t.Run("continues the previous segment", func(t *testing.T) {
		require.NoError(t, r.ParseSegment(bytes.NewReader(fragment(2, videoFrames(10, 10))), 1, 2))
		o := first(t, 2)
		assert.Equal(t, ItemID(10), o.Item)
		assert.Equal(t, int64(10*3003), o.DecodeTimeTS)
	})
	t.Run("two fragments in one segment", func(t *testing.T) {
		data := append(fragment(3, videoFrames(20, 5)), fragment(4, videoFrames(25, 5))...)
		require.NoError(t, r.ParseSegment(bytes.NewReader(data), 1, 3))
		ts, err := r.GetTimestampsTS(1, 1, 25)
		require.NoError(t, err)
		assert.Equal(t, []int64{25 * 3003}, ts)
	})
	t.Run("earliest pts option", func(t *testing.T) {
		require.NoError(t, r.ParseSegment(bytes.NewReader(fragment(5, videoFrames(0, 3))), 1, 4, WithEarliestPTS(900000)))
		assert.Equal(t, int64(900000), first(t, 4).DecodeTimeTS)
	})
	t.Run("sidx earliest presentation time", func(t *testing.T) {
		frag := fragment(6, videoFrames(0, 3))
		sidx := &box.SegmentIndexBox{FullBox: box.FullBox{Version: 1}, ReferenceID: 1, Timescale: 1000, EarliestPresentationTime: 20000,
			References: []box.SidxReference{{ReferencedSize: uint32(len(frag)), SubsegmentDuration: 100, StartsWithSAP: true, SAPType: 1}}}
		require.NoError(t, r.ParseSegment(bytes.NewReader(append(box.EncodeBox(sidx), frag...)), 1, 5))
		o := first(t, 5)
		assert.Equal(t, int64(20*90000), o.DecodeTimeTS)
		sync, err := r.GetSamplesByType(1, 1, OutputReference)
		require.NoError(t, err)
		assert.NotEmpty(t, sync)
	})
	t.Run("first sample flags", func(t *testing.T) {
		infos := r.GetTrackInformation()
		require.Len(t, infos, 1)
		samples := infos[0].Samples
		assert.True(t, samples[0].Sync)
		assert.False(t, samples[1].Sync)
	})
}

// flatFile is a non-fragmented file: three AVC samples in one chunk, shown
// through an edit list that skips the first composition offset.
func flatFile() (file []byte, samples [][]byte) {
	samples = [][]byte{
		codec.AppendLengthPrefixed(nil, [][]byte{{0x65, 1, 2, 3}}, 4),
		codec.AppendLengthPrefixed(nil, [][]byte{{0x41, 4}}, 4),
		codec.AppendLengthPrefixed(nil, [][]byte{{0x41, 5}, {0x06, 6}}, 4),
	}
	stco := &box.ChunkOffsetBox{ChunkOffsets: []uint32{0}}
	stbl := with(&box.SampleTableBox{},
		&box.SampleDescriptionBox{Entries: []box.Box{avc1()}},
		&box.TimeToSampleBox{Entries: []box.STTSEntry{{SampleCount: 3, SampleDelta: 3003}}},
		&box.CompositionOffsetBox{Entries: []box.CTTSEntry{{SampleCount: 3, SampleOffset: 3003}}},
		&box.SampleToChunkBox{Entries: []box.STSCEntry{{FirstChunk: 1, SamplesPerChunk: 3, SampleDescriptionIndex: 1}}},
		&box.SampleSizeBox{SampleCount: 3, EntrySizes: []uint32{uint32(len(samples[0])), uint32(len(samples[1])), uint32(len(samples[2]))}},
		stco,
		&box.SyncSampleBox{SampleNumbers: []uint32{1}},
	)
	minf := with(&box.MediaInformationBox{}, box.NewVideoMediaHeaderBox(), box.NewDataInformationBox(), stbl)
	mdia := with(&box.MediaBox{}, box.NewMediaHeaderBox(90000), box.NewHandlerBox(box.TypeVIDE, "VideoHandler"), minf)
	edts := with(&box.EditBox{}, &box.EditListBox{Entries: []box.EditListEntry{{MediaTime: 3003, MediaRateInteger: 1}}})
	tkhd := box.NewTrackHeaderBox(1)
	tkhd.Width, tkhd.Height = 320<<16, 240<<16
	moov := with(&box.MovieBox{}, box.NewMovieHeaderBox(1000, 2), with(&box.TrackBox{}, tkhd, edts, mdia))
	ftyp := box.NewFileTypeBox(box.TypeFTYP, box.TypeISO6, 0, box.TypeISO6)
	mdat := &box.MediaDataBox{}
	for _, s := range samples {
		mdat.Data = append(mdat.Data, s...)
	}
	stco.ChunkOffsets[0] = uint32(box.SizeOf(ftyp) + box.SizeOf(moov) + mdat.HeaderSize())
	return box.EncodeBox(ftyp, moov, mdat), samples
}

func TestFlatFile(t *testing.T) {
	file, samples := flatFile()
	r := New(config.Reader{}, pkg.DiscardLogger())
	require.NoError(t, r.ParseInitSegment(bytes.NewReader(file), 1))

	t.Run("samples", func(t *testing.T) {
		infos := r.GetTrackInformation()
		require.Len(t, infos, 1)
		info := infos[0]
		require.Len(t, info.Samples, 3)
		assert.Equal(t, SegmentID(0), info.Samples[0].Segment)
		assert.True(t, info.Samples[0].Sync)
		assert.False(t, info.Samples[2].Sync)
		assert.NotZero(t, info.Features&FeatureEditList)
		for i, want := range samples {
			data, err := r.GetSampleData(1, 1, ItemID(i), false)
			require.NoError(t, err)
			assert.Equal(t, want, data)
		}
		data, err := r.GetSampleData(1, 1, 2, true)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 1, 0x41, 5, 0, 0, 0, 1, 0x06, 6}, data)
	})
	t.Run("edit list", func(t *testing.T) {
		for i := range 3 {
			ts, err := r.GetTimestampsTS(1, 1, ItemID(i))
			require.NoError(t, err)
			assert.Equal(t, []int64{int64(i) * 3003}, ts)
		}
		item, err := r.GetItemIDByTime(1, 1, 70*time.Millisecond, true)
		require.NoError(t, err)
		assert.Equal(t, ItemID(0), item)
		item, err = r.GetItemIDByTime(1, 1, 70*time.Millisecond, false)
		require.NoError(t, err)
		assert.Equal(t, ItemID(2), item)
	})
	t.Run("segment zero is taken", func(t *testing.T) {
		assert.ErrorIs(t, r.ParseSegment(bytes.NewReader(file), 1, 0), pkg.ErrInvalidSegment)
	})
}

// atomStarts lists the offsets of the top-level atoms in b and its length.
func atomStarts(b []byte) map[int]bool {
	starts := map[int]bool{}
	for off := 0; off+4 <= len(b); off += int(binary.BigEndian.Uint32(b[off:])) {
		starts[off] = true
	}
	starts[len(b)] = true
	return starts
}

// defaultsFragment is a moof whose trun carries no per-sample fields; every
// sample takes the tfhd defaults.
func defaultsFragment(count uint32, payload int) []byte {
	tfhd := &box.TrackFragmentHeaderBox{FullBox: box.FullBox{
		Flags: box.TF_FLAG_DEFAULT_BASE_IS_MOOF | box.TF_FLAG_DEFAULT_SAMPLE_DURATION | box.TF_FLAG_DEFAULT_SAMPLE_SIZE,
	}, TrackID: 1, DefaultSampleDuration: 3003, DefaultSampleSize: 4}
	trun := &box.TrackRunBox{FullBox: box.FullBox{Flags: box.TR_FLAG_DATA_OFFSET}}
	moof := with(&box.MovieFragmentBox{}, &box.MovieFragmentHeaderBox{SequenceNumber: 1}, with(&box.TrackFragmentBox{}, tfhd, trun))
	mdat := &box.MediaDataBox{Data: make([]byte, payload)}
	trun.DataOffset = int32(box.SizeOf(moof) + mdat.HeaderSize())
	data := box.EncodeBox(moof, mdat)
	at := bytes.Index(data, []byte("trun")) + 8 // past the type and the full box header
	binary.BigEndian.PutUint32(data[at:], count)
	return data
}

func TestTruncatedInput(t *testing.T) {
	t.Run("flat file", func(t *testing.T) {
		file, _ := flatFile()
		ftyp := box.SizeOf(box.NewFileTypeBox(box.TypeFTYP, box.TypeISO6, 0, box.TypeISO6))
		for n := range len(file) {
			r := New(config.Reader{}, pkg.DiscardLogger())
			var err error
			require.NotPanics(t, func() { err = r.ParseInitSegment(bytes.NewReader(file[:n]), 1) })
			if n == 0 || n == ftyp {
				// whole atoms, but no moov
				assert.ErrorIs(t, err, pkg.ErrInvalidFileHeader, "cut at %d", n)
				continue
			}
			assert.ErrorIs(t, err, pkg.ErrTruncatedStream, "cut at %d", n)
			assert.Empty(t, r.GetTrackInformation(), "cut at %d", n)
		}
	})
	t.Run("media segment", func(t *testing.T) {
		s := avStream(t)
		seg := s.segments[0]
		starts := atomStarts(seg)
		total := 60 + 94
		for n := range len(seg) {
			r := New(config.Reader{}, pkg.DiscardLogger())
			require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
			var err error
			require.NotPanics(t, func() { err = r.ParseSegment(bytes.NewReader(seg[:n]), 1, 1) })
			if !starts[n] {
				assert.ErrorIs(t, err, pkg.ErrTruncatedStream, "cut at %d", n)
				continue
			}
			if err != nil {
				assert.ErrorIs(t, err, pkg.ErrTruncatedStream, "cut at %d", n)
				continue
			}
			// a cut on a fragment boundary keeps the complete fragments
			var samples int
			for _, info := range r.GetTrackInformation() {
				samples += len(info.Samples)
			}
			assert.Less(t, samples, total, "cut at %d", n)
		}
	})
	t.Run("sample count", func(t *testing.T) {
		s := encode(t, []writer.TrackMeta{{TrackID: 1, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: avc1()}}, func(*writer.SegmentWriter) {})
		for _, c := range []struct {
			name  string
			count uint32
			want  error
		}{
			{"beyond the entry limit", 30_000_000, pkg.ErrInvalidSize},
			{"maximum", 0xFFFFFFFF, pkg.ErrInvalidSize},
			{"beyond the mdat", 1000, pkg.ErrTruncatedStream},
		} {
			t.Run(c.name, func(t *testing.T) {
				r := New(config.Reader{}, pkg.DiscardLogger())
				require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
				err := r.ParseSegment(bytes.NewReader(defaultsFragment(c.count, 8)), 1, 1)
				assert.ErrorIs(t, err, c.want)
				assert.Empty(t, r.GetTrackInformation()[0].Samples)
			})
		}
		r := New(config.Reader{}, pkg.DiscardLogger())
		require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
		require.NoError(t, r.ParseSegment(bytes.NewReader(defaultsFragment(2, 8)), 1, 1))
		info := r.GetTrackInformation()[0]
		require.Len(t, info.Samples, 2)
		assert.Equal(t, uint32(4), info.Samples[1].Size)
		assert.Equal(t, uint32(3003), info.Samples[1].Duration)
	})
	t.Run("sidx reference count", func(t *testing.T) {
		s := avStream(t)
		seg := append([]byte(nil), s.segments[0]...)
		at := bytes.Index(seg, []byte("sidx"))
		require.Positive(t, at)
		// reference_count of a version 1 sidx sits 30 bytes after the type
		seg[at+30], seg[at+31] = 0xFF, 0xFF
		r := New(config.Reader{}, pkg.DiscardLogger())
		require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
		assert.ErrorIs(t, r.ParseSegment(bytes.NewReader(seg), 1, 1), pkg.ErrTruncatedStream)
	})
}

func TestExtractorTrack(t *testing.T) {
	tile, err := writer.HEVCSampleEntry(nil, nil, nil, 960, 960, false)
	require.NoError(t, err)
	hvc2, err := writer.HEVCSampleEntry(nil, nil, nil, 1920, 960, true)
	require.NoError(t, err)
	sample, err := (&extractor.Extractor{Constructors: []extractor.Constructor{
		extractor.SampleConstruct{TrackRefIndex: 1},
		extractor.InlineConstruct{Data: []byte{0, 0, 0, 3, 0x02, 0x01, 0xEE}},
		extractor.SampleConstruct{TrackRefIndex: 2, DataOffset: 6, DataLength: 2},
	}}).AppendNAL(nil, 4)
	require.NoError(t, err)
	tileFrame := func(tag byte, i int) writer.Frame {
		return writer.Frame{Data: codec.AppendLengthPrefixed(nil, [][]byte{{0x02, 0x01, tag, byte(i)}}, 4), Duration: 3000, IsIDR: i%30 == 0}
	}
	s := encode(t, []writer.TrackMeta{
		{TrackID: 1, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: hvc2, References: map[box.BoxType][]uint32{box.TypeSCAL: {2, 3}}},
		{TrackID: 2, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: tile},
		{TrackID: 3, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: tile},
	}, func(w *writer.SegmentWriter) {
		for i := range 90 {
			require.NoError(t, w.Feed(1, writer.Frame{Data: sample, Duration: 3000, IsIDR: i%30 == 0}))
			require.NoError(t, w.Feed(2, tileFrame('a', i)))
			require.NoError(t, w.Feed(3, tileFrame('b', i)))
		}
	})
	require.Len(t, s.segments, 2)
	r := load(t, s)

	t.Run("features", func(t *testing.T) {
		infos := r.GetTrackInformation()
		require.Len(t, infos, 3)
		assert.NotZero(t, infos[0].Features&FeatureExtractor)
		assert.Zero(t, infos[0].Features&FeatureTileTrack)
		assert.NotZero(t, infos[1].Features&FeatureTileTrack)
		assert.NotZero(t, infos[2].Features&FeatureTileTrack)
		assert.Equal(t, []ContextID{2, 3}, infos[0].References[box.TypeSCAL])
	})
	t.Run("reconstruction", func(t *testing.T) {
		for _, item := range []ItemID{0, 59, 75} {
			data, err := r.GetSampleData(1, 1, item, true)
			require.NoError(t, err)
			want := []byte{0, 0, 0, 1, 0x02, 0x01, 'a', byte(item), 0, 0, 0, 1, 0x02, 0x01, 0xEE, 'b', byte(item)}
			assert.Equal(t, want, data, "item %d", item)
		}
	})
	t.Run("length prefixed", func(t *testing.T) {
		for _, item := range []ItemID{3, 88} {
			data, err := r.GetSampleData(1, 1, item, false)
			require.NoError(t, err)
			// the inline NAL length covers the bytes its sample constructor appends
			want := []byte{0, 0, 0, 4, 0x02, 0x01, 'a', byte(item), 0, 0, 0, 5, 0x02, 0x01, 0xEE, 'b', byte(item)}
			assert.Equal(t, want, data, "item %d", item)
		}
		_, offset, length, err := r.GetSampleOffset(1, 1, 3)
		require.NoError(t, err)
		assert.EqualValues(t, len(sample), length)
		assert.Positive(t, offset)
	})
	t.Run("small buffer", func(t *testing.T) {
		n, err := r.ReadSampleData(1, 1, 3, make([]byte, 16), false)
		assert.ErrorIs(t, err, pkg.ErrMemoryTooSmallBuffer)
		assert.Equal(t, 17, n)
	})
	t.Run("missing tile", func(t *testing.T) {
		r := New(config.Reader{}, pkg.DiscardLogger())
		require.NoError(t, r.ParseInitSegment(bytes.NewReader(s.init), 1))
		// the first segment without its tile fragments
		boxes, err := box.DecodeAll(s.segments[0], 0)
		require.NoError(t, err)
		var kept []box.Box
		for i, b := range boxes {
			if moof, ok := b.(*box.MovieFragmentBox); ok && moof.Trafs[0].Tfhd.TrackID != 1 {
				continue
			}
			if _, ok := b.(*box.MediaDataBox); ok {
				if moof := boxes[i-1].(*box.MovieFragmentBox); moof.Trafs[0].Tfhd.TrackID != 1 {
					continue
				}
			}
			if _, ok := b.(*box.SegmentIndexBox); ok {
				continue
			}
			kept = append(kept, b)
		}
		require.NoError(t, r.ParseSegment(bytes.NewReader(box.EncodeBox(kept...)), 1, 1))
		_, err = r.GetSampleData(1, 1, 0, true)
		assert.ErrorIs(t, err, pkg.ErrInvalidContextID)
		_, err = r.GetSampleData(1, 1, 0, false)
		assert.ErrorIs(t, err, pkg.ErrInvalidContextID)
	})
}

func TestOMAFProperties(t *testing.T) {
	hvcC := &box.HEVCConfigurationBox{ConfigurationVersion: 1, ChromaFormat: 1, LengthSizeMinusOne: 3}
	povd := with(&box.ProjectedOmniVideoBox{},
		&box.ProjectionFormatBox{ProjectionType: box.ProjectionEquirectangular},
		&box.RotationBox{Yaw: 90 << 16},
	)
	rinf := with(&box.SchemeInfoBox{BoxType: box.TypeRINF},
		&box.OriginalFormatBox{DataFormat: box.TypeHVC1},
		&box.SchemeTypeBox{SchemeType: box.TypePODV},
		with(&box.SchemeInformationBox{}, povd),
	)
	resv := with(box.NewVisualSampleEntry(box.TypeRESV, 3840, 1920), hvcC, rinf)
	audio := with(mp4a(t), &box.ChannelLayoutBox{StreamStructure: box.ChannelStructured, DefinedLayout: 2})
	urim := with(&box.URIMetaSampleEntry{SampleEntryHeader: box.SampleEntryHeader{DataRefIndex: 1}},
		&box.URIBox{URI: "urn:mpeg:omaf:timed"}, &box.URIInitBox{Data: []byte{7}})
	s := encode(t, []writer.TrackMeta{
		{TrackID: 1, Timescale: 90000, Type: box.TypeVIDE, SampleEntry: resv},
		{TrackID: 2, Timescale: 48000, Type: box.TypeSOUN, SampleEntry: audio},
		{TrackID: 3, Timescale: 1000, Type: box.TypeMETA, SampleEntry: urim},
	}, func(w *writer.SegmentWriter) {
		require.NoError(t, w.Feed(1, writer.Frame{Data: []byte{0, 0, 0, 2, 0x26, 0x01}, Duration: 3000, IsIDR: true}))
		require.NoError(t, w.Feed(2, audioFrame(0)))
		require.NoError(t, w.Feed(3, writer.Frame{Data: []byte("cue"), Duration: 1000}))
	})
	require.Len(t, s.segments, 1)
	r := load(t, s)

	t.Run("video", func(t *testing.T) {
		prfr, err := r.GetProjectionFormat(1, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, box.ProjectionEquirectangular, prfr.ProjectionType)
		rotn, err := r.GetRotation(1, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, int32(90<<16), rotn.Yaw)
		_, err = r.GetRegionWisePacking(1, 1, 0)
		assert.ErrorIs(t, err, pkg.ErrPropertyNotFound)
		st, err := r.GetSchemeTypes(1, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, box.TypeHVC1, st.OriginalFormat)
		assert.Equal(t, box.TypePODV, st.Restricted.SchemeType)
		assert.Nil(t, st.Protected)
		info := r.GetTrackInformation()[0]
		assert.Equal(t, []box.BoxType{box.TypeRESV}, info.SampleEntryTypes)
		assert.NotZero(t, info.Features&FeatureVR)
		assert.Equal(t, codec.FamilyHEVC, info.SampleDescriptions[0].Family)
		data, err := r.GetSampleData(1, 1, 0, true)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 1, 0x26, 0x01}, data)
	})
	t.Run("audio", func(t *testing.T) {
		chnl, err := r.GetChannelLayout(1, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, uint8(2), chnl.DefinedLayout)
		_, err = r.GetSpatialAudio(1, 2, 0)
		assert.ErrorIs(t, err, pkg.ErrPropertyNotFound)
		assert.NotZero(t, r.GetTrackInformation()[1].Features&FeatureChannelLayout)
	})
	t.Run("timed metadata", func(t *testing.T) {
		meta, err := r.GetURIMeta(1, 3, 0)
		require.NoError(t, err)
		assert.Equal(t, "urn:mpeg:omaf:timed", meta.URI)
		assert.Equal(t, []byte{7}, meta.Init)
		info := r.GetTrackInformation()[2]
		assert.Equal(t, ContextMeta, info.Type)
		assert.NotZero(t, info.Features&FeatureURIMeta)
		_, err = r.GetDecoderConfiguration(1, 3, 0)
		assert.ErrorIs(t, err, pkg.ErrUnsupportedCodec)
	})
}

// TestForeignFragments reads an init segment and fragments produced by mp4ff.
func TestForeignFragments(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.Moov.Mvhd.NextTrackID = 2
	trak := mp4.CreateEmptyTrak(1, 48000, "audio", "und")
	init.Moov.AddChild(trak)
	init.Moov.Mvex.AddChild(mp4.CreateTrex(1))
	trak.SetAACDescriptor(2, 48000)
	var initData bytes.Buffer
	require.NoError(t, mp4.NewFtyp("iso6", 0, []string{"iso6", "dash"}).Encode(&initData))
	require.NoError(t, init.Moov.Encode(&initData))

	var segData bytes.Buffer
	for seq := range 2 {
		frag, err := mp4.CreateFragment(uint32(seq+1), 1)
		require.NoError(t, err)
		for i := seq * 10; i < seq*10+10; i++ {
			data := audioFrame(i).Data
			frag.AddFullSample(mp4.FullSample{
				Data:       data,
				DecodeTime: uint64(i * 1024),
				Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Dur: 1024, Size: uint32(len(data))},
			})
		}
		require.NoError(t, frag.Encode(&segData))
	}

	r := New(config.Reader{}, pkg.DiscardLogger())
	require.NoError(t, r.ParseInitSegment(bytes.NewReader(initData.Bytes()), 1))
	require.NoError(t, r.ParseSegment(bytes.NewReader(segData.Bytes()), 1, 1))
	infos := r.GetTrackInformation()
	require.Len(t, infos, 1)
	info := infos[0]
	assert.Equal(t, ContextAudio, info.Type)
	assert.Equal(t, box.TypeMP4A, info.SampleEntryTypes[0])
	require.NotNil(t, info.SampleDescriptions[0].AAC)
	assert.Equal(t, uint(2), info.SampleDescriptions[0].AAC.ObjectType)
	assert.Equal(t, 48000, info.SampleDescriptions[0].AAC.SampleRate)
	require.Len(t, info.Samples, 20)
	for i := range 20 {
		data, err := r.GetSampleData(1, 1, ItemID(i), false)
		require.NoError(t, err)
		assert.Equal(t, audioFrame(i).Data, data)
		ts, err := r.GetTimestampsTS(1, 1, ItemID(i))
		require.NoError(t, err)
		assert.Equal(t, []int64{int64(i * 1024)}, ts)
	}
}
