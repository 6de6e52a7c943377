package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
)

func uniform(n int, duration uint32) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i].Duration = duration
	}
	return samples
}

func TestNoEdits(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		d, err := New(uniform(3, 3003), Params{MediaTimescale: 90000})
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 3003, 6006}, d.DecodeTimes())
		assert.Equal(t, []uint32{3003, 3003, 3003}, d.Durations())
		assert.Equal(t, []int64{0, 3003, 6006}, d.PMapTS.Keys())
		assert.Equal(t, []time.Duration{0, 33366666, 66733333}, d.PMap.Keys())
		assert.EqualValues(t, 9009, d.NextDecodeTime())
		assert.EqualValues(t, 9009, d.TotalDuration())
	})
}

func TestContinuesFromBase(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		first, err := New(uniform(3, 1024), Params{MediaTimescale: 48000})
		require.NoError(t, err)
		second, err := New(uniform(2, 1024), Params{MediaTimescale: 48000, BaseDecodeTime: first.NextDecodeTime()})
		require.NoError(t, err)
		assert.Equal(t, []int64{3072, 4096}, second.DecodeTimes())
		assert.EqualValues(t, 2048, second.TotalDuration())
		assert.EqualValues(t, 5120, second.NextDecodeTime())
		k, v, ok := second.PMapTS.First()
		require.True(t, ok)
		assert.EqualValues(t, 3072, k)
		assert.EqualValues(t, 0, v)
	})
}

func bframes() []Sample {
	// I P B B in decode order
	return []Sample{
		{Duration: 1000, CompositionOffset: 1000},
		{Duration: 1000, CompositionOffset: 3000},
		{Duration: 1000, CompositionOffset: 0},
		{Duration: 1000, CompositionOffset: 0},
	}
}

func TestCompositionOffsets(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		d, err := New(bframes(), Params{MediaTimescale: 1000})
		require.NoError(t, err)
		var order []uint32
		d.PMapTS.Range(func(_ int64, i uint32) bool {
			order = append(order, i)
			return true
		})
		assert.Equal(t, []int64{1000, 2000, 3000, 4000}, d.PMapTS.Keys())
		assert.Equal(t, []uint32{0, 2, 3, 1}, order)
	})
}

func TestEditList(t *testing.T) {
	t.Run("shift", func(t *testing.T) {
		d, err := New(bframes(), Params{
			MediaTimescale: 1000,
			MovieTimescale: 1000,
			EditList:       []box.EditListEntry{{MediaTime: 1000, MediaRateInteger: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 1000, 2000, 3000}, d.PMapTS.Keys())
		v, _ := d.PMapTS.Get(0)
		assert.EqualValues(t, 0, v)
		v, _ = d.PMapTS.Get(3000)
		assert.EqualValues(t, 1, v)
	})
	t.Run("empty then normal", func(t *testing.T) {
		d, err := New(uniform(3, 3003), Params{
			MediaTimescale: 90000,
			MovieTimescale: 1000,
			EditList: []box.EditListEntry{
				{SegmentDuration: 500, MediaTime: -1, MediaRateInteger: 1},
				{SegmentDuration: 100, MediaTime: 0, MediaRateInteger: 1},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{45000, 48003, 51006}, d.PMapTS.Keys())
		k, _, _ := d.PMap.First()
		assert.Equal(t, 500*time.Millisecond, k)
	})
	t.Run("truncated", func(t *testing.T) {
		d, err := New(uniform(3, 3003), Params{
			MediaTimescale: 90000,
			MovieTimescale: 1000,
			EditList:       []box.EditListEntry{{SegmentDuration: 50, MediaTime: 0, MediaRateInteger: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 3003}, d.PMapTS.Keys())
		ts, ns := d.CompositionTimes()
		assert.Empty(t, ts[2])
		assert.Empty(t, ns[2])
		assert.Equal(t, []int64{3003}, ts[1])
	})
	t.Run("dwell", func(t *testing.T) {
		d, err := New(uniform(3, 3003), Params{
			MediaTimescale: 90000,
			MovieTimescale: 1000,
			EditList:       []box.EditListEntry{{SegmentDuration: 1000, MediaTime: 4000}},
		})
		require.NoError(t, err)
		require.Equal(t, 1, d.PMapTS.Len())
		k, v, _ := d.PMapTS.First()
		assert.EqualValues(t, 0, k)
		assert.EqualValues(t, 1, v)
	})
	t.Run("straddle", func(t *testing.T) {
		d, err := New(uniform(3, 1000), Params{
			MediaTimescale: 1000,
			MovieTimescale: 600,
			EditList:       []box.EditListEntry{{MediaTime: 1500, MediaRateInteger: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 500}, d.PMapTS.Keys())
		_, v, _ := d.PMapTS.First()
		assert.EqualValues(t, 1, v)
	})
}

func TestMonotonic(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		d, err := New(uniform(300, 3003), Params{MediaTimescale: 90000, BaseDecodeTime: 1 << 40})
		require.NoError(t, err)
		ts, ns := d.CompositionTimes()
		for i := 1; i < len(ts); i++ {
			assert.Greater(t, ts[i][0], ts[i-1][0])
			assert.Greater(t, ns[i][0], ns[i-1][0])
		}
	})
}

func TestFromTables(t *testing.T) {
	t.Run("stts ctts", func(t *testing.T) {
		stts := &box.TimeToSampleBox{Entries: []box.STTSEntry{{SampleCount: 2, SampleDelta: 10}, {SampleCount: 1, SampleDelta: 20}}}
		ctts := &box.CompositionOffsetBox{FullBox: box.FullBox{Version: 1}, Entries: []box.CTTSEntry{{SampleCount: 1, SampleOffset: 0xFFFFFFF6}}}
		samples := FromSampleTable(stts, ctts, 4)
		assert.Equal(t, []Sample{{10, -10}, {10, 0}, {20, 0}, {0, 0}}, samples)
	})
	t.Run("trun", func(t *testing.T) {
		trun := &box.TrackRunBox{
			FullBox: box.FullBox{Version: 1, Flags: box.TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME},
			Entries: []box.TrunEntry{{CompositionTimeOffset: 0xFFFFFC18}, {CompositionTimeOffset: 1000}},
		}
		assert.Equal(t, []Sample{{512, -1000}, {512, 1000}}, FromTrackRun(trun, 512))
		trun.Flags |= box.TR_FLAG_DATA_SAMPLE_DURATION
		trun.Entries[1].Duration = 7
		assert.EqualValues(t, 7, FromTrackRun(trun, 512)[1].Duration)
	})
}

func TestInvalidTimescale(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		_, err := New(uniform(1, 1), Params{})
		assert.ErrorIs(t, err, pkg.ErrOperationFailed)
		_, err = New(uniform(1, 1), Params{MediaTimescale: 1, EditList: []box.EditListEntry{{MediaTime: 0}}})
		assert.ErrorIs(t, err, pkg.ErrOperationFailed)
	})
}
