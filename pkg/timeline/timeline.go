package timeline

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/util"
)

// Sample is the timing of one sample in decode order.
type Sample struct {
	Duration          uint32
	CompositionOffset int64
}

// FromSampleTable unravels the stts and ctts run-length tables into count
// samples. Samples past the end of stts get a zero duration, samples past the
// end of ctts a zero offset.
func FromSampleTable(stts *box.TimeToSampleBox, ctts *box.CompositionOffsetBox, count uint32) []Sample {
	samples := make([]Sample, count)
	if stts != nil {
		i := 0
		for _, entry := range stts.Entries {
			for j := uint32(0); j < entry.SampleCount && i < len(samples); j++ {
				samples[i].Duration = entry.SampleDelta
				i++
			}
		}
	}
	if ctts != nil {
		i := 0
		for e, entry := range ctts.Entries {
			offset := ctts.Offset(e)
			for j := uint32(0); j < entry.SampleCount && i < len(samples); j++ {
				samples[i].CompositionOffset = offset
				i++
			}
		}
	}
	return samples
}

// FromTrackRun reads the per-sample timing of one trun. defaultDuration is the
// tfhd or trex default used when the run carries no durations.
func FromTrackRun(trun *box.TrackRunBox, defaultDuration uint32) []Sample {
	samples := make([]Sample, len(trun.Entries))
	for i, entry := range trun.Entries {
		samples[i].Duration = defaultDuration
		if trun.Has(box.TR_FLAG_DATA_SAMPLE_DURATION) {
			samples[i].Duration = entry.Duration
		}
		if trun.Has(box.TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME) {
			samples[i].CompositionOffset = trun.CompositionOffset(i)
		}
	}
	return samples
}

type Params struct {
	MediaTimescale uint32
	// MovieTimescale is the unit of edit list segment durations.
	MovieTimescale uint32
	BaseDecodeTime int64
	EditList       []box.EditListEntry
}

// DecodePts maps presentation times to sample indices for one run of samples.
type DecodePts struct {
	PMapTS util.OrderedMap[int64, uint32]
	PMap   util.OrderedMap[time.Duration, uint32]

	decodeTimes []int64
	durations   []uint32
	base, next  int64
}

func New(samples []Sample, p Params) (*DecodePts, error) {
	if p.MediaTimescale == 0 {
		return nil, fmt.Errorf("%w: media timescale is 0", pkg.ErrOperationFailed)
	}
	d := &DecodePts{
		decodeTimes: make([]int64, len(samples)),
		durations:   make([]uint32, len(samples)),
		base:        p.BaseDecodeTime,
	}
	pts := make([]int64, len(samples))
	t := p.BaseDecodeTime
	for i, sample := range samples {
		d.decodeTimes[i] = t
		d.durations[i] = sample.Duration
		pts[i] = t + sample.CompositionOffset
		t += int64(sample.Duration)
	}
	d.next = t
	if len(p.EditList) == 0 {
		for i, v := range pts {
			d.PMapTS.Set(v, uint32(i))
			d.PMap.Set(time.Duration(util.Rescale(v, uint64(p.MediaTimescale), uint64(time.Second))), uint32(i))
		}
		return d, nil
	}
	if p.MovieTimescale == 0 {
		return nil, fmt.Errorf("%w: edit list with movie timescale 0", pkg.ErrOperationFailed)
	}
	return d, d.applyEdits(pts, p)
}

// applyEdits walks the edit list in units of lcm(movie, media) timescale so
// segment durations and media times share one denominator.
func (d *DecodePts) applyEdits(pts []int64, p Params) error {
	movie, media := int64(p.MovieTimescale), int64(p.MediaTimescale)
	if media/util.GCD(movie, media) > math.MaxInt64/movie {
		return fmt.Errorf("%w: timescales %d and %d have no common unit", pkg.ErrOperationFailed, movie, media)
	}
	unit := util.LCM(movie, media)
	movieMul, mediaMul := unit/movie, unit/media
	order := make([]int, len(pts))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(pts[a], pts[b])
	})
	present := func(at int64, i int) {
		d.PMapTS.Set(util.Rescale(at, uint64(unit), uint64(media)), uint32(i))
		d.PMap.Set(time.Duration(util.Rescale(at, uint64(unit), uint64(time.Second))), uint32(i))
	}
	var cursor int64
	for _, edit := range p.EditList {
		duration := int64(edit.SegmentDuration) * movieMul
		switch {
		case edit.MediaTime == -1:
			cursor += duration
		case edit.MediaRateInteger == 0:
			// dwell: the sample covering media_time holds for the whole edit
			at := edit.MediaTime
			for _, i := range order {
				if pts[i] > at {
					break
				}
				if pts[i]+int64(d.durations[i]) > at {
					present(cursor, i)
					break
				}
			}
			cursor += duration
		default:
			start := edit.MediaTime * mediaMul
			end := int64(math.MaxInt64)
			if edit.SegmentDuration != 0 {
				end = start + duration
			}
			last := start
			for _, i := range order {
				from, to := pts[i]*mediaMul, (pts[i]+int64(d.durations[i]))*mediaMul
				if from >= end {
					break
				}
				if to <= start && from < start {
					continue
				}
				if from < start {
					from = start
				}
				present(cursor+from-start, i)
				last = max(last, min(to, end))
			}
			if edit.SegmentDuration == 0 {
				cursor += last - start
			} else {
				cursor += duration
			}
		}
	}
	return nil
}

// DecodeTimes are in the media timescale, starting at the base decode time.
func (d *DecodePts) DecodeTimes() []int64 {
	return d.decodeTimes
}

func (d *DecodePts) Durations() []uint32 {
	return d.durations
}

// NextDecodeTime is where a following run continues the timeline.
func (d *DecodePts) NextDecodeTime() int64 {
	return d.next
}

// TotalDuration is the sum of sample durations in the media timescale.
func (d *DecodePts) TotalDuration() int64 {
	return d.next - d.base
}

// CompositionTimes lists the presentation times of every sample, in the media
// timescale and in nanoseconds. A sample dropped by the edit list has none.
func (d *DecodePts) CompositionTimes() (ts [][]int64, ns [][]time.Duration) {
	ts = make([][]int64, len(d.decodeTimes))
	ns = make([][]time.Duration, len(d.decodeTimes))
	d.PMapTS.Range(func(t int64, i uint32) bool {
		ts[i] = append(ts[i], t)
		return true
	})
	d.PMap.Range(func(t time.Duration, i uint32) bool {
		ns[i] = append(ns[i], t)
		return true
	})
	return
}
