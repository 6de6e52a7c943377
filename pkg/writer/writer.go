// Package writer turns per-track frame streams into a fragmented OMAF DASH
// presentation: one init segment and a series of media segments.
package writer

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mcuadros/go-defaults"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/config"
	"m7s.live/omaf/pkg/util"
)

type track struct {
	meta TrackMeta
	// subTarget and segTarget are the configured durations in the track timescale.
	subTarget, segTarget int64
	dts                  int64
	cur                  *subsegment
	pending              []*subsegment
	elapsed              int64
	skipped              int
	segments             [][]*subsegment
	eos                  bool
}

func (t *track) closeSubsegment() {
	if t.cur == nil {
		return
	}
	t.pending = append(t.pending, t.cur)
	t.elapsed += t.cur.duration
	t.cur = nil
	// A sub-segment spanning several targets still closes a single segment.
	// Only the part past the last whole target carries over.
	if t.elapsed >= t.segTarget {
		t.commitSegment()
		t.elapsed %= t.segTarget
	}
}

func (t *track) commitSegment() {
	if len(t.pending) > 0 {
		t.segments = append(t.segments, t.pending)
		t.pending = nil
	}
}

func (t *track) finished() bool {
	return t.eos && len(t.segments) == 0
}

// SegmentWriter is not safe for concurrent use.
type SegmentWriter struct {
	*slog.Logger
	cfg      config.Writer
	tracks   map[uint32]*track
	order    []uint32
	sequence uint32
	fragment uint32
}

func New(cfg config.Writer, logger *slog.Logger, metas ...TrackMeta) (*SegmentWriter, error) {
	defaults.SetDefaults(&cfg)
	w := &SegmentWriter{
		Logger: pkg.OrDefault(logger).With("module", "writer"),
		cfg:    cfg,
		tracks: make(map[uint32]*track, len(metas)),
	}
	if cfg.SegmentDuration <= 0 || cfg.SubsegmentDuration <= 0 {
		return nil, fmt.Errorf("%w: segment %v and sub-segment %v durations must be positive", pkg.ErrOperationFailed, cfg.SegmentDuration, cfg.SubsegmentDuration)
	}
	for _, meta := range metas {
		if meta.TrackID == 0 || meta.Timescale == 0 || meta.SampleEntry == nil {
			return nil, fmt.Errorf("%w: track %d needs an id, a timescale and a sample entry", pkg.ErrOperationFailed, meta.TrackID)
		}
		if _, ok := w.tracks[meta.TrackID]; ok {
			return nil, fmt.Errorf("%w: duplicate track %d", pkg.ErrInvalidContextID, meta.TrackID)
		}
		w.tracks[meta.TrackID] = &track{
			meta:      meta,
			subTarget: timescaled(cfg.SubsegmentDuration, meta.Timescale),
			segTarget: max(timescaled(cfg.SegmentDuration, meta.Timescale), 1),
		}
		w.order = append(w.order, meta.TrackID)
	}
	slices.Sort(w.order)
	return w, nil
}

func timescaled(d time.Duration, timescale uint32) int64 {
	return util.Rescale(int64(d), uint64(time.Second), uint64(timescale))
}

// Feed appends a frame to a track. Sub-segments close on a sync frame once
// the sub-segment duration is reached, after SkipSubsegments such chances
// have been passed over.
func (w *SegmentWriter) Feed(trackID uint32, f Frame) error {
	t, ok := w.tracks[trackID]
	if !ok {
		return fmt.Errorf("%w: track %d", pkg.ErrInvalidContextID, trackID)
	}
	if t.eos {
		return fmt.Errorf("%w: track %d already ended", pkg.ErrOperationFailed, trackID)
	}
	sync := f.IsIDR || t.meta.Type != box.TypeVIDE
	if sync && t.cur != nil && t.cur.duration >= t.subTarget {
		if t.skipped < w.cfg.SkipSubsegments {
			t.skipped++
		} else {
			t.skipped = 0
			t.closeSubsegment()
		}
	}
	if t.cur == nil {
		t.cur = &subsegment{baseTime: t.dts}
	}
	var cto int64
	if len(f.CTS) > 0 {
		cto = f.CTS[0] - t.dts
	}
	t.cur.samples = append(t.cur.samples, sample{data: f.Data, duration: f.Duration, cto: cto, sync: sync})
	t.cur.duration += int64(f.Duration)
	t.dts += int64(f.Duration)
	return nil
}

// FeedEndOfStream closes whatever a track still buffers into a last segment.
func (w *SegmentWriter) FeedEndOfStream(trackID uint32) error {
	t, ok := w.tracks[trackID]
	if !ok {
		return fmt.Errorf("%w: track %d", pkg.ErrInvalidContextID, trackID)
	}
	if t.eos {
		return nil
	}
	if t.cur != nil {
		t.pending = append(t.pending, t.cur)
		t.cur = nil
	}
	t.commitSegment()
	t.eos = true
	w.Debug("end of stream", "track", trackID, "segments", len(t.segments))
	return nil
}

// ExtractSegments encodes the segments every track is ready for. Tracks are
// emitted in lock-step: the n-th segment holds the n-th committed segment of
// each track that has one, and nothing is emitted while an unfinished track
// has none committed.
func (w *SegmentWriter) ExtractSegments() ([]Segment, error) {
	var ret []Segment
	for {
		ready, some := true, false
		for _, id := range w.order {
			t := w.tracks[id]
			if len(t.segments) > 0 {
				some = true
			} else if !t.finished() {
				ready = false
			}
		}
		if !ready || !some {
			return ret, nil
		}
		var parts []trackSegment
		for _, id := range w.order {
			t := w.tracks[id]
			if len(t.segments) == 0 {
				continue
			}
			parts = append(parts, trackSegment{track: t, subs: t.segments[0]})
			t.segments = t.segments[1:]
		}
		w.sequence++
		seg, err := w.encodeSegment(parts)
		if err != nil {
			return ret, err
		}
		ret = append(ret, seg)
		w.Debug("segment", "sequence", seg.Sequence, "start", seg.Start.Seconds(), "duration", seg.Duration.Seconds(), "size", len(seg.Data))
	}
}
