// Package reader parses OMAF DASH init and media segments into per-track
// sample tables and serves sample data and metadata out of them.
package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcuadros/go-defaults"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/config"
)

type contextKey struct {
	init  InitSegmentID
	track ContextID
}

// Reader is not safe for concurrent use.
type Reader struct {
	*slog.Logger
	cfg      config.Reader
	inits    map[InitSegmentID]*InitSegment
	contexts map[contextKey]ContextType
	sequence Sequence
}

func New(cfg config.Reader, logger *slog.Logger) *Reader {
	defaults.SetDefaults(&cfg)
	logger = pkg.OrDefault(logger).With("module", "reader")
	box.SetLogger(logger)
	return &Reader{
		Logger:   logger,
		cfg:      cfg,
		inits:    make(map[InitSegmentID]*InitSegment),
		contexts: make(map[contextKey]ContextType),
	}
}

type parseOptions struct {
	earliestPTS *int64
}

type ParseOption func(*parseOptions)

// WithEarliestPTS sets the decode time, in media timescale, of the first
// sample of tracks whose fragments carry no tfdt.
func WithEarliestPTS(ts int64) ParseOption {
	return func(o *parseOptions) {
		o.earliestPTS = &ts
	}
}

func (r *Reader) walk(src ByteSource) (tops []*topBox, size int64, err error) {
	size = sourceSize(src)
	w := &walker{src: src, size: size, maxAtom: r.cfg.MaxAtomSize}
	for {
		top, err := w.next()
		if errors.Is(err, io.EOF) {
			return tops, size, nil
		}
		if err != nil {
			return nil, size, err
		}
		tops = append(tops, top)
	}
}

// ParseInitSegment reads ftyp and moov from src. Samples described by the
// moov sample tables, and any fragments following it, become segment 0.
func (r *Reader) ParseInitSegment(src ByteSource, id InitSegmentID) error {
	if _, ok := r.inits[id]; ok {
		return fmt.Errorf("%w: id %d already in use", pkg.ErrInvalidInitSegment, id)
	}
	tops, size, err := r.walk(src)
	if err != nil {
		return err
	}
	var ftyp *box.FileTypeBox
	var moov *box.MovieBox
	var rest []*topBox
	for _, top := range tops {
		switch b := top.Box.(type) {
		case *box.FileTypeBox:
			if b.BoxType != box.TypeFTYP {
				rest = append(rest, top)
				continue
			}
			if ftyp != nil {
				return fmt.Errorf("%w: second ftyp at offset %d", pkg.ErrInvalidFileHeader, top.Offset)
			}
			ftyp = b
		case *box.MovieBox:
			if moov != nil {
				return fmt.Errorf("%w: second moov at offset %d", pkg.ErrInvalidFileHeader, top.Offset)
			}
			moov = b
		default:
			rest = append(rest, top)
		}
	}
	if ftyp == nil || moov == nil {
		return fmt.Errorf("%w: ftyp and moov are required", pkg.ErrInvalidFileHeader)
	}
	init, err := r.buildInit(id, ftyp, moov)
	if err != nil {
		return err
	}
	seg := &Segment{Source: src, Size: size, Tracks: make(map[ContextID]*TrackDecInfo)}
	st := newFragmentState(init, seg, nil)
	for i, trak := range moov.Traks {
		track := init.TrackIDs[i]
		dec, err := r.readSampleTable(init, track, trak.Stbl(), size)
		if err != nil {
			return err
		}
		if dec != nil {
			seg.Tracks[track] = dec
			st.next[track] = dec.NextPTSTS
		}
	}
	if err = r.parseFragments(st, rest); err != nil {
		return err
	}
	for _, track := range init.TrackIDs {
		r.contexts[contextKey{id, track}] = contextTypeOf(init.Basic[track].Handler)
	}
	r.inits[id] = init
	if len(seg.Tracks) > 0 {
		r.commit(st)
	}
	r.Debug("init segment", "id", id, "tracks", len(init.TrackIDs), "fragmented", init.Fragmented, "samples", len(seg.Tracks) > 0)
	return nil
}

// ParseSegment reads the styp, sidx, moof and mdat boxes of a media segment
// belonging to a registered init segment.
func (r *Reader) ParseSegment(src ByteSource, initID InitSegmentID, id SegmentID, opts ...ParseOption) error {
	init, ok := r.inits[initID]
	if !ok {
		return fmt.Errorf("%w: unknown id %d", pkg.ErrInvalidInitSegment, initID)
	}
	if _, ok = init.Segments[id]; ok {
		return fmt.Errorf("%w: id %d already in use", pkg.ErrInvalidSegment, id)
	}
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}
	tops, size, err := r.walk(src)
	if err != nil {
		return err
	}
	seg := &Segment{ID: id, Source: src, Size: size, Tracks: make(map[ContextID]*TrackDecInfo)}
	st := newFragmentState(init, seg, o.earliestPTS)
	if err = r.parseFragments(st, tops); err != nil {
		return err
	}
	r.commit(st)
	r.Debug("segment", "init", initID, "id", id, "sequence", seg.Sequence, "tracks", len(seg.Tracks))
	return nil
}

// commit numbers the items of the parsed segment and makes it visible.
func (r *Reader) commit(st *fragmentState) {
	init, seg := st.init, st.seg
	for track, dec := range seg.Tracks {
		if prev := st.previous(track); prev != nil {
			dec.ItemIDBase = prev.lastItem()
		}
		for i := range dec.Samples {
			dec.Samples[i].ID = dec.ItemIDBase + ItemID(i)
		}
	}
	r.sequence++
	seg.Sequence = r.sequence
	init.Segments[seg.ID] = seg
	init.Sequences.Set(seg.Sequence, seg.ID)
	for track, infos := range st.index {
		init.SegmentIndex[track] = append(init.SegmentIndex[track], infos...)
	}
}

// DisableInitSegment drops an init segment with every segment parsed against it.
func (r *Reader) DisableInitSegment(id InitSegmentID) error {
	init, ok := r.inits[id]
	if !ok {
		return fmt.Errorf("%w: unknown id %d", pkg.ErrInvalidInitSegment, id)
	}
	for _, track := range init.TrackIDs {
		delete(r.contexts, contextKey{id, track})
	}
	delete(r.inits, id)
	return nil
}

// DisableSegment drops one segment. Item ids of later segments keep their values.
func (r *Reader) DisableSegment(initID InitSegmentID, id SegmentID) error {
	init, ok := r.inits[initID]
	if !ok {
		return fmt.Errorf("%w: unknown id %d", pkg.ErrInvalidInitSegment, initID)
	}
	seg, ok := init.Segments[id]
	if !ok {
		return fmt.Errorf("%w: unknown id %d", pkg.ErrInvalidSegment, id)
	}
	delete(init.Segments, id)
	init.Sequences.Delete(seg.Sequence)
	for track, infos := range init.SegmentIndex {
		kept := infos[:0]
		for _, info := range infos {
			if info.SegmentID != id {
				kept = append(kept, info)
			}
		}
		if len(kept) == 0 {
			delete(init.SegmentIndex, track)
		} else {
			init.SegmentIndex[track] = kept
		}
	}
	return nil
}

// segments lists the segments of init in registration order.
func (init *InitSegment) segments() []*Segment {
	ret := make([]*Segment, 0, init.Sequences.Len())
	init.Sequences.Range(func(_ Sequence, id SegmentID) bool {
		ret = append(ret, init.Segments[id])
		return true
	})
	return ret
}
