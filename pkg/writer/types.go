package writer

import (
	"math"

	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/util"
)

// TrackMeta describes one output track. Type is the handler: vide, soun or meta.
type TrackMeta struct {
	TrackID        uint32
	Timescale      uint32
	Type           box.BoxType
	SampleEntry    box.Box
	AlternateGroup int16
	References     map[box.BoxType][]uint32
	TrackGroups    []*box.TrackGroupTypeBox
	Language       string // ISO 639-2/T, und when empty
	EditList       []box.EditListEntry
}

// Frame is one access unit in the sample entry's framing. CTS holds its
// presentation times in the track timescale; the decode time is the sum of
// the durations fed before it.
type Frame struct {
	Data     []byte
	CTS      []int64
	Duration uint32
	IsIDR    bool
}

// Segment is one encoded media segment: styp, sidx boxes, then moof/mdat pairs.
type Segment struct {
	Sequence uint32
	Start    util.Fraction
	Duration util.Fraction
	Data     []byte
}

type sample struct {
	data     []byte
	duration uint32
	cto      int64
	sync     bool
}

type subsegment struct {
	baseTime int64
	duration int64
	samples  []sample
}

func (s *subsegment) earliestPTS() int64 {
	ept := s.baseTime + s.samples[0].cto
	dts := s.baseTime
	for _, smp := range s.samples {
		ept = min(ept, dts+smp.cto)
		dts += int64(smp.duration)
	}
	return ept
}

// presentationEnd is the latest composition time plus that sample's duration.
func (s *subsegment) presentationEnd() int64 {
	end := int64(math.MinInt64)
	dts := s.baseTime
	for _, smp := range s.samples {
		end = max(end, dts+smp.cto+int64(smp.duration))
		dts += int64(smp.duration)
	}
	return end
}
