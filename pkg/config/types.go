package config

import "time"

type Reader struct {
	MaxAtomSize int64  `default:"268435456" desc:"largest non-mdat atom read into memory"`
	LogLevel    string `default:"info" desc:"trace, debug, info, warn or error"`
}

type Writer struct {
	SegmentDuration    time.Duration `default:"2s" desc:"target media segment duration"`
	SubsegmentDuration time.Duration `default:"1s" desc:"target sub-segment (moof+mdat) duration"`
	SkipSubsegments    int           `default:"0" desc:"eligible IDR boundaries to skip before closing a sub-segment"`
	MajorBrand         string        `default:"iso6" desc:"ftyp major brand"`
	CompatibleBrands   []string      `desc:"ftyp compatible brands, iso6 dash msdh msix when empty"`
	SegmentBrand       string        `default:"msdh" desc:"styp major brand"`
	NoSidx             bool          `desc:"leave out the per-track sidx boxes of every segment"`
	MovieTimescale     uint32        `default:"1000" desc:"mvhd timescale"`
	LogLevel           string        `default:"info" desc:"trace, debug, info, warn or error"`
}

// Engine is the top-level document of the example tools.
type Engine struct {
	Reader Reader `yaml:"reader"`
	Writer Writer `yaml:"writer"`
}

var DefaultCompatibleBrands = []string{"iso6", "dash", "msdh", "msix"}

func (w *Writer) Brands() []string {
	if len(w.CompatibleBrands) == 0 {
		return DefaultCompatibleBrands
	}
	return w.CompatibleBrands
}
