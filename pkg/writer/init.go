package writer

import (
	"io"
	"slices"

	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/util"
)

// brand pads a configured brand name to a four-character code.
func brand(s string) box.BoxType {
	b := box.BoxType{' ', ' ', ' ', ' '}
	copy(b[:], s)
	return b
}

// WriteInitSegment writes ftyp and an empty-tabled moov with one trak per
// track and an mvex carrying the trex defaults.
func (w *SegmentWriter) WriteInitSegment(out io.Writer) error {
	var compatible []box.BoxType
	for _, b := range w.cfg.Brands() {
		compatible = append(compatible, brand(b))
	}
	ftyp := box.NewFileTypeBox(box.TypeFTYP, brand(w.cfg.MajorBrand), 0, compatible...)
	_, err := out.Write(box.EncodeBox(ftyp, w.movie()))
	return err
}

func (w *SegmentWriter) movie() *box.MovieBox {
	moov := &box.MovieBox{}
	moov.AddChild(box.NewMovieHeaderBox(w.cfg.MovieTimescale, slices.Max(append([]uint32{0}, w.order...))+1))
	mvex := &box.MovieExtendsBox{}
	mvex.AddChild(&box.MovieExtendsHeaderBox{FragmentDuration: uint64(w.fedDuration())})
	for _, id := range w.order {
		moov.AddChild(w.trak(w.tracks[id].meta))
		mvex.AddChild(box.NewTrackExtendsBox(id))
	}
	moov.AddChild(mvex)
	return moov
}

// fedDuration is the longest track fed so far, in the movie timescale.
func (w *SegmentWriter) fedDuration() (d int64) {
	for _, t := range w.tracks {
		d = max(d, util.Rescale(t.dts, uint64(t.meta.Timescale), uint64(w.cfg.MovieTimescale)))
	}
	return
}

func (w *SegmentWriter) trak(meta TrackMeta) *box.TrackBox {
	trak := &box.TrackBox{}
	tkhd := box.NewTrackHeaderBox(meta.TrackID)
	tkhd.AlternateGroup = meta.AlternateGroup
	switch entry := meta.SampleEntry.(type) {
	case *box.VisualSampleEntry:
		tkhd.Width, tkhd.Height = uint32(entry.Width)<<16, uint32(entry.Height)<<16
	case *box.AudioSampleEntry:
		tkhd.Volume = 0x0100
	}
	trak.AddChild(tkhd)
	if len(meta.References) > 0 {
		types := make([]box.BoxType, 0, len(meta.References))
		for t := range meta.References {
			types = append(types, t)
		}
		slices.SortFunc(types, func(a, b box.BoxType) int { return slices.Compare(a[:], b[:]) })
		tref := &box.TrackReferenceBox{}
		for _, t := range types {
			tref.References = append(tref.References, &box.TrackReferenceTypeBox{ReferenceType: t, TrackIDs: meta.References[t]})
		}
		trak.AddChild(tref)
	}
	if len(meta.TrackGroups) > 0 {
		trak.AddChild(&box.TrackGroupBox{Groups: meta.TrackGroups})
	}
	if len(meta.EditList) > 0 {
		edts := &box.EditBox{}
		edts.AddChild(&box.EditListBox{FullBox: box.FullBox{Version: 1}, Entries: meta.EditList})
		trak.AddChild(edts)
	}

	mdhd := box.NewMediaHeaderBox(meta.Timescale)
	if len(meta.Language) == 3 {
		copy(mdhd.Language[:], meta.Language)
	}
	minf := &box.MediaInformationBox{}
	var name string
	switch meta.Type {
	case box.TypeVIDE:
		name = "VideoHandler"
		minf.AddChild(box.NewVideoMediaHeaderBox())
	case box.TypeSOUN:
		name = "SoundHandler"
		minf.AddChild(&box.SoundMediaHeaderBox{})
	default:
		name = "MetaHandler"
		minf.AddChild(&box.NullMediaHeaderBox{})
	}
	minf.AddChild(box.NewDataInformationBox())
	stbl := &box.SampleTableBox{}
	stbl.AddChild(&box.SampleDescriptionBox{Entries: []box.Box{meta.SampleEntry}})
	stbl.AddChild(&box.TimeToSampleBox{})
	stbl.AddChild(&box.SampleToChunkBox{})
	stbl.AddChild(&box.SampleSizeBox{})
	stbl.AddChild(&box.ChunkOffsetBox{})
	minf.AddChild(stbl)
	mdia := &box.MediaBox{}
	mdia.AddChild(mdhd)
	mdia.AddChild(box.NewHandlerBox(meta.Type, name))
	mdia.AddChild(minf)
	trak.AddChild(mdia)
	return trak
}
