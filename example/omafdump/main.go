package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/config"
	"m7s.live/omaf/pkg/reader"
)

func main() {
	conf := flag.String("c", "", "config file")
	initPath := flag.String("init", "", "init segment, or a whole mp4 file")
	samples := flag.Bool("samples", false, "list every sample")
	flag.Parse()

	var cfg config.Engine
	if err := config.ParseFile(&cfg, *conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := pkg.NewLogger(os.Stderr, cfg.Reader.LogLevel)
	if *initPath == "" {
		fmt.Fprintln(os.Stderr, "usage: omafdump -init init.mp4 [segment.m4s ...]")
		os.Exit(2)
	}
	r := reader.New(cfg.Reader, logger)
	f, err := os.Open(*initPath)
	if err != nil {
		logger.Error("open", "path", *initPath, "err", err)
		os.Exit(1)
	}
	defer f.Close()
	if err = r.ParseInitSegment(f, 1); err != nil {
		logger.Error("init segment", "path", *initPath, "err", err)
		os.Exit(1)
	}
	for i, path := range flag.Args() {
		seg, err := os.Open(path)
		if err != nil {
			logger.Error("open", "path", path, "err", err)
			os.Exit(1)
		}
		defer seg.Close()
		if err = r.ParseSegment(seg, 1, reader.SegmentID(i+1)); err != nil {
			logger.Error("segment", "path", path, "err", err)
			os.Exit(1)
		}
	}

	props, _ := r.GetFileProperties(1)
	fmt.Printf("brands %s %v\n", props.MajorBrand, props.CompatibleBrands)
	for _, info := range r.GetTrackInformation() {
		var types []string
		for _, t := range info.SampleEntryTypes {
			types = append(types, t.String())
		}
		fmt.Printf("track %d %s %s %dx%d timescale %d samples %d duration %.3fs features %#x\n",
			info.TrackID, info.Type, strings.Join(types, ","), info.Width, info.Height, info.Timescale,
			len(info.Samples), float64(info.DurationTS)/float64(info.Timescale), info.Features)
		for kind, ids := range info.References {
			fmt.Printf("  tref %s %v\n", kind, ids)
		}
		if prfr, err := r.GetProjectionFormat(1, info.TrackID, 0); err == nil {
			fmt.Printf("  projection %d\n", prfr.ProjectionType)
		}
		if index, _ := r.GetSegmentIndex(1, info.TrackID); len(index) > 0 {
			fmt.Printf("  sidx references %d\n", len(index))
		}
		if !*samples {
			continue
		}
		for _, s := range info.Samples {
			ts, _ := r.GetTimestampsTS(1, info.TrackID, s.ID)
			fmt.Printf("  item %d seg %d size %d dur %d sync %t pts %v %s\n", s.ID, s.Segment, s.Size, s.Duration, s.Sync, ts, s.Type)
		}
	}
}
