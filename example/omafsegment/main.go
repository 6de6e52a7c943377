package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/config"
	"m7s.live/omaf/pkg/reader"
	"m7s.live/omaf/pkg/writer"
)

// omafsegment re-segments an mp4 file into a DASH init segment and media segments.
func main() {
	conf := flag.String("c", "", "config file")
	in := flag.String("i", "", "input mp4")
	out := flag.String("o", ".", "output directory")
	flag.Parse()

	var cfg config.Engine
	if err := config.ParseFile(&cfg, *conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := pkg.NewLogger(os.Stderr, cfg.Writer.LogLevel)
	if err := run(cfg, logger, *in, *out); err != nil {
		logger.Error("segment", "input", *in, "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Engine, logger *slog.Logger, in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	r := reader.New(cfg.Reader, logger)
	if err = r.ParseInitSegment(f, 1); err != nil {
		return err
	}
	infos := r.GetTrackInformation()
	var metas []writer.TrackMeta
	for _, info := range infos {
		if len(info.SampleDescriptions) == 0 {
			continue
		}
		meta := writer.TrackMeta{
			TrackID:        uint32(info.TrackID),
			Timescale:      info.Timescale,
			Type:           info.Handler,
			SampleEntry:    info.SampleDescriptions[0].Entry,
			AlternateGroup: info.AlternateGroup,
			References:     make(map[box.BoxType][]uint32),
		}
		for kind, ids := range info.References {
			for _, id := range ids {
				meta.References[kind] = append(meta.References[kind], uint32(id))
			}
		}
		metas = append(metas, meta)
	}
	w, err := writer.New(cfg.Writer, logger, metas...)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if len(info.SampleDescriptions) == 0 {
			continue
		}
		for _, s := range info.Samples {
			// raw bytes: extractor samples are re-emitted unresolved
			_, offset, length, err := r.GetSampleOffset(1, info.TrackID, s.ID)
			if err != nil {
				return err
			}
			data := make([]byte, length)
			if _, err = f.ReadAt(data, offset); err != nil {
				return err
			}
			ts, _ := r.GetTimestampsTS(1, info.TrackID, s.ID)
			idr := s.Sync && keyFrame(info.SampleDescriptions[0], data)
			if err = w.Feed(uint32(info.TrackID), writer.Frame{Data: data, CTS: ts, Duration: s.Duration, IsIDR: idr}); err != nil {
				return err
			}
		}
		if err = w.FeedEndOfStream(uint32(info.TrackID)); err != nil {
			return err
		}
	}
	segs, err := w.ExtractSegments()
	if err != nil {
		return err
	}
	init, err := os.Create(filepath.Join(out, "init.mp4"))
	if err != nil {
		return err
	}
	defer init.Close()
	if err = w.WriteInitSegment(init); err != nil {
		return err
	}
	for _, seg := range segs {
		name := filepath.Join(out, fmt.Sprintf("seg-%d.m4s", seg.Sequence))
		if err = os.WriteFile(name, seg.Data, 0o644); err != nil {
			return err
		}
		logger.Info("segment", "file", name, "start", seg.Start.Seconds(), "duration", seg.Duration.Seconds())
	}
	return nil
}

// keyFrame double-checks a sync sample against its NAL unit types, since
// flat files without stss mark every sample as sync.
func keyFrame(sd *reader.SampleDescription, data []byte) bool {
	switch sd.Family {
	case codec.FamilyAVC, codec.FamilyHEVC:
	default:
		return true
	}
	nalus, err := codec.SplitLengthPrefixed(data, sd.NALLengthSize)
	if err != nil {
		return false
	}
	if sd.Family == codec.FamilyAVC {
		return codec.H264IsKeyFrame(nalus)
	}
	return codec.H265IsKeyFrame(nalus)
}
