package reader

import (
	"time"

	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/util"
)

type (
	InitSegmentID uint32
	SegmentID     uint32
	// ContextID is the track id of the init segment.
	ContextID uint32
	// ItemID numbers the samples of a track contiguously across segments.
	ItemID uint32
	// Sequence orders segments by registration, not by segment number.
	Sequence uint64
)

type ContextType int

const (
	ContextUnknown ContextType = iota
	ContextVideo
	ContextAudio
	ContextMeta
)

func (t ContextType) String() string {
	switch t {
	case ContextVideo:
		return "video"
	case ContextAudio:
		return "audio"
	case ContextMeta:
		return "meta"
	}
	return "unknown"
}

func contextTypeOf(handler box.BoxType) ContextType {
	switch handler {
	case box.TypeVIDE:
		return ContextVideo
	case box.TypeSOUN:
		return ContextAudio
	case box.TypeMETA:
		return ContextMeta
	}
	return ContextUnknown
}

type SampleType int

const (
	OutputReference SampleType = iota
	OutputNonReference
	NonOutputReference
)

func (t SampleType) String() string {
	switch t {
	case OutputReference:
		return "output-reference"
	case OutputNonReference:
		return "output-non-reference"
	}
	return "non-output-reference"
}

type FileProperties struct {
	MajorBrand       box.BoxType
	MinorVersion     uint32
	CompatibleBrands []box.BoxType
}

// SchemeTypes is the scheme bookkeeping of a restricted or protected entry.
type SchemeTypes struct {
	OriginalFormat box.BoxType
	Restricted     *box.SchemeTypeBox // rinf/schm
	Protected      *box.SchemeTypeBox // sinf/schm
}

type URIMeta struct {
	URI  string
	Init []byte
}

// SampleDescription holds the records of one stsd entry.
type SampleDescription struct {
	Index          uint32 // 1-based sample description index
	Entry          box.Box
	Type           box.BoxType
	OriginalFormat box.BoxType
	Family         codec.Family
	Width, Height  uint32

	ParameterSets []box.ParameterSet
	NALLengthSize int
	AAC           *codec.AACConfig

	ProjectionFormat  *box.ProjectionFormatBox
	RegionWisePacking *box.RegionWisePackingBox
	Coverage          *box.CoverageInformationBox
	Rotation          *box.RotationBox
	StereoVideo       *box.StereoVideoBox
	Stereo3D          *box.StereoscopicVideoBox
	SphericalV1       *box.SphericalVideoV1
	SphericalV2       *box.SphericalVideoBox
	SchemeTypes       *SchemeTypes
	ChannelLayout     *box.ChannelLayoutBox
	SpatialAudio      *box.SpatialAudioBox
	URIMeta           *URIMeta
}

type TrackBasicInfo struct {
	Timescale       uint32
	Handler         box.BoxType
	SampleEntryType box.BoxType // of the first sample description
	Width, Height   uint32
	// SampleDescriptions is keyed by sample description index.
	SampleDescriptions map[uint32]*SampleDescription
}

type TrackProperties struct {
	AlternateGroup int16
	References     map[box.BoxType][]ContextID
	TrackGroups    map[box.BoxType][]uint32
	HasEditList    bool
	EditList       []box.EditListEntry
	Trex           *box.TrackExtendsBox
}

type SampleInfo struct {
	ID                     ItemID
	DataOffset             int64
	DataLength             uint32
	SampleDescriptionIndex uint32
	Width, Height          uint32
	Duration               uint32
	DecodeTimeTS           int64
	Type                   SampleType
	Flags                  box.SampleFlags
	CompositionTimes       []time.Duration
	CompositionTimesTS     []int64
}

// TrackDecInfo is the sample table of one track within one segment.
type TrackDecInfo struct {
	Samples          []SampleInfo
	ItemIDBase       ItemID
	DurationTS       int64
	BaseDecodeTimeTS int64
	// NextPTSTS is the decode time the following segment starts at.
	NextPTSTS int64
	PMap      util.OrderedMap[time.Duration, uint32]
	PMapTS    util.OrderedMap[int64, uint32]
}

func (d *TrackDecInfo) contains(item ItemID) bool {
	return item >= d.ItemIDBase && uint64(item-d.ItemIDBase) < uint64(len(d.Samples))
}

func (d *TrackDecInfo) lastItem() ItemID {
	return d.ItemIDBase + ItemID(len(d.Samples))
}

type Segment struct {
	ID       SegmentID
	Source   ByteSource
	Size     int64 // -1 when the source cannot tell
	Styp     *box.FileTypeBox
	Sequence Sequence
	Tracks   map[ContextID]*TrackDecInfo
}

// SegInfo is one sidx reference.
type SegInfo struct {
	SegmentID     SegmentID
	ReferenceID   uint32
	Timescale     uint32
	EarliestPTS   int64
	Duration      uint32
	DataOffset    int64
	DataSize      uint32
	IndexRef      bool // the reference points at another sidx
	StartsWithSAP bool
	SAPType       uint8
}

type InitSegment struct {
	ID             InitSegmentID
	FileProperties FileProperties
	MovieTimescale uint32
	Fragmented     bool
	TrackIDs       []ContextID // in moov order
	Basic          map[ContextID]*TrackBasicInfo
	Properties     map[ContextID]*TrackProperties
	Segments       map[SegmentID]*Segment
	Sequences      util.OrderedMap[Sequence, SegmentID]
	SegmentIndex   map[ContextID][]SegInfo
}

type TrackFeature uint32

const (
	FeatureVR TrackFeature = 1 << iota
	FeatureExtractor
	FeatureStereo
	FeatureSpherical
	FeatureEditList
	FeatureTileTrack
	FeatureChannelLayout
	FeatureSpatialAudio
	FeatureURIMeta
)

type SampleProperties struct {
	ID                     ItemID
	Segment                SegmentID
	Type                   SampleType
	SampleDescriptionIndex uint32
	Size                   uint32
	Duration               uint32
	Sync                   bool
}

type TrackInformation struct {
	InitSegmentID      InitSegmentID
	TrackID            ContextID
	AlternateGroup     int16
	Handler            box.BoxType
	Type               ContextType
	Timescale          uint32
	SampleEntryTypes   []box.BoxType
	Width, Height      uint32
	Features           TrackFeature
	References         map[box.BoxType][]ContextID
	TrackGroups        map[box.BoxType][]uint32
	SampleDescriptions []*SampleDescription
	Samples            []SampleProperties
	MaxSampleSize      uint32
	DurationTS         int64
}

// DecoderSpecificInfo is one parameter set, start-code prefixed for video.
type DecoderSpecificInfo struct {
	Kind box.ParameterSetKind
	Data []byte
}

type TimestampItem struct {
	Time time.Duration
	Item ItemID
}

type DecodingOrderItem struct {
	Item               ItemID
	DecodeTimeTS       int64
	PresentationTimeTS int64
}
