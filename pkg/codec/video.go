package codec

import "encoding/binary"

type FourCC [4]byte

var (
	FourCC_AVC1 = FourCC{'a', 'v', 'c', '1'}
	FourCC_AVC3 = FourCC{'a', 'v', 'c', '3'}
	FourCC_HVC1 = FourCC{'h', 'v', 'c', '1'}
	FourCC_HEV1 = FourCC{'h', 'e', 'v', '1'}
	FourCC_HVC2 = FourCC{'h', 'v', 'c', '2'}
	FourCC_HEV2 = FourCC{'h', 'e', 'v', '2'}
	FourCC_MP4A = FourCC{'m', 'p', '4', 'a'}
	FourCC_URIM = FourCC{'u', 'r', 'i', 'm'}
)

func (f FourCC) String() string {
	return string(f[:])
}

func (f FourCC) Uint32() uint32 {
	return binary.BigEndian.Uint32(f[:])
}

// Family groups sample entry types that share sample post-processing.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyAVC
	FamilyHEVC
	FamilyHEVCExtractor
	FamilyAAC
	FamilyURIMeta
)

func (f Family) String() string {
	switch f {
	case FamilyAVC:
		return "avc"
	case FamilyHEVC:
		return "hevc"
	case FamilyHEVCExtractor:
		return "hevc-extractor"
	case FamilyAAC:
		return "aac"
	case FamilyURIMeta:
		return "uri-meta"
	}
	return "unknown"
}

// IsVideo reports whether samples are length-prefixed NAL units.
func (f Family) IsVideo() bool {
	return f == FamilyAVC || f == FamilyHEVC || f == FamilyHEVCExtractor
}

// FamilyOf classifies a sample entry type. Restricted and protected entries
// must be resolved to their original format first.
func FamilyOf(sampleEntry FourCC) Family {
	switch sampleEntry {
	case FourCC_AVC1, FourCC_AVC3:
		return FamilyAVC
	case FourCC_HVC1, FourCC_HEV1:
		return FamilyHEVC
	case FourCC_HVC2, FourCC_HEV2:
		return FamilyHEVCExtractor
	case FourCC_MP4A:
		return FamilyAAC
	case FourCC_URIM:
		return FamilyURIMeta
	}
	return FamilyUnknown
}
