// Package extractor rebuilds samples of HEVC extractor tracks (hvc2/hev2).
//
//	class aligned(8) ExtractorHEVC () {
//	    NALUnitHeader();
//	    do {
//	        unsigned int(8) constructor_type;
//	        if( constructor_type == 0 )
//	            SampleConstructor();
//	        else if( constructor_type == 2 )
//	            InlineConstructor();
//	    } while( !EndOfNALUnit() )
//	}
package extractor

import (
	"fmt"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/util"
)

const (
	ConstructorSample uint8 = 0
	ConstructorInline uint8 = 2
)

// DefaultHeader is an extractor NAL unit header with layer 0 and temporal id 0.
var DefaultHeader = [2]byte{byte(codec.NAL_UNIT_EXTRACTOR) << 1, 1}

// Unit is a NAL or an *Extractor.
type Unit interface {
	unit()
}

// NAL is a plain NAL unit without its length field.
type NAL []byte

func (NAL) unit() {}

type Extractor struct {
	Header       [2]byte
	Constructors []Constructor
}

func (*Extractor) unit() {}

// Constructor is an InlineConstruct or a SampleConstruct.
type Constructor interface {
	constructor()
}

//	class aligned(8) InlineConstructor () {
//	    unsigned int(8) length;
//	    unsigned int(8) inline_data[length];
//	}
type InlineConstruct struct {
	Data []byte
}

func (InlineConstruct) constructor() {}

//	class aligned(8) SampleConstructor () {
//	    unsigned int(8) track_ref_index;
//	    signed int(8) sample_offset;
//	    unsigned int((lengthSizeMinusOne+1)*8) data_offset;
//	    unsigned int((lengthSizeMinusOne+1)*8) data_length;
//	}
type SampleConstruct struct {
	TrackRefIndex uint8 // 1-based into the scal references
	SampleOffset  int8
	DataOffset    uint32
	DataLength    uint32 // 0 copies up to the end of the referenced NAL
}

func (SampleConstruct) constructor() {}

// SampleResolver hands out the samples an extractor references.
type SampleResolver interface {
	ReferencedSample(trackRefIndex uint8, sampleOffset int8) ([]byte, error)
	// ReferencedSampleSize reports exact == false when size is an estimate.
	ReferencedSampleSize(trackRefIndex uint8, sampleOffset int8) (size int, exact bool, err error)
}

// ParseSample splits a length-prefixed sample into units, decoding every
// extractor NAL. Extractor payloads alias sample.
func ParseSample(sample []byte, lengthSize int) ([]Unit, error) {
	nalus, err := codec.SplitLengthPrefixed(sample, lengthSize)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(nalus))
	for _, nalu := range nalus {
		if len(nalu) < 2 || codec.ParseH265NALUType(nalu[0]) != codec.NAL_UNIT_EXTRACTOR {
			units = append(units, NAL(nalu))
			continue
		}
		e, err := parseExtractor(nalu, lengthSize)
		if err != nil {
			return nil, err
		}
		units = append(units, e)
	}
	return units, nil
}

func parseExtractor(nalu []byte, lengthSize int) (*Extractor, error) {
	e := &Extractor{Header: [2]byte(nalu[:2])}
	s := util.NewByteStream(nalu[2:])
	for s.Remaining() > 0 {
		switch t := s.ReadUint8(); t {
		case ConstructorSample:
			var c SampleConstruct
			c.TrackRefIndex = s.ReadUint8()
			c.SampleOffset = s.ReadInt8()
			c.DataOffset = uint32(s.ReadUintN(lengthSize))
			c.DataLength = uint32(s.ReadUintN(lengthSize))
			e.Constructors = append(e.Constructors, c)
		case ConstructorInline:
			n := int(s.ReadUint8())
			e.Constructors = append(e.Constructors, InlineConstruct{Data: s.ReadN(n)})
		default:
			return nil, fmt.Errorf("%w: extractor constructor type %d", pkg.ErrUnsupportedCodec, t)
		}
		if err := s.Err(); err != nil {
			return nil, fmt.Errorf("extractor: %w", err)
		}
	}
	return e, nil
}

// AppendNAL appends e as a length-prefixed NAL unit.
func (e *Extractor) AppendNAL(dst []byte, lengthSize int) ([]byte, error) {
	header := e.Header
	if header == [2]byte{} {
		header = DefaultHeader
	}
	var s util.ByteStream
	s.WriteBytes(header[:])
	for _, c := range e.Constructors {
		switch c := c.(type) {
		case InlineConstruct:
			if len(c.Data) > 0xFF {
				return dst, fmt.Errorf("%w: inline constructor of %d bytes", pkg.ErrOperationFailed, len(c.Data))
			}
			s.WriteUint8(ConstructorInline)
			s.WriteUint8(uint8(len(c.Data)))
			s.WriteBytes(c.Data)
		case SampleConstruct:
			s.WriteUint8(ConstructorSample)
			s.WriteUint8(c.TrackRefIndex)
			s.WriteInt8(c.SampleOffset)
			s.WriteUintN(uint64(c.DataOffset), lengthSize)
			s.WriteUintN(uint64(c.DataLength), lengthSize)
		}
	}
	return codec.AppendLengthPrefixed(dst, [][]byte{s.Bytes()}, lengthSize), nil
}

// RequiredSize is the output size of the units. When a referenced sample size
// is only an estimate the result carries a 10% margin.
func RequiredSize(units []Unit, lengthSize int, resolver SampleResolver) (int, error) {
	total, estimated := 0, false
	for _, u := range units {
		switch u := u.(type) {
		case NAL:
			total += lengthSize + len(u)
		case *Extractor:
			for _, c := range u.Constructors {
				switch c := c.(type) {
				case InlineConstruct:
					total += len(c.Data)
				case SampleConstruct:
					if c.DataLength != 0 {
						total += int(c.DataLength)
						continue
					}
					size, exact, err := resolver.ReferencedSampleSize(c.TrackRefIndex, c.SampleOffset)
					if err != nil {
						return 0, err
					}
					total += max(size-int(c.DataOffset), 0)
					estimated = estimated || !exact
				}
			}
		}
	}
	if estimated {
		total += total / 10
	}
	return total, nil
}

// Resolve writes the reconstructed sample into dst and returns its length.
// When dst is shorter than RequiredSize nothing is written and the error
// wraps pkg.ErrMemoryTooSmallBuffer with the required size returned. No
// error leaves dst partially written.
func Resolve(dst []byte, units []Unit, lengthSize int, resolver SampleResolver) (int, error) {
	required, err := RequiredSize(units, lengthSize, resolver)
	if err != nil {
		return 0, err
	}
	if len(dst) < required {
		return required, fmt.Errorf("%w: need %d bytes, have %d", pkg.ErrMemoryTooSmallBuffer, required, len(dst))
	}
	// every referenced range is bounded before dst is touched
	var ranges [][]byte
	actual := 0
	for _, u := range units {
		switch u := u.(type) {
		case NAL:
			actual += lengthSize + len(u)
		case *Extractor:
			for _, c := range u.Constructors {
				switch c := c.(type) {
				case InlineConstruct:
					actual += len(c.Data)
				case SampleConstruct:
					ref, err := resolver.ReferencedSample(c.TrackRefIndex, c.SampleOffset)
					if err != nil {
						return 0, err
					}
					data, err := referencedRange(ref, c, lengthSize)
					if err != nil {
						return 0, err
					}
					ranges = append(ranges, data)
					actual += len(data)
				}
			}
		}
	}
	if len(dst) < actual {
		return actual, fmt.Errorf("%w: need %d bytes, have %d", pkg.ErrMemoryTooSmallBuffer, actual, len(dst))
	}
	n := 0
	for _, u := range units {
		switch u := u.(type) {
		case NAL:
			util.PutBE(dst[n:n+lengthSize], len(u))
			n += lengthSize
			n += copy(dst[n:], u)
		case *Extractor:
			ranges = resolveExtractor(u, lengthSize, ranges, dst, &n)
		}
	}
	return n, nil
}

// resolveExtractor writes e at dst[*n:] using the pre-bounded ranges of its
// sample constructors and returns the ranges not yet consumed.
func resolveExtractor(e *Extractor, lengthSize int, ranges [][]byte, dst []byte, n *int) [][]byte {
	inline := -1 // length field of an inline NAL awaiting the next sample constructor
	var inlineLength int
	for _, c := range e.Constructors {
		switch c := c.(type) {
		case InlineConstruct:
			if len(c.Data) >= lengthSize {
				inline, inlineLength = *n, len(c.Data)-lengthSize
			} else {
				inline = -1
			}
			*n += copy(dst[*n:], c.Data)
		case SampleConstruct:
			data := ranges[0]
			ranges = ranges[1:]
			*n += copy(dst[*n:], data)
			if inline >= 0 {
				util.PutBE(dst[inline:inline+lengthSize], inlineLength+len(data))
				inline = -1
			}
		}
	}
	return ranges
}

// referencedRange bounds a sample constructor to the referenced sample. A zero
// data length extends to the end of the NAL unit holding data_offset.
func referencedRange(ref []byte, c SampleConstruct, lengthSize int) ([]byte, error) {
	offset := int(c.DataOffset)
	if offset > len(ref) {
		return nil, fmt.Errorf("%w: data offset %d beyond referenced sample of %d bytes", pkg.ErrTruncatedStream, offset, len(ref))
	}
	if c.DataLength != 0 {
		if int(c.DataLength) > len(ref)-offset {
			return nil, fmt.Errorf("%w: %d bytes at %d beyond referenced sample of %d bytes", pkg.ErrTruncatedStream, c.DataLength, offset, len(ref))
		}
		return ref[offset : offset+int(c.DataLength)], nil
	}
	for pos := 0; pos < len(ref); {
		if len(ref)-pos < lengthSize {
			break
		}
		end := pos + lengthSize + util.ReadBE[int](ref[pos:pos+lengthSize])
		if end > len(ref) {
			break
		}
		if offset < end {
			return ref[offset:end], nil
		}
		pos = end
	}
	return nil, fmt.Errorf("%w: no nal unit at %d in referenced sample", pkg.ErrTruncatedStream, offset)
}
