package codec

import (
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/util"
)

func validLengthSize(lengthSize int) error {
	switch lengthSize {
	case 1, 2, 4:
		return nil
	}
	return fmt.Errorf("%w: nal length size %d", pkg.ErrUnsupportedCodec, lengthSize)
}

// SplitLengthPrefixed splits an ISOBMFF video sample into its NAL units. The
// returned slices alias sample.
func SplitLengthPrefixed(sample []byte, lengthSize int) (nalus [][]byte, err error) {
	if err = validLengthSize(lengthSize); err != nil {
		return
	}
	for pos := 0; pos < len(sample); {
		if len(sample)-pos < lengthSize {
			return nil, fmt.Errorf("%w: nal length field at %d", pkg.ErrTruncatedStream, pos)
		}
		n := util.ReadBE[int](sample[pos : pos+lengthSize])
		pos += lengthSize
		if n > len(sample)-pos {
			return nil, fmt.Errorf("%w: nal of %d bytes at %d, %d left", pkg.ErrTruncatedStream, n, pos, len(sample)-pos)
		}
		nalus = append(nalus, sample[pos:pos+n])
		pos += n
	}
	return
}

func AppendLengthPrefixed(dst []byte, nalus [][]byte, lengthSize int) []byte {
	for _, nalu := range nalus {
		dst = util.AppendBE(dst, len(nalu), lengthSize)
		dst = append(dst, nalu...)
	}
	return dst
}

// ToAnnexB rewrites a length-prefixed sample with start codes.
func ToAnnexB(sample []byte, lengthSize int) ([]byte, error) {
	nalus, err := SplitLengthPrefixed(sample, lengthSize)
	if err != nil {
		return nil, err
	}
	return h264.AnnexBMarshal(nalus)
}

// AnnexBUnits start-codes every unit separately, the layout decoders expect
// for parameter sets.
func AnnexBUnits(units [][]byte) ([][]byte, error) {
	ret := make([][]byte, 0, len(units))
	for _, u := range units {
		b, err := h264.AnnexBMarshal([][]byte{u})
		if err != nil {
			return nil, err
		}
		ret = append(ret, b)
	}
	return ret, nil
}
