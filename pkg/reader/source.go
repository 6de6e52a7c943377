package reader

import (
	"errors"
	"fmt"
	"io"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/util"
)

// ByteSource is the caller-owned stream a segment is parsed from. The engine
// only reads and seeks it; sample data is read back from it on demand.
type ByteSource interface {
	io.Reader
	io.Seeker
}

// Sizer is an optional ByteSource method reporting the stream size, -1 if unknown.
type Sizer interface {
	Size() int64
}

func sourceSize(src ByteSource) int64 {
	if s, ok := src.(Sizer); ok {
		return s.Size()
	}
	cur, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := src.Seek(0, io.SeekEnd)
	if _, serr := src.Seek(cur, io.SeekStart); err != nil || serr != nil {
		return -1
	}
	return end
}

func readAt(src ByteSource, offset int64, n int) ([]byte, error) {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to %d: %v", pkg.ErrOperationFailed, offset, err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(src, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %d bytes at offset %d", pkg.ErrTruncatedStream, n, offset)
		}
		return nil, err
	}
	return b, nil
}

// topBox is a top-level atom. Box is nil for mdat, whose payload stays in the source.
type topBox struct {
	util.AtomHeader
	Box box.Box
}

func (b *topBox) End() int64 {
	return b.Offset + int64(b.Size)
}

// walker reads the top-level atoms of a source one at a time.
type walker struct {
	src     ByteSource
	size    int64
	offset  int64
	maxAtom int64
}

func (w *walker) header() (hdr util.AtomHeader, err error) {
	hdr.Offset = w.offset
	if _, err = w.src.Seek(w.offset, io.SeekStart); err != nil {
		return hdr, fmt.Errorf("%w: seek to %d: %v", pkg.ErrOperationFailed, w.offset, err)
	}
	var b [util.LargeAtomLen]byte
	n, err := io.ReadFull(w.src, b[:util.BasicAtomLen])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return hdr, io.EOF
		}
		return hdr, fmt.Errorf("%w: atom header at offset %d", pkg.ErrTruncatedStream, w.offset)
	}
	hdr.HeaderSize = util.BasicAtomLen
	hdr.Size = uint64(util.ReadBE[uint32](b[:4]))
	hdr.Type = [4]byte(b[4:8])
	switch hdr.Size {
	case 1:
		if _, err = io.ReadFull(w.src, b[8:]); err != nil {
			return hdr, fmt.Errorf("%w: large size of %q at offset %d", pkg.ErrTruncatedStream, hdr.Type[:], w.offset)
		}
		hdr.Size = util.ReadBE[uint64](b[8:])
		hdr.HeaderSize = util.LargeAtomLen
	case 0:
		if w.size < 0 {
			return hdr, fmt.Errorf("%w: %q extends to the end of a stream of unknown size", pkg.ErrInvalidSize, hdr.Type[:])
		}
		hdr.Size = uint64(w.size - w.offset)
	}
	if hdr.Size < uint64(hdr.HeaderSize) {
		return hdr, fmt.Errorf("%w: %q declares %d bytes at offset %d", pkg.ErrInvalidSize, hdr.Type[:], hdr.Size, w.offset)
	}
	if w.size >= 0 && hdr.Size > uint64(w.size-w.offset) {
		return hdr, fmt.Errorf("%w: %q declares %d bytes at offset %d, %d left", pkg.ErrTruncatedStream, hdr.Type[:], hdr.Size, w.offset, w.size-w.offset)
	}
	return hdr, nil
}

// next decodes the following top-level atom and returns io.EOF after the last.
func (w *walker) next() (*topBox, error) {
	if w.size >= 0 && w.offset >= w.size {
		return nil, io.EOF
	}
	hdr, err := w.header()
	if err != nil {
		return nil, err
	}
	top := &topBox{AtomHeader: hdr}
	w.offset = top.End()
	if box.BoxType(hdr.Type) == box.TypeMDAT {
		return top, nil
	}
	payload := int64(hdr.PayloadSize())
	if w.maxAtom > 0 && payload > w.maxAtom {
		return nil, fmt.Errorf("%w: %q of %d bytes at offset %d exceeds %d", pkg.ErrInvalidSize, hdr.Type[:], payload, hdr.Offset, w.maxAtom)
	}
	b, err := readAt(w.src, hdr.Offset+int64(hdr.HeaderSize), int(payload))
	if err != nil {
		return nil, err
	}
	top.Box, err = box.DecodeBox(hdr, util.NewByteStreamAt(b, hdr.Offset+int64(hdr.HeaderSize)))
	return top, err
}
