package util

import (
	"encoding/binary"
	"fmt"

	"m7s.live/omaf/pkg"
)

const (
	BasicAtomLen = 8
	LargeAtomLen = 16
)

// AtomHeader is the size/type prefix of one atom.
type AtomHeader struct {
	Type       [4]byte
	Size       uint64 // whole atom, header included
	HeaderSize int
	Offset     int64 // absolute position of the first header byte
}

func (h AtomHeader) PayloadSize() uint64 {
	return h.Size - uint64(h.HeaderSize)
}

func (h AtomHeader) Large() bool {
	return h.HeaderSize == LargeAtomLen
}

// ByteStream is a big-endian bit/byte reader and writer over an in-memory buffer.
//
// Reads are bounded by the view the stream was created over. The first failed
// read is remembered and every later read returns zero, so a parser can read a
// whole record and check Err once.
type ByteStream struct {
	buf   []byte
	pos   int
	rbits uint8 // bits already consumed from buf[pos]
	wbits uint8 // bits already used in the last written byte
	base  int64 // absolute offset of buf[0]
	err   error
}

func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{buf: b}
}

// NewByteStreamAt is NewByteStream for a view that starts at offset in a larger stream.
func NewByteStreamAt(b []byte, offset int64) *ByteStream {
	return &ByteStream{buf: b, base: offset}
}

func (s *ByteStream) Err() error {
	return s.err
}

func (s *ByteStream) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Fail records err as the stream error unless one is already set.
func (s *ByteStream) Fail(err error) {
	s.fail(err)
}

func (s *ByteStream) Bytes() []byte {
	return s.buf
}

func (s *ByteStream) Len() int {
	return len(s.buf)
}

func (s *ByteStream) Pos() int {
	return s.pos
}

// Offset is the absolute position of the read cursor.
func (s *ByteStream) Offset() int64 {
	return s.base + int64(s.pos)
}

func (s *ByteStream) Remaining() int {
	return len(s.buf) - s.pos
}

func (s *ByteStream) SetPos(pos int) error {
	if pos < 0 || pos > len(s.buf) {
		return fmt.Errorf("%w: seek to %d of %d", pkg.ErrTruncatedStream, pos, len(s.buf))
	}
	s.pos, s.rbits = pos, 0
	return nil
}

func (s *ByteStream) Reset() {
	s.buf, s.pos, s.rbits, s.wbits, s.err = s.buf[:0], 0, 0, 0, nil
}

func (s *ByteStream) align() {
	if s.rbits != 0 {
		s.rbits = 0
		s.pos++
	}
}

func (s *ByteStream) need(n int) bool {
	if s.err != nil {
		return false
	}
	s.align()
	if n < 0 || len(s.buf)-s.pos < n {
		s.fail(fmt.Errorf("%w: need %d bytes at offset %d, %d left", pkg.ErrTruncatedStream, n, s.Offset(), len(s.buf)-s.pos))
		return false
	}
	return true
}

// ReadN returns the next n bytes without copying.
func (s *ByteStream) ReadN(n int) []byte {
	if !s.need(n) {
		return nil
	}
	b := s.buf[s.pos : s.pos+n : s.pos+n]
	s.pos += n
	return b
}

func (s *ByteStream) ReadRemaining() []byte {
	s.align()
	return s.ReadN(len(s.buf) - s.pos)
}

func (s *ByteStream) Skip(n int) {
	s.ReadN(n)
}

func (s *ByteStream) ReadUint8() uint8 {
	if !s.need(1) {
		return 0
	}
	v := s.buf[s.pos]
	s.pos++
	return v
}

func (s *ByteStream) ReadUint16() uint16 {
	if !s.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(s.buf[s.pos:])
	s.pos += 2
	return v
}

func (s *ByteStream) ReadUint24() uint32 {
	if !s.need(3) {
		return 0
	}
	v := ReadBE[uint32](s.buf[s.pos : s.pos+3])
	s.pos += 3
	return v
}

func (s *ByteStream) ReadUint32() uint32 {
	if !s.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v
}

func (s *ByteStream) ReadUint64() uint64 {
	if !s.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v
}

// ReadUintN reads an unsigned integer of size bytes (1..8).
func (s *ByteStream) ReadUintN(size int) uint64 {
	if size < 1 || size > 8 {
		s.fail(fmt.Errorf("%w: integer width %d", pkg.ErrInvalidSize, size))
		return 0
	}
	return ReadBE[uint64](s.ReadN(size))
}

func (s *ByteStream) ReadInt8() int8 {
	return int8(s.ReadUint8())
}

func (s *ByteStream) ReadInt16() int16 {
	return int16(s.ReadUint16())
}

func (s *ByteStream) ReadInt32() int32 {
	return int32(s.ReadUint32())
}

func (s *ByteStream) ReadInt64() int64 {
	return int64(s.ReadUint64())
}

func (s *ByteStream) ReadFourCC() (t [4]byte) {
	copy(t[:], s.ReadN(4))
	return
}

func (s *ByteStream) ReadString(n int) string {
	return string(s.ReadN(n))
}

// ReadZeroTerminatedString consumes up to and including the next NUL. A string
// running to the end of the view without a terminator is accepted.
func (s *ByteStream) ReadZeroTerminatedString() string {
	if s.err != nil {
		return ""
	}
	s.align()
	rest := s.buf[s.pos:]
	for i, c := range rest {
		if c == 0 {
			s.pos += i + 1
			return string(rest[:i])
		}
	}
	s.pos = len(s.buf)
	return string(rest)
}

// ReadBits reads k (1..32) bits MSB first.
func (s *ByteStream) ReadBits(k int) uint32 {
	if s.err != nil {
		return 0
	}
	if k < 1 || k > 32 {
		s.fail(fmt.Errorf("%w: read of %d bits", pkg.ErrOperationFailed, k))
		return 0
	}
	var v uint32
	for k > 0 {
		if s.pos >= len(s.buf) {
			s.fail(fmt.Errorf("%w: bit read past offset %d", pkg.ErrTruncatedStream, s.Offset()))
			return 0
		}
		avail := 8 - int(s.rbits)
		take := min(avail, k)
		chunk := uint32(s.buf[s.pos]>>(avail-take)) & (uint32(1)<<take - 1)
		v = v<<take | chunk
		s.rbits += uint8(take)
		k -= take
		if s.rbits == 8 {
			s.rbits = 0
			s.pos++
		}
	}
	return v
}

func (s *ByteStream) ReadBit() bool {
	return s.ReadBits(1) == 1
}

// ReadSubAtomStream reads one atom header and returns a view bounded to its payload.
// The parent cursor moves past the whole atom.
func (s *ByteStream) ReadSubAtomStream() (hdr AtomHeader, sub *ByteStream, err error) {
	if s.err != nil {
		return hdr, nil, s.err
	}
	s.align()
	start := s.pos
	hdr.Offset = s.Offset()
	if len(s.buf)-start < BasicAtomLen {
		err = fmt.Errorf("%w: atom header at offset %d", pkg.ErrTruncatedStream, hdr.Offset)
		s.fail(err)
		return
	}
	size := uint64(s.ReadUint32())
	hdr.Type = s.ReadFourCC()
	hdr.HeaderSize = BasicAtomLen
	switch size {
	case 1:
		if len(s.buf)-s.pos < 8 {
			err = fmt.Errorf("%w: large size of %q at offset %d", pkg.ErrTruncatedStream, hdr.Type[:], hdr.Offset)
			s.fail(err)
			return
		}
		size = s.ReadUint64()
		hdr.HeaderSize = LargeAtomLen
	case 0:
		size = uint64(len(s.buf) - start)
	}
	if size < uint64(hdr.HeaderSize) {
		err = fmt.Errorf("%w: %q declares %d bytes at offset %d", pkg.ErrInvalidSize, hdr.Type[:], size, hdr.Offset)
		s.fail(err)
		return
	}
	if size > uint64(len(s.buf)-start) {
		err = fmt.Errorf("%w: %q declares %d bytes at offset %d, %d left", pkg.ErrTruncatedStream, hdr.Type[:], size, hdr.Offset, len(s.buf)-start)
		s.fail(err)
		return
	}
	hdr.Size = size
	end := start + int(size)
	sub = &ByteStream{buf: s.buf[s.pos:end:end], base: s.Offset()}
	s.pos = end
	return
}

func (s *ByteStream) flushBits() {
	s.wbits = 0
}

func (s *ByteStream) WriteUint8(v uint8) {
	s.flushBits()
	s.buf = append(s.buf, v)
}

func (s *ByteStream) WriteUint16(v uint16) {
	s.flushBits()
	s.buf = binary.BigEndian.AppendUint16(s.buf, v)
}

func (s *ByteStream) WriteUint24(v uint32) {
	s.flushBits()
	s.buf = AppendBE(s.buf, v, 3)
}

func (s *ByteStream) WriteUint32(v uint32) {
	s.flushBits()
	s.buf = binary.BigEndian.AppendUint32(s.buf, v)
}

func (s *ByteStream) WriteUint64(v uint64) {
	s.flushBits()
	s.buf = binary.BigEndian.AppendUint64(s.buf, v)
}

func (s *ByteStream) WriteUintN(v uint64, size int) {
	s.flushBits()
	s.buf = AppendBE(s.buf, v, size)
}

func (s *ByteStream) WriteInt8(v int8) {
	s.WriteUint8(uint8(v))
}

func (s *ByteStream) WriteInt16(v int16) {
	s.WriteUint16(uint16(v))
}

func (s *ByteStream) WriteInt32(v int32) {
	s.WriteUint32(uint32(v))
}

func (s *ByteStream) WriteInt64(v int64) {
	s.WriteUint64(uint64(v))
}

func (s *ByteStream) WriteBytes(b []byte) {
	s.flushBits()
	s.buf = append(s.buf, b...)
}

// Write implements io.Writer.
func (s *ByteStream) Write(b []byte) (int, error) {
	s.WriteBytes(b)
	return len(b), nil
}

func (s *ByteStream) WriteZeros(n int) {
	s.flushBits()
	for range n {
		s.buf = append(s.buf, 0)
	}
}

func (s *ByteStream) WriteFourCC(t [4]byte) {
	s.WriteBytes(t[:])
}

func (s *ByteStream) WriteString(str string) {
	s.flushBits()
	s.buf = append(s.buf, str...)
}

func (s *ByteStream) WriteZeroTerminatedString(str string) {
	s.WriteString(str)
	s.buf = append(s.buf, 0)
}

// WriteBits appends the low k (1..32) bits of v MSB first. Unused bits of the
// last byte stay zero until the next bit write or are left as padding.
func (s *ByteStream) WriteBits(v uint32, k int) {
	for k > 0 {
		if s.wbits == 0 {
			s.buf = append(s.buf, 0)
		}
		free := 8 - int(s.wbits)
		take := min(free, k)
		chunk := byte(v>>(k-take)) & (byte(1)<<take - 1)
		s.buf[len(s.buf)-1] |= chunk << (free - take)
		s.wbits = uint8((int(s.wbits) + take) % 8)
		k -= take
	}
}

func (s *ByteStream) WriteBit(b bool) {
	if b {
		s.WriteBits(1, 1)
	} else {
		s.WriteBits(0, 1)
	}
}

func (s *ByteStream) PatchUint32(at int, v uint32) {
	binary.BigEndian.PutUint32(s.buf[at:], v)
}

func (s *ByteStream) PatchUint64(at int, v uint64) {
	binary.BigEndian.PutUint64(s.buf[at:], v)
}
