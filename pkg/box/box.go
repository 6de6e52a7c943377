package box

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/util"
)

const (
	BasicBoxLen = util.BasicAtomLen
	FullBoxLen  = BasicBoxLen + 4
	LargeBoxLen = util.LargeAtomLen
)

type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

func f(s string) BoxType {
	return BoxType([]byte(s))
}

var (
	TypeFTYP = f("ftyp")
	TypeSTYP = f("styp")
	TypeMOOV = f("moov")
	TypeMVHD = f("mvhd")
	TypeTRAK = f("trak")
	TypeTKHD = f("tkhd")
	TypeTREF = f("tref")
	TypeTRGR = f("trgr")
	TypeEDTS = f("edts")
	TypeELST = f("elst")
	TypeMDIA = f("mdia")
	TypeMDHD = f("mdhd")
	TypeHDLR = f("hdlr")
	TypeMINF = f("minf")
	TypeVMHD = f("vmhd")
	TypeSMHD = f("smhd")
	TypeNMHD = f("nmhd")
	TypeDINF = f("dinf")
	TypeDREF = f("dref")
	TypeURL  = f("url ")
	TypeSTBL = f("stbl")
	TypeSTSD = f("stsd")
	TypeSTTS = f("stts")
	TypeCTTS = f("ctts")
	TypeSTSC = f("stsc")
	TypeSTSZ = f("stsz")
	TypeSTCO = f("stco")
	TypeCO64 = f("co64")
	TypeSTSS = f("stss")
	TypeMVEX = f("mvex")
	TypeMEHD = f("mehd")
	TypeTREX = f("trex")
	TypeMOOF = f("moof")
	TypeMFHD = f("mfhd")
	TypeTRAF = f("traf")
	TypeTFHD = f("tfhd")
	TypeTFDT = f("tfdt")
	TypeTRUN = f("trun")
	TypeSIDX = f("sidx")
	TypeMDAT = f("mdat")
	TypeFREE = f("free")
	TypeSKIP = f("skip")
	TypeUUID = f("uuid")

	TypeAVC1 = f("avc1")
	TypeAVC3 = f("avc3")
	TypeHVC1 = f("hvc1")
	TypeHEV1 = f("hev1")
	TypeHVC2 = f("hvc2")
	TypeHEV2 = f("hev2")
	TypeRESV = f("resv")
	TypeENCV = f("encv")
	TypeMP4A = f("mp4a")
	TypeENCA = f("enca")
	TypeURIM = f("urim")
	TypeAVCC = f("avcC")
	TypeHVCC = f("hvcC")
	TypeESDS = f("esds")
	TypeCHNL = f("chnl")
	TypeSA3D = f("SA3D")
	TypeURI  = f("uri ")
	TypeURII = f("uriI")

	TypeRINF = f("rinf")
	TypeSINF = f("sinf")
	TypeFRMA = f("frma")
	TypeSCHM = f("schm")
	TypeSCHI = f("schi")
	TypePOVD = f("povd")
	TypePRFR = f("prfr")
	TypeRWPK = f("rwpk")
	TypeCOVI = f("covi")
	TypeROTN = f("rotn")
	TypeSTVI = f("stvi")
	TypeST3D = f("st3d")
	TypeSV3D = f("sv3d")
	TypeSVHD = f("svhd")
	TypePROJ = f("proj")
	TypePRHD = f("prhd")
	TypeEQUI = f("equi")
	TypeCBMP = f("cbmp")

	TypeVIDE = f("vide")
	TypeSOUN = f("soun")
	TypeMETA = f("meta")
	TypeHINT = f("hint")

	TypeSCAL = f("scal")
	TypeMSDH = f("msdh")
	TypeMSIX = f("msix")
	TypeISO6 = f("iso6")
	TypeISOM = f("isom")
	TypeDASH = f("dash")
	TypePODV = f("podv")
	TypeERPV = f("erpv")
)

//	aligned(8) class Box (unsigned int(32) boxtype, optional unsigned int(8)[16] extended_type) {
//	    unsigned int(32) size;
//	    unsigned int(32) type = boxtype;
//	    if (size==1) {
//	       unsigned int(64) largesize;
//	    } else if (size==0) {
//	       // box extends to end of file
//	    }
//	    if (boxtype=='uuid') {
//	    unsigned int(8)[16] usertype = extended_type;
//	 }
//	}
//
// Decode reads the payload that follows the header. Encode writes the whole
// box, header included.
type Box interface {
	Type() BoxType
	Decode(s *util.ByteStream) error
	Encode(s *util.ByteStream)
}

// BeginBox writes a header with a placeholder size and returns the position EndBox patches.
func BeginBox(s *util.ByteStream, t BoxType) int {
	pos := s.Len()
	s.WriteUint32(0)
	s.WriteFourCC(t)
	return pos
}

func EndBox(s *util.ByteStream, pos int) {
	size := s.Len() - pos
	if size > math.MaxUint32 {
		panic(fmt.Sprintf("box at %d is %d bytes, use BeginLargeBox", pos, size))
	}
	s.PatchUint32(pos, uint32(size))
}

func BeginLargeBox(s *util.ByteStream, t BoxType) int {
	pos := s.Len()
	s.WriteUint32(1)
	s.WriteFourCC(t)
	s.WriteUint64(0)
	return pos
}

func EndLargeBox(s *util.ByteStream, pos int) {
	s.PatchUint64(pos+BasicBoxLen, uint64(s.Len()-pos))
}

// SizeOf is the encoded size of b.
func SizeOf(b Box) int {
	var s util.ByteStream
	b.Encode(&s)
	return s.Len()
}

// EncodeBox serializes boxes back to back.
func EncodeBox(boxes ...Box) []byte {
	var s util.ByteStream
	for _, b := range boxes {
		b.Encode(&s)
	}
	return s.Bytes()
}

// aligned(8) class FullBox(unsigned int(32) boxtype, unsigned int(8) v, bit(24) f) extends Box(boxtype) {
//     unsigned int(8) version = v;
//     bit(24) flags = f;
// }

type FullBox struct {
	Version uint8
	Flags   uint32
}

func (b *FullBox) decodeFull(s *util.ByteStream) {
	v := s.ReadUint32()
	b.Version, b.Flags = uint8(v>>24), v&0xFFFFFF
}

func (b *FullBox) encodeFull(s *util.ByteStream) {
	s.WriteUint32(uint32(b.Version)<<24 | b.Flags&0xFFFFFF)
}

// ParseError locates a decode failure. Nested boxes wrap each other, so the
// message reads as a path from the outermost box.
type ParseError struct {
	Type   BoxType
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s@%d: %v", e.Type, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var logger atomic.Pointer[slog.Logger]

// SetLogger sets where the package reports skipped boxes.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func log() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// DecodeBox decodes the payload in s as a box of hdr.Type.
func DecodeBox(hdr util.AtomHeader, s *util.ByteStream) (Box, error) {
	t := BoxType(hdr.Type)
	newBox, ok := registry[t]
	if !ok {
		log().Debug("unknown box", "type", t, "offset", hdr.Offset, "size", hdr.Size)
		return &UnknownBox{BoxType: t, Data: cloneBytes(s.ReadRemaining())}, nil
	}
	b := newBox()
	if err := b.Decode(s); err != nil {
		return nil, &ParseError{Type: t, Offset: hdr.Offset, Err: err}
	}
	if err := s.Err(); err != nil {
		return nil, &ParseError{Type: t, Offset: hdr.Offset, Err: err}
	}
	if m, ok := b.(*MediaDataBox); ok {
		m.LargeSize = hdr.Large()
	}
	return b, nil
}

// ReadBox decodes the next box in s.
func ReadBox(s *util.ByteStream) (Box, error) {
	hdr, sub, err := s.ReadSubAtomStream()
	if err != nil {
		return nil, err
	}
	return DecodeBox(hdr, sub)
}

// DecodeAll decodes every box in b, which starts at absolute offset.
func DecodeAll(b []byte, offset int64) (boxes []Box, err error) {
	s := util.NewByteStreamAt(b, offset)
	for s.Remaining() > 0 {
		var child Box
		if child, err = ReadBox(s); err != nil {
			return
		}
		boxes = append(boxes, child)
	}
	return
}

func decodeChildren(s *util.ByteStream, add func(Box)) error {
	for s.Remaining() > 0 {
		child, err := ReadBox(s)
		if err != nil {
			return err
		}
		add(child)
	}
	return s.Err()
}

func encodeContainer(s *util.ByteStream, t BoxType, children []Box) {
	pos := BeginBox(s, t)
	for _, child := range children {
		child.Encode(s)
	}
	EndBox(s, pos)
}

// MaxEntryCount bounds tables whose entries take no bytes in the box, such as
// a trun carrying no per-sample fields.
var MaxEntryCount uint64 = 1 << 20

// checkCount fails s when count entries of size bytes cannot fit in what is left.
func checkCount(s *util.ByteStream, count uint64, size int) bool {
	if s.Err() != nil {
		return false
	}
	if size == 0 && count > MaxEntryCount {
		s.Fail(fmt.Errorf("%w: %d entries at offset %d, limit %d", pkg.ErrInvalidSize, count, s.Offset(), MaxEntryCount))
		return false
	}
	if size > 0 && count > uint64(s.Remaining()/size) {
		s.ReadN(s.Remaining() + 1)
		return false
	}
	return true
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// UnknownBox keeps the payload of a box the package does not model.
type UnknownBox struct {
	BoxType BoxType
	Data    []byte
}

func (b *UnknownBox) Type() BoxType {
	return b.BoxType
}

func (b *UnknownBox) Decode(s *util.ByteStream) error {
	b.Data = cloneBytes(s.ReadRemaining())
	return s.Err()
}

func (b *UnknownBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, b.BoxType)
	s.WriteBytes(b.Data)
	EndBox(s, pos)
}
