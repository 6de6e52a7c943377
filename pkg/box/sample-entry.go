package box

import "m7s.live/omaf/pkg/util"

// aligned(8) abstract class SampleEntry (unsigned int(32) format) extends Box(format){
// 	const unsigned int(8)[6] reserved = 0;
// 	unsigned int(16) data_reference_index;
// }

type SampleEntryHeader struct {
	DataRefIndex uint16
}

func (h *SampleEntryHeader) DataReferenceIndex() uint16 {
	return h.DataRefIndex
}

func (h *SampleEntryHeader) decodeHeader(s *util.ByteStream) {
	s.Skip(6)
	h.DataRefIndex = s.ReadUint16()
}

func (h *SampleEntryHeader) encodeHeader(s *util.ByteStream) {
	s.WriteZeros(6)
	s.WriteUint16(h.DataRefIndex)
}

type SampleEntry interface {
	Box
	DataReferenceIndex() uint16
}

type ParameterSetKind uint8

const (
	ParameterSetVPS ParameterSetKind = iota + 1
	ParameterSetSPS
	ParameterSetPPS
	ParameterSetSEI
	ParameterSetASC
)

func (k ParameterSetKind) String() string {
	switch k {
	case ParameterSetVPS:
		return "VPS"
	case ParameterSetSPS:
		return "SPS"
	case ParameterSetPPS:
		return "PPS"
	case ParameterSetSEI:
		return "SEI"
	case ParameterSetASC:
		return "ASC"
	}
	return "unknown"
}

type ParameterSet struct {
	Kind ParameterSetKind
	Data []byte
}

// ConfigurationRecord is implemented by sample entries that carry decoder configuration.
type ConfigurationRecord interface {
	ConfigurationAtom() Box
	ParameterSets() []ParameterSet
	NALLengthSize() int
}

// class VisualSampleEntry(codingname) extends SampleEntry (codingname){
// 	unsigned int(16) pre_defined = 0;
// 	const unsigned int(16) reserved = 0;
// 	unsigned int(32)[3] pre_defined = 0;
// 	unsigned int(16) width;
// 	unsigned int(16) height;
// 	template unsigned int(32) horizresolution = 0x00480000; // 72 dpi
// 	template unsigned int(32) vertresolution = 0x00480000; // 72 dpi
// 	const unsigned int(32) reserved = 0;
// 	template unsigned int(16) frame_count = 1;
// 	string[32] compressorname;
// 	template unsigned int(16) depth = 0x0018;
// 	int(16) pre_defined = -1;
// 	// other optional boxes
// 	CleanApertureBox clap; // optional
// 	PixelAspectRatioBox pasp; // optional
// }

type VisualSampleEntry struct {
	SampleEntryHeader
	Container
	BoxType         BoxType
	Width           uint16
	Height          uint16
	HorizResolution uint32
	VertResolution  uint32
	FrameCount      uint16
	CompressorName  string
	Depth           uint16

	AvcC *AVCConfigurationBox
	HvcC *HEVCConfigurationBox
	Rinf *SchemeInfoBox
	Sinf *SchemeInfoBox
	St3d *StereoscopicVideoBox
	Sv3d *SphericalVideoBox
}

func NewVisualSampleEntry(t BoxType, width, height uint16) *VisualSampleEntry {
	return &VisualSampleEntry{
		SampleEntryHeader: SampleEntryHeader{DataRefIndex: 1},
		BoxType:           t,
		Width:             width,
		Height:            height,
		HorizResolution:   0x00480000,
		VertResolution:    0x00480000,
		FrameCount:        1,
		Depth:             0x0018,
	}
}

func (b *VisualSampleEntry) Type() BoxType {
	return b.BoxType
}

func (b *VisualSampleEntry) AddChild(child Box) {
	switch c := child.(type) {
	case *AVCConfigurationBox:
		b.AvcC = c
	case *HEVCConfigurationBox:
		b.HvcC = c
	case *SchemeInfoBox:
		if c.BoxType == TypeRINF {
			b.Rinf = c
		} else {
			b.Sinf = c
		}
	case *StereoscopicVideoBox:
		b.St3d = c
	case *SphericalVideoBox:
		b.Sv3d = c
	}
	b.Children = append(b.Children, child)
}

// OriginalFormat is the coding name behind a resv/encv entry, else the entry type.
func (b *VisualSampleEntry) OriginalFormat() BoxType {
	for _, si := range []*SchemeInfoBox{b.Rinf, b.Sinf} {
		if si != nil && si.Frma != nil {
			return si.Frma.DataFormat
		}
	}
	return b.BoxType
}

// Povd returns the projected omnidirectional video box under rinf/schi.
func (b *VisualSampleEntry) Povd() *ProjectedOmniVideoBox {
	if b.Rinf == nil || b.Rinf.Schi == nil {
		return nil
	}
	return b.Rinf.Schi.Povd
}

func (b *VisualSampleEntry) Stvi() *StereoVideoBox {
	if b.Rinf == nil || b.Rinf.Schi == nil {
		return nil
	}
	return b.Rinf.Schi.Stvi
}

func (b *VisualSampleEntry) ConfigurationAtom() Box {
	switch {
	case b.AvcC != nil:
		return b.AvcC
	case b.HvcC != nil:
		return b.HvcC
	}
	return nil
}

func (b *VisualSampleEntry) ParameterSets() []ParameterSet {
	switch {
	case b.AvcC != nil:
		return b.AvcC.ParameterSets()
	case b.HvcC != nil:
		return b.HvcC.ParameterSets()
	}
	return nil
}

func (b *VisualSampleEntry) NALLengthSize() int {
	switch {
	case b.AvcC != nil:
		return int(b.AvcC.LengthSizeMinusOne) + 1
	case b.HvcC != nil:
		return int(b.HvcC.LengthSizeMinusOne) + 1
	}
	return 0
}

func (b *VisualSampleEntry) Decode(s *util.ByteStream) error {
	b.decodeHeader(s)
	s.Skip(16)
	b.Width = s.ReadUint16()
	b.Height = s.ReadUint16()
	b.HorizResolution = s.ReadUint32()
	b.VertResolution = s.ReadUint32()
	s.Skip(4)
	b.FrameCount = s.ReadUint16()
	name := s.ReadN(32)
	if len(name) == 32 {
		n := min(int(name[0]), 31)
		b.CompressorName = string(name[1 : 1+n])
	}
	b.Depth = s.ReadUint16()
	s.Skip(2)
	if err := s.Err(); err != nil {
		return err
	}
	return decodeChildren(s, b.AddChild)
}

func (b *VisualSampleEntry) Encode(s *util.ByteStream) {
	pos := BeginBox(s, b.BoxType)
	b.encodeHeader(s)
	s.WriteZeros(16)
	s.WriteUint16(b.Width)
	s.WriteUint16(b.Height)
	s.WriteUint32(b.HorizResolution)
	s.WriteUint32(b.VertResolution)
	s.WriteUint32(0)
	s.WriteUint16(b.FrameCount)
	name := b.CompressorName
	if len(name) > 31 {
		name = name[:31]
	}
	s.WriteUint8(uint8(len(name)))
	s.WriteString(name)
	s.WriteZeros(31 - len(name))
	s.WriteUint16(b.Depth)
	s.WriteInt16(-1)
	for _, child := range b.Children {
		child.Encode(s)
	}
	EndBox(s, pos)
}

// class AudioSampleEntry(codingname) extends SampleEntry (codingname){
// 	const unsigned int(32)[2] reserved = 0;
// 	template unsigned int(16) channelcount = 2;
// 	template unsigned int(16) samplesize = 16;
// 	unsigned int(16) pre_defined = 0;
// 	const unsigned int(16) reserved = 0 ;
// 	template unsigned int(32) samplerate = { default samplerate of media}<<16;
// }

type AudioSampleEntry struct {
	SampleEntryHeader
	Container
	BoxType      BoxType
	ChannelCount uint16
	SampleSize   uint16
	SampleRate   uint32 // 16.16

	Esds *ESDBox
	Chnl *ChannelLayoutBox
	SA3D *SpatialAudioBox
	Sinf *SchemeInfoBox
}

func NewAudioSampleEntry(t BoxType, channels uint16, rate uint32) *AudioSampleEntry {
	return &AudioSampleEntry{
		SampleEntryHeader: SampleEntryHeader{DataRefIndex: 1},
		BoxType:           t,
		ChannelCount:      channels,
		SampleSize:        16,
		SampleRate:        rate << 16,
	}
}

func (b *AudioSampleEntry) Type() BoxType {
	return b.BoxType
}

// Rate is the integer part of samplerate.
func (b *AudioSampleEntry) Rate() uint32 {
	return b.SampleRate >> 16
}

func (b *AudioSampleEntry) AddChild(child Box) {
	switch c := child.(type) {
	case *ESDBox:
		b.Esds = c
	case *ChannelLayoutBox:
		b.Chnl = c
	case *SpatialAudioBox:
		b.SA3D = c
	case *SchemeInfoBox:
		b.Sinf = c
	}
	b.Children = append(b.Children, child)
}

func (b *AudioSampleEntry) ConfigurationAtom() Box {
	if b.Esds == nil {
		return nil
	}
	return b.Esds
}

func (b *AudioSampleEntry) ParameterSets() []ParameterSet {
	if b.Esds == nil {
		return nil
	}
	asc := b.Esds.DecoderSpecificInfo()
	if asc == nil {
		return nil
	}
	return []ParameterSet{{Kind: ParameterSetASC, Data: asc}}
}

func (b *AudioSampleEntry) NALLengthSize() int {
	return 0
}

func (b *AudioSampleEntry) Decode(s *util.ByteStream) error {
	b.decodeHeader(s)
	s.Skip(8)
	b.ChannelCount = s.ReadUint16()
	b.SampleSize = s.ReadUint16()
	s.Skip(4)
	b.SampleRate = s.ReadUint32()
	if err := s.Err(); err != nil {
		return err
	}
	return decodeChildren(s, b.AddChild)
}

func (b *AudioSampleEntry) Encode(s *util.ByteStream) {
	pos := BeginBox(s, b.BoxType)
	b.encodeHeader(s)
	s.WriteZeros(8)
	s.WriteUint16(b.ChannelCount)
	s.WriteUint16(b.SampleSize)
	s.WriteZeros(4)
	s.WriteUint32(b.SampleRate)
	for _, child := range b.Children {
		child.Encode(s)
	}
	EndBox(s, pos)
}

// class URIMetaSampleEntry() extends MetaDataSampleEntry (’urim’) {
// 	URIbox the_label;
// 	URIInitBox init; // optional
// }

type URIMetaSampleEntry struct {
	SampleEntryHeader
	Container
	URI     *URIBox
	URIInit *URIInitBox
}

func (b *URIMetaSampleEntry) Type() BoxType {
	return TypeURIM
}

func (b *URIMetaSampleEntry) AddChild(child Box) {
	switch c := child.(type) {
	case *URIBox:
		b.URI = c
	case *URIInitBox:
		b.URIInit = c
	}
	b.Children = append(b.Children, child)
}

func (b *URIMetaSampleEntry) Decode(s *util.ByteStream) error {
	b.decodeHeader(s)
	if err := s.Err(); err != nil {
		return err
	}
	return decodeChildren(s, b.AddChild)
}

func (b *URIMetaSampleEntry) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeURIM)
	b.encodeHeader(s)
	for _, child := range b.Children {
		child.Encode(s)
	}
	EndBox(s, pos)
}

// aligned(8) class URIBox extends FullBox(‘uri ’, version = 0, 0) {
// 	string theURI;
// }

type URIBox struct {
	FullBox
	URI string
}

func (b *URIBox) Type() BoxType {
	return TypeURI
}

func (b *URIBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.URI = s.ReadZeroTerminatedString()
	return s.Err()
}

func (b *URIBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeURI)
	b.encodeFull(s)
	s.WriteZeroTerminatedString(b.URI)
	EndBox(s, pos)
}

// aligned(8) class URIInitBox extends FullBox(‘uriI’, version = 0, 0) {
// 	unsigned int(8) uri_initialization_data[];
// }

type URIInitBox struct {
	FullBox
	Data []byte
}

func (b *URIInitBox) Type() BoxType {
	return TypeURII
}

func (b *URIInitBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.Data = cloneBytes(s.ReadRemaining())
	return s.Err()
}

func (b *URIInitBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeURII)
	b.encodeFull(s)
	s.WriteBytes(b.Data)
	EndBox(s, pos)
}
