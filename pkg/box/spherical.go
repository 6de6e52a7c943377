package box

import (
	"encoding/xml"
	"fmt"

	"m7s.live/omaf/pkg/util"
)

// Spherical Video V2 (google/spatial-media).

// aligned(8) class Stereoscopic3D extends FullBox(‘st3d’, 0, 0) {
// 	unsigned int(8) stereo_mode;
// }

const (
	StereoModeMonoscopic = 0
	StereoModeTopBottom  = 1
	StereoModeLeftRight  = 2
)

type StereoscopicVideoBox struct {
	FullBox
	StereoMode uint8
}

func (b *StereoscopicVideoBox) Type() BoxType {
	return TypeST3D
}

func (b *StereoscopicVideoBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.StereoMode = s.ReadUint8()
	return s.Err()
}

func (b *StereoscopicVideoBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeST3D)
	b.encodeFull(s)
	s.WriteUint8(b.StereoMode)
	EndBox(s, pos)
}

// aligned(8) class SphericalVideoBox extends Box(‘sv3d’) {
// 	SphericalVideoHeader svhd; // mandatory
// 	Projection proj; // mandatory
// }

type SphericalVideoBox struct {
	Container
	Svhd *SphericalVideoHeaderBox
	Proj *ProjectionBox
}

func (b *SphericalVideoBox) Type() BoxType {
	return TypeSV3D
}

func (b *SphericalVideoBox) AddChild(child Box) {
	switch c := child.(type) {
	case *SphericalVideoHeaderBox:
		b.Svhd = c
	case *ProjectionBox:
		b.Proj = c
	}
	b.Children = append(b.Children, child)
}

func (b *SphericalVideoBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *SphericalVideoBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypeSV3D, b.Children)
}

// aligned(8) class SphericalVideoHeader extends FullBox(‘svhd’, 0, 0) {
// 	string metadata_source;
// }

type SphericalVideoHeaderBox struct {
	FullBox
	MetadataSource string
}

func (b *SphericalVideoHeaderBox) Type() BoxType {
	return TypeSVHD
}

func (b *SphericalVideoHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.MetadataSource = s.ReadZeroTerminatedString()
	return s.Err()
}

func (b *SphericalVideoHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSVHD)
	b.encodeFull(s)
	s.WriteZeroTerminatedString(b.MetadataSource)
	EndBox(s, pos)
}

// aligned(8) class Projection extends Box(‘proj’) {
// 	ProjectionHeader prhd;
// 	ProjectionDataBox proj_data; // equi or cbmp
// }

type ProjectionBox struct {
	Container
	Prhd *ProjectionHeaderBox
	Equi *EquirectangularProjectionBox
	Cbmp *CubemapProjectionBox
}

func (b *ProjectionBox) Type() BoxType {
	return TypePROJ
}

func (b *ProjectionBox) AddChild(child Box) {
	switch c := child.(type) {
	case *ProjectionHeaderBox:
		b.Prhd = c
	case *EquirectangularProjectionBox:
		b.Equi = c
	case *CubemapProjectionBox:
		b.Cbmp = c
	}
	b.Children = append(b.Children, child)
}

func (b *ProjectionBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *ProjectionBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypePROJ, b.Children)
}

// aligned(8) class ProjectionHeader extends FullBox(‘prhd’, 0, 0) {
// 	int(32) pose_yaw_degrees;
// 	int(32) pose_pitch_degrees;
// 	int(32) pose_roll_degrees;
// }

type ProjectionHeaderBox struct {
	FullBox
	PoseYaw   int32 // 16.16 degrees
	PosePitch int32
	PoseRoll  int32
}

func (b *ProjectionHeaderBox) Type() BoxType {
	return TypePRHD
}

func (b *ProjectionHeaderBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.PoseYaw = s.ReadInt32()
	b.PosePitch = s.ReadInt32()
	b.PoseRoll = s.ReadInt32()
	return s.Err()
}

func (b *ProjectionHeaderBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypePRHD)
	b.encodeFull(s)
	s.WriteInt32(b.PoseYaw)
	s.WriteInt32(b.PosePitch)
	s.WriteInt32(b.PoseRoll)
	EndBox(s, pos)
}

// aligned(8) class EquirectangularProjection extends ProjectionDataBox(‘equi’, 0, 0) {
// 	unsigned int(32) projection_bounds_top;
// 	unsigned int(32) projection_bounds_bottom;
// 	unsigned int(32) projection_bounds_left;
// 	unsigned int(32) projection_bounds_right;
// }

type EquirectangularProjectionBox struct {
	FullBox
	BoundsTop    uint32 // 0.32 fixed point
	BoundsBottom uint32
	BoundsLeft   uint32
	BoundsRight  uint32
}

func (b *EquirectangularProjectionBox) Type() BoxType {
	return TypeEQUI
}

func (b *EquirectangularProjectionBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.BoundsTop = s.ReadUint32()
	b.BoundsBottom = s.ReadUint32()
	b.BoundsLeft = s.ReadUint32()
	b.BoundsRight = s.ReadUint32()
	return s.Err()
}

func (b *EquirectangularProjectionBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeEQUI)
	b.encodeFull(s)
	s.WriteUint32(b.BoundsTop)
	s.WriteUint32(b.BoundsBottom)
	s.WriteUint32(b.BoundsLeft)
	s.WriteUint32(b.BoundsRight)
	EndBox(s, pos)
}

// aligned(8) class CubemapProjection ProjectionDataBox(‘cbmp’, 0, 0) {
// 	unsigned int(32) layout;
// 	unsigned int(32) padding;
// }

type CubemapProjectionBox struct {
	FullBox
	Layout  uint32
	Padding uint32
}

func (b *CubemapProjectionBox) Type() BoxType {
	return TypeCBMP
}

func (b *CubemapProjectionBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.Layout = s.ReadUint32()
	b.Padding = s.ReadUint32()
	return s.Err()
}

func (b *CubemapProjectionBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeCBMP)
	b.encodeFull(s)
	s.WriteUint32(b.Layout)
	s.WriteUint32(b.Padding)
	EndBox(s, pos)
}

// Spherical Video V1: an RDF/XML document in a uuid box under trak.

var SphericalV1UUID = [16]byte{0xff, 0xcc, 0x82, 0x63, 0xf8, 0x55, 0x4a, 0x93, 0x88, 0x14, 0x58, 0x7a, 0x02, 0x52, 0x1f, 0xdd}

type UUIDBox struct {
	UserType [16]byte
	Data     []byte
}

func (b *UUIDBox) Type() BoxType {
	return TypeUUID
}

func (b *UUIDBox) Decode(s *util.ByteStream) error {
	copy(b.UserType[:], s.ReadN(16))
	b.Data = cloneBytes(s.ReadRemaining())
	return s.Err()
}

func (b *UUIDBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeUUID)
	s.WriteBytes(b.UserType[:])
	s.WriteBytes(b.Data)
	EndBox(s, pos)
}

type SphericalVideoV1 struct {
	Spherical                    bool   `xml:"Spherical"`
	Stitched                     bool   `xml:"Stitched"`
	StitchingSoftware            string `xml:"StitchingSoftware"`
	ProjectionType               string `xml:"ProjectionType"`
	StereoMode                   string `xml:"StereoMode"`
	SourceCount                  int    `xml:"SourceCount"`
	InitialViewHeadingDegrees    int    `xml:"InitialViewHeadingDegrees"`
	InitialViewPitchDegrees      int    `xml:"InitialViewPitchDegrees"`
	InitialViewRollDegrees       int    `xml:"InitialViewRollDegrees"`
	Timestamp                    int64  `xml:"Timestamp"`
	FullPanoWidthPixels          int    `xml:"FullPanoWidthPixels"`
	FullPanoHeightPixels         int    `xml:"FullPanoHeightPixels"`
	CroppedAreaImageWidthPixels  int    `xml:"CroppedAreaImageWidthPixels"`
	CroppedAreaImageHeightPixels int    `xml:"CroppedAreaImageHeightPixels"`
	CroppedAreaLeftPixels        int    `xml:"CroppedAreaLeftPixels"`
	CroppedAreaTopPixels         int    `xml:"CroppedAreaTopPixels"`
}

// SphericalV1 parses the XML payload of a spherical v1 uuid box.
func (b *UUIDBox) SphericalV1() (*SphericalVideoV1, error) {
	if b.UserType != SphericalV1UUID {
		return nil, fmt.Errorf("uuid %x is not spherical video", b.UserType)
	}
	var v SphericalVideoV1
	if err := xml.Unmarshal(b.Data, &v); err != nil {
		return nil, fmt.Errorf("spherical v1: %w", err)
	}
	return &v, nil
}

// MarshalSphericalV1 builds the uuid box for v.
func MarshalSphericalV1(v *SphericalVideoV1) (*UUIDBox, error) {
	type doc struct {
		XMLName xml.Name `xml:"rdf:SphericalVideo"`
		RDF     string   `xml:"xmlns:rdf,attr"`
		GSph    string   `xml:"xmlns:GSpherical,attr"`
		*SphericalVideoV1
	}
	data, err := xml.Marshal(doc{
		RDF:              "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		GSph:             "http://ns.google.com/videos/1.0/spherical/",
		SphericalVideoV1: v,
	})
	if err != nil {
		return nil, err
	}
	return &UUIDBox{UserType: SphericalV1UUID, Data: data}, nil
}
