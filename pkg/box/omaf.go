package box

import "m7s.live/omaf/pkg/util"

// aligned(8) class ProjectedOmniVideoBox extends Box('povd') {
// 	ProjectionFormatBox projection_format_box; // mandatory
// 	RegionWisePackingBox region_wise_packing_box; // optional
// 	ProjectionOrientationBox projection_orientation_box; // optional
// 	CoverageInformationBox coverage_info_box; // optional
// }

type ProjectedOmniVideoBox struct {
	Container
	Prfr *ProjectionFormatBox
	Rwpk *RegionWisePackingBox
	Rotn *RotationBox
	Covi *CoverageInformationBox
}

func (b *ProjectedOmniVideoBox) Type() BoxType {
	return TypePOVD
}

func (b *ProjectedOmniVideoBox) AddChild(child Box) {
	switch c := child.(type) {
	case *ProjectionFormatBox:
		b.Prfr = c
	case *RegionWisePackingBox:
		b.Rwpk = c
	case *RotationBox:
		b.Rotn = c
	case *CoverageInformationBox:
		b.Covi = c
	}
	b.Children = append(b.Children, child)
}

func (b *ProjectedOmniVideoBox) Decode(s *util.ByteStream) error {
	return decodeChildren(s, b.AddChild)
}

func (b *ProjectedOmniVideoBox) Encode(s *util.ByteStream) {
	encodeContainer(s, TypePOVD, b.Children)
}

// aligned(8) class ProjectionFormatBox() extends FullBox('prfr', 0, 0) {
// 	bit(3) reserved = 0;
// 	unsigned int(5) projection_type;
// }

const (
	ProjectionEquirectangular uint8 = 0
	ProjectionCubemap         uint8 = 1
)

type ProjectionFormatBox struct {
	FullBox
	ProjectionType uint8
}

func (b *ProjectionFormatBox) Type() BoxType {
	return TypePRFR
}

func (b *ProjectionFormatBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	s.ReadBits(3)
	b.ProjectionType = uint8(s.ReadBits(5))
	return s.Err()
}

func (b *ProjectionFormatBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypePRFR)
	b.encodeFull(s)
	s.WriteBits(0, 3)
	s.WriteBits(uint32(b.ProjectionType), 5)
	EndBox(s, pos)
}

// aligned(8) class RegionWisePackingBox extends FullBox('rwpk', 0, 0) {
// 	RegionWisePackingStruct();
// }
// aligned(8) class RegionWisePackingStruct() {
// 	unsigned int(1) constituent_picture_matching_flag;
// 	bit(7) reserved = 0;
// 	unsigned int(8) num_regions;
// 	unsigned int(32) proj_picture_width;
// 	unsigned int(32) proj_picture_height;
// 	unsigned int(16) packed_picture_width;
// 	unsigned int(16) packed_picture_height;
// 	for (i = 0; i < num_regions; i++) {
// 		bit(3) reserved = 0;
// 		unsigned int(1) guard_band_flag[i];
// 		unsigned int(4) packing_type[i];
// 		if (packing_type[i] == 0) {
// 			RectRegionPacking(i);
// 			if (guard_band_flag[i])
// 				GuardBand(i);
// 		}
// 	}
// }
// aligned(8) class RectRegionPacking(i) {
// 	unsigned int(32) proj_reg_width[i];
// 	unsigned int(32) proj_reg_height[i];
// 	unsigned int(32) proj_reg_top[i];
// 	unsigned int(32) proj_reg_left[i];
// 	unsigned int(3) transform_type[i];
// 	bit(5) reserved = 0;
// 	unsigned int(16) packed_reg_width[i];
// 	unsigned int(16) packed_reg_height[i];
// 	unsigned int(16) packed_reg_top[i];
// 	unsigned int(16) packed_reg_left[i];
// }
// aligned(8) class GuardBand(i) {
// 	unsigned int(8) left_gb_width[i];
// 	unsigned int(8) right_gb_width[i];
// 	unsigned int(8) top_gb_height[i];
// 	unsigned int(8) bottom_gb_height[i];
// 	unsigned int(1) gb_not_used_for_pred_flag[i];
// 	for (j = 0; j < 4; j++)
// 		unsigned int(3) gb_type[i][j];
// 	bit(3) reserved = 0;
// }

type RectRegionPacking struct {
	ProjRegWidth    uint32
	ProjRegHeight   uint32
	ProjRegTop      uint32
	ProjRegLeft     uint32
	TransformType   uint8
	PackedRegWidth  uint16
	PackedRegHeight uint16
	PackedRegTop    uint16
	PackedRegLeft   uint16
}

type GuardBand struct {
	LeftWidth      uint8
	RightWidth     uint8
	TopHeight      uint8
	BottomHeight   uint8
	NotUsedForPred bool
	Types          [4]uint8
}

type PackedRegion struct {
	GuardBandFlag bool
	PackingType   uint8
	// Rect and GuardBand are meaningful for packing type 0 only.
	Rect      RectRegionPacking
	GuardBand GuardBand
}

type RegionWisePackingBox struct {
	FullBox
	ConstituentPictureMatching bool
	ProjPictureWidth           uint32
	ProjPictureHeight          uint32
	PackedPictureWidth         uint16
	PackedPictureHeight        uint16
	Regions                    []PackedRegion
}

func (b *RegionWisePackingBox) Type() BoxType {
	return TypeRWPK
}

func (b *RegionWisePackingBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.ConstituentPictureMatching = s.ReadBit()
	s.ReadBits(7)
	count := s.ReadUint8()
	b.ProjPictureWidth = s.ReadUint32()
	b.ProjPictureHeight = s.ReadUint32()
	b.PackedPictureWidth = s.ReadUint16()
	b.PackedPictureHeight = s.ReadUint16()
	if !checkCount(s, uint64(count), 1) {
		return s.Err()
	}
	for range count {
		var r PackedRegion
		s.ReadBits(3)
		r.GuardBandFlag = s.ReadBit()
		r.PackingType = uint8(s.ReadBits(4))
		if r.PackingType == 0 {
			rect := &r.Rect
			rect.ProjRegWidth = s.ReadUint32()
			rect.ProjRegHeight = s.ReadUint32()
			rect.ProjRegTop = s.ReadUint32()
			rect.ProjRegLeft = s.ReadUint32()
			rect.TransformType = uint8(s.ReadBits(3))
			s.ReadBits(5)
			rect.PackedRegWidth = s.ReadUint16()
			rect.PackedRegHeight = s.ReadUint16()
			rect.PackedRegTop = s.ReadUint16()
			rect.PackedRegLeft = s.ReadUint16()
			if r.GuardBandFlag {
				gb := &r.GuardBand
				gb.LeftWidth = s.ReadUint8()
				gb.RightWidth = s.ReadUint8()
				gb.TopHeight = s.ReadUint8()
				gb.BottomHeight = s.ReadUint8()
				gb.NotUsedForPred = s.ReadBit()
				for j := range gb.Types {
					gb.Types[j] = uint8(s.ReadBits(3))
				}
				s.ReadBits(3)
			}
		}
		if s.Err() != nil {
			break
		}
		b.Regions = append(b.Regions, r)
	}
	return s.Err()
}

func (b *RegionWisePackingBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeRWPK)
	b.encodeFull(s)
	s.WriteBit(b.ConstituentPictureMatching)
	s.WriteBits(0, 7)
	s.WriteUint8(uint8(len(b.Regions)))
	s.WriteUint32(b.ProjPictureWidth)
	s.WriteUint32(b.ProjPictureHeight)
	s.WriteUint16(b.PackedPictureWidth)
	s.WriteUint16(b.PackedPictureHeight)
	for _, r := range b.Regions {
		s.WriteBits(0, 3)
		s.WriteBit(r.GuardBandFlag)
		s.WriteBits(uint32(r.PackingType), 4)
		if r.PackingType != 0 {
			continue
		}
		s.WriteUint32(r.Rect.ProjRegWidth)
		s.WriteUint32(r.Rect.ProjRegHeight)
		s.WriteUint32(r.Rect.ProjRegTop)
		s.WriteUint32(r.Rect.ProjRegLeft)
		s.WriteBits(uint32(r.Rect.TransformType), 3)
		s.WriteBits(0, 5)
		s.WriteUint16(r.Rect.PackedRegWidth)
		s.WriteUint16(r.Rect.PackedRegHeight)
		s.WriteUint16(r.Rect.PackedRegTop)
		s.WriteUint16(r.Rect.PackedRegLeft)
		if r.GuardBandFlag {
			s.WriteUint8(r.GuardBand.LeftWidth)
			s.WriteUint8(r.GuardBand.RightWidth)
			s.WriteUint8(r.GuardBand.TopHeight)
			s.WriteUint8(r.GuardBand.BottomHeight)
			s.WriteBit(r.GuardBand.NotUsedForPred)
			for _, t := range r.GuardBand.Types {
				s.WriteBits(uint32(t), 3)
			}
			s.WriteBits(0, 3)
		}
	}
	EndBox(s, pos)
}

// aligned(8) class CoverageInformationBox extends FullBox('covi', 0, 0) {
// 	ContentCoverageStruct();
// }
// aligned(8) ContentCoverageStruct() {
// 	unsigned int(8) coverage_shape_type;
// 	unsigned int(8) num_regions;
// 	unsigned int(1) view_idc_presence_flag;
// 	if (view_idc_presence_flag == 0) {
// 		unsigned int(2) default_view_idc;
// 		bit(5) reserved = 0;
// 	} else
// 		bit(7) reserved = 0;
// 	for ( i = 0; i < num_regions; i++) {
// 		if (view_idc_presence_flag == 1) {
// 			unsigned int(2) view_idc[i];
// 			bit(6) reserved = 0;
// 		}
// 		SphereRegionStruct(1);
// 	}
// }
// aligned(8) SphereRegionStruct(range_included_flag) {
// 	signed int(32) centre_azimuth;
// 	signed int(32) centre_elevation;
// 	signed int(32) centre_tilt;
// 	if (range_included_flag) {
// 		unsigned int(32) azimuth_range;
// 		unsigned int(32) elevation_range;
// 	}
// 	unsigned int(1) interpolate;
// 	bit(7) reserved = 0;
// }

type SphereRegion struct {
	CentreAzimuth   int32
	CentreElevation int32
	CentreTilt      int32
	AzimuthRange    uint32
	ElevationRange  uint32
	Interpolate     bool
}

type CoverageRegion struct {
	ViewIDC uint8
	SphereRegion
}

type CoverageInformationBox struct {
	FullBox
	CoverageShapeType uint8
	ViewIDCPresence   bool
	DefaultViewIDC    uint8
	Regions           []CoverageRegion
}

func (b *CoverageInformationBox) Type() BoxType {
	return TypeCOVI
}

func (b *CoverageInformationBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.CoverageShapeType = s.ReadUint8()
	count := s.ReadUint8()
	b.ViewIDCPresence = s.ReadBit()
	if !b.ViewIDCPresence {
		b.DefaultViewIDC = uint8(s.ReadBits(2))
		s.ReadBits(5)
	} else {
		s.ReadBits(7)
	}
	if !checkCount(s, uint64(count), 21) {
		return s.Err()
	}
	if count > 0 {
		b.Regions = make([]CoverageRegion, count)
	}
	for i := range b.Regions {
		r := &b.Regions[i]
		if b.ViewIDCPresence {
			r.ViewIDC = uint8(s.ReadBits(2))
			s.ReadBits(6)
		}
		r.CentreAzimuth = s.ReadInt32()
		r.CentreElevation = s.ReadInt32()
		r.CentreTilt = s.ReadInt32()
		r.AzimuthRange = s.ReadUint32()
		r.ElevationRange = s.ReadUint32()
		r.Interpolate = s.ReadBit()
		s.ReadBits(7)
	}
	return s.Err()
}

func (b *CoverageInformationBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeCOVI)
	b.encodeFull(s)
	s.WriteUint8(b.CoverageShapeType)
	s.WriteUint8(uint8(len(b.Regions)))
	s.WriteBit(b.ViewIDCPresence)
	if !b.ViewIDCPresence {
		s.WriteBits(uint32(b.DefaultViewIDC), 2)
		s.WriteBits(0, 5)
	} else {
		s.WriteBits(0, 7)
	}
	for _, r := range b.Regions {
		if b.ViewIDCPresence {
			s.WriteBits(uint32(r.ViewIDC), 2)
			s.WriteBits(0, 6)
		}
		s.WriteInt32(r.CentreAzimuth)
		s.WriteInt32(r.CentreElevation)
		s.WriteInt32(r.CentreTilt)
		s.WriteUint32(r.AzimuthRange)
		s.WriteUint32(r.ElevationRange)
		s.WriteBit(r.Interpolate)
		s.WriteBits(0, 7)
	}
	EndBox(s, pos)
}

// aligned(8) class RotationBox extends FullBox('rotn', 0, 0) {
// 	RotationStruct();
// }
// aligned(8) class RotationStruct() {
// 	signed int(32) rotation_yaw;
// 	signed int(32) rotation_pitch;
// 	signed int(32) rotation_roll;
// }

type RotationBox struct {
	FullBox
	Yaw   int32
	Pitch int32
	Roll  int32
}

func (b *RotationBox) Type() BoxType {
	return TypeROTN
}

func (b *RotationBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.Yaw = s.ReadInt32()
	b.Pitch = s.ReadInt32()
	b.Roll = s.ReadInt32()
	return s.Err()
}

func (b *RotationBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeROTN)
	b.encodeFull(s)
	s.WriteInt32(b.Yaw)
	s.WriteInt32(b.Pitch)
	s.WriteInt32(b.Roll)
	EndBox(s, pos)
}

// aligned(8) class StereoVideoBox extends FullBox('stvi', version = 0, 0) {
// 	template unsigned int(30) reserved = 0;
// 	unsigned int(2) single_view_allowed;
// 	unsigned int(32) stereo_scheme;
// 	unsigned int(32) length;
// 	unsigned int(8)[length] stereo_indication_type;
// 	Box[] any_box; // optional
// }

type StereoVideoBox struct {
	FullBox
	SingleViewAllowed    uint8
	StereoScheme         uint32
	StereoIndicationType []byte
}

func (b *StereoVideoBox) Type() BoxType {
	return TypeSTVI
}

func (b *StereoVideoBox) Decode(s *util.ByteStream) error {
	b.decodeFull(s)
	b.SingleViewAllowed = uint8(s.ReadUint32() & 3)
	b.StereoScheme = s.ReadUint32()
	n := s.ReadUint32()
	if !checkCount(s, uint64(n), 1) {
		return s.Err()
	}
	b.StereoIndicationType = cloneBytes(s.ReadN(int(n)))
	return s.Err()
}

func (b *StereoVideoBox) Encode(s *util.ByteStream) {
	pos := BeginBox(s, TypeSTVI)
	b.encodeFull(s)
	s.WriteUint32(uint32(b.SingleViewAllowed & 3))
	s.WriteUint32(b.StereoScheme)
	s.WriteUint32(uint32(len(b.StereoIndicationType)))
	s.WriteBytes(b.StereoIndicationType)
	EndBox(s, pos)
}
