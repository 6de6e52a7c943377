package box

var registry = map[BoxType]func() Box{}

// Register makes DecodeBox build boxes of type t with newBox.
func Register(t BoxType, newBox func() Box) {
	registry[t] = newBox
}

func init() {
	for _, t := range []BoxType{TypeFTYP, TypeSTYP} {
		Register(t, func() Box { return &FileTypeBox{BoxType: t} })
	}
	for _, t := range []BoxType{TypeAVC1, TypeAVC3, TypeHVC1, TypeHEV1, TypeHVC2, TypeHEV2, TypeRESV, TypeENCV} {
		Register(t, func() Box { return &VisualSampleEntry{BoxType: t} })
	}
	for _, t := range []BoxType{TypeMP4A, TypeENCA} {
		Register(t, func() Box { return &AudioSampleEntry{BoxType: t} })
	}
	for _, t := range []BoxType{TypeRINF, TypeSINF} {
		Register(t, func() Box { return &SchemeInfoBox{BoxType: t} })
	}
	Register(TypeURIM, func() Box { return &URIMetaSampleEntry{} })
	Register(TypeURI, func() Box { return &URIBox{} })
	Register(TypeURII, func() Box { return &URIInitBox{} })

	Register(TypeMOOV, func() Box { return &MovieBox{} })
	Register(TypeMVHD, func() Box { return &MovieHeaderBox{} })
	Register(TypeTRAK, func() Box { return &TrackBox{} })
	Register(TypeTKHD, func() Box { return &TrackHeaderBox{} })
	Register(TypeTREF, func() Box { return &TrackReferenceBox{} })
	Register(TypeTRGR, func() Box { return &TrackGroupBox{} })
	Register(TypeEDTS, func() Box { return &EditBox{} })
	Register(TypeELST, func() Box { return &EditListBox{} })
	Register(TypeMDIA, func() Box { return &MediaBox{} })
	Register(TypeMDHD, func() Box { return &MediaHeaderBox{} })
	Register(TypeHDLR, func() Box { return &HandlerBox{} })
	Register(TypeMINF, func() Box { return &MediaInformationBox{} })
	Register(TypeVMHD, func() Box { return &VideoMediaHeaderBox{} })
	Register(TypeSMHD, func() Box { return &SoundMediaHeaderBox{} })
	Register(TypeNMHD, func() Box { return &NullMediaHeaderBox{} })
	Register(TypeDINF, func() Box { return &DataInformationBox{} })
	Register(TypeDREF, func() Box { return &DataReferenceBox{} })
	Register(TypeURL, func() Box { return &DataEntryURLBox{} })

	Register(TypeSTBL, func() Box { return &SampleTableBox{} })
	Register(TypeSTSD, func() Box { return &SampleDescriptionBox{} })
	Register(TypeSTTS, func() Box { return &TimeToSampleBox{} })
	Register(TypeCTTS, func() Box { return &CompositionOffsetBox{} })
	Register(TypeSTSC, func() Box { return &SampleToChunkBox{} })
	Register(TypeSTSZ, func() Box { return &SampleSizeBox{} })
	Register(TypeSTCO, func() Box { return &ChunkOffsetBox{} })
	Register(TypeCO64, func() Box { return &ChunkLargeOffsetBox{} })
	Register(TypeSTSS, func() Box { return &SyncSampleBox{} })

	Register(TypeMVEX, func() Box { return &MovieExtendsBox{} })
	Register(TypeMEHD, func() Box { return &MovieExtendsHeaderBox{} })
	Register(TypeTREX, func() Box { return &TrackExtendsBox{} })
	Register(TypeMOOF, func() Box { return &MovieFragmentBox{} })
	Register(TypeMFHD, func() Box { return &MovieFragmentHeaderBox{} })
	Register(TypeTRAF, func() Box { return &TrackFragmentBox{} })
	Register(TypeTFHD, func() Box { return &TrackFragmentHeaderBox{} })
	Register(TypeTFDT, func() Box { return &TrackFragmentBaseMediaDecodeTimeBox{} })
	Register(TypeTRUN, func() Box { return &TrackRunBox{} })
	Register(TypeSIDX, func() Box { return &SegmentIndexBox{} })
	Register(TypeMDAT, func() Box { return &MediaDataBox{} })

	Register(TypeAVCC, func() Box { return &AVCConfigurationBox{} })
	Register(TypeHVCC, func() Box { return &HEVCConfigurationBox{} })
	Register(TypeESDS, func() Box { return &ESDBox{} })
	Register(TypeCHNL, func() Box { return &ChannelLayoutBox{} })
	Register(TypeSA3D, func() Box { return &SpatialAudioBox{} })

	Register(TypeFRMA, func() Box { return &OriginalFormatBox{} })
	Register(TypeSCHM, func() Box { return &SchemeTypeBox{} })
	Register(TypeSCHI, func() Box { return &SchemeInformationBox{} })
	Register(TypePOVD, func() Box { return &ProjectedOmniVideoBox{} })
	Register(TypePRFR, func() Box { return &ProjectionFormatBox{} })
	Register(TypeRWPK, func() Box { return &RegionWisePackingBox{} })
	Register(TypeCOVI, func() Box { return &CoverageInformationBox{} })
	Register(TypeROTN, func() Box { return &RotationBox{} })
	Register(TypeSTVI, func() Box { return &StereoVideoBox{} })

	Register(TypeST3D, func() Box { return &StereoscopicVideoBox{} })
	Register(TypeSV3D, func() Box { return &SphericalVideoBox{} })
	Register(TypeSVHD, func() Box { return &SphericalVideoHeaderBox{} })
	Register(TypePROJ, func() Box { return &ProjectionBox{} })
	Register(TypePRHD, func() Box { return &ProjectionHeaderBox{} })
	Register(TypeEQUI, func() Box { return &EquirectangularProjectionBox{} })
	Register(TypeCBMP, func() Box { return &CubemapProjectionBox{} })
	Register(TypeUUID, func() Box { return &UUIDBox{} })
}
