package box

// SampleFlags is the 32-bit sample_flags word of trex, tfhd and trun.
//
//	bit(4) reserved=0;
//	unsigned int(2) is_leading;
//	unsigned int(2) sample_depends_on;
//	unsigned int(2) sample_is_depended_on;
//	unsigned int(2) sample_has_redundancy;
//	bit(3) sample_padding_value;
//	bit(1) sample_is_non_sync_sample;
//	unsigned int(16) sample_degradation_priority;
type SampleFlags uint32

const (
	SampleDependsOnUnknown uint8 = 0
	SampleDependsOnOthers  uint8 = 1
	SampleDependsOnNone    uint8 = 2

	SyncSampleFlags    = SampleFlags(uint32(SampleDependsOnNone) << 24)
	NonSyncSampleFlags = SampleFlags(uint32(SampleDependsOnOthers)<<24 | 1<<16)
)

func (f SampleFlags) IsLeading() uint8 {
	return uint8(f>>26) & 3
}

func (f SampleFlags) DependsOn() uint8 {
	return uint8(f>>24) & 3
}

func (f SampleFlags) IsDependedOn() uint8 {
	return uint8(f>>22) & 3
}

func (f SampleFlags) HasRedundancy() uint8 {
	return uint8(f>>20) & 3
}

func (f SampleFlags) PaddingValue() uint8 {
	return uint8(f>>17) & 7
}

func (f SampleFlags) IsNonSync() bool {
	return f>>16&1 == 1
}

func (f SampleFlags) DegradationPriority() uint16 {
	return uint16(f)
}

// IsSync is true for samples that start a decodable run.
func (f SampleFlags) IsSync() bool {
	return !f.IsNonSync() && f.DependsOn() != SampleDependsOnOthers
}
