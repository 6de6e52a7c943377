package codec

import (
	"bytes"
	"fmt"

	"github.com/deepch/vdk/codec/aacparser"
)

// AACConfig is the part of an AudioSpecificConfig the engine reports.
type AACConfig struct {
	ObjectType uint
	SampleRate int
	Channels   int
}

func ParseAACConfig(asc []byte) (AACConfig, error) {
	cfg, err := aacparser.ParseMPEG4AudioConfigBytes(asc)
	if err != nil {
		return AACConfig{}, fmt.Errorf("aac config: %w", err)
	}
	return AACConfig{
		ObjectType: cfg.ObjectType,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.ChannelLayout.Count(),
	}, nil
}

// Marshal writes the two-byte AudioSpecificConfig for the indexed sample
// rates and channel configurations 1..6 and 8.
func (c AACConfig) Marshal() ([]byte, error) {
	conf := aacparser.MPEG4AudioConfig{
		ObjectType:    c.ObjectType,
		SampleRate:    c.SampleRate,
		ChannelConfig: uint(c.Channels),
	}
	if conf.ObjectType == 0 {
		conf.ObjectType = aacparser.AOT_AAC_LC
	}
	switch c.Channels {
	case 1, 2, 3, 4, 5, 6:
	case 8:
		conf.ChannelConfig = 7
	default:
		return nil, fmt.Errorf("aac config: %d channels", c.Channels)
	}
	var b bytes.Buffer
	if err := aacparser.WriteMPEG4AudioConfig(&b, conf); err != nil {
		return nil, fmt.Errorf("aac config: %w", err)
	}
	// a rate without a table index comes out as index 0
	if back, err := ParseAACConfig(b.Bytes()); err != nil || back.SampleRate != c.SampleRate {
		return nil, fmt.Errorf("aac config: sample rate %d has no index", c.SampleRate)
	}
	return b.Bytes(), nil
}
