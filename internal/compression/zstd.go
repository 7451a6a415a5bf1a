// Package compression provides the zstd codec the local store applies to
// objects at rest.
package compression

import (
	"github.com/klauspost/compress/zstd"
)

// Compression levels accepted by NewCompressor. Zero or below disables
// compression entirely.
const (
	LevelFastest = 1
	LevelDefault = 2
	LevelBetter  = 3
)

// Compressor compresses objects when it pays off and passes small or
// incompressible data through unchanged.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// NewCompressor creates a compressor for the given level.
func NewCompressor(level int) (*Compressor, error) {
	if level <= 0 {
		return &Compressor{}, nil
	}

	encoderLevel := zstd.SpeedDefault
	switch level {
	case LevelFastest:
		encoderLevel = zstd.SpeedFastest
	case LevelBetter:
		encoderLevel = zstd.SpeedBetterCompression
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Compressor{encoder: encoder, decoder: decoder, enabled: true}, nil
}

// Compress returns data compressed, or unchanged when compression is
// disabled, the input is tiny, or compression would grow it.
func (c *Compressor) Compress(data []byte) []byte {
	if !c.enabled || len(data) < 128 {
		return data
	}
	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(compressed) >= len(data) {
		return data
	}
	return compressed
}

// Decompress reverses Compress. Data that does not decode as zstd was
// stored uncompressed and comes back unchanged.
func (c *Compressor) Decompress(data []byte) []byte {
	if !c.enabled {
		return data
	}
	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return data
	}
	return decompressed
}

// Close releases the codec resources.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
