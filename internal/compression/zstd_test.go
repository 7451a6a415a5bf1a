package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressorRoundTrip(t *testing.T) {
	c, err := NewCompressor(LevelDefault)
	require.NoError(t, err)
	defer c.Close()

	data := bytes.Repeat([]byte("a block of compressible text "), 32)
	compressed := c.Compress(data)
	assert.Less(t, len(compressed), len(data))
	assert.Equal(t, data, c.Decompress(compressed))
}

func TestCompressorPassesTinyDataThrough(t *testing.T) {
	c, err := NewCompressor(LevelDefault)
	require.NoError(t, err)
	defer c.Close()

	data := []byte("short")
	assert.Equal(t, data, c.Compress(data))
	assert.Equal(t, data, c.Decompress(data))
}

func TestCompressorDisabled(t *testing.T) {
	c, err := NewCompressor(0)
	require.NoError(t, err)
	defer c.Close()

	data := bytes.Repeat([]byte("would compress fine "), 32)
	assert.Equal(t, data, c.Compress(data))
	assert.Equal(t, data, c.Decompress(data))
}

func TestCompressorLevels(t *testing.T) {
	data := bytes.Repeat([]byte("level comparison payload "), 64)
	for _, level := range []int{LevelFastest, LevelDefault, LevelBetter} {
		c, err := NewCompressor(level)
		require.NoError(t, err)
		assert.Equal(t, data, c.Decompress(c.Compress(data)), "level %d", level)
		c.Close()
	}
}
