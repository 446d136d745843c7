package monitor_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/monitor"
)

func TestZstdCompressor_RoundTrip(t *testing.T) {
	comp, err := monitor.NewZstdCompressor()
	require.NoError(t, err)
	defer comp.Close()

	input := bytes.Repeat([]byte(`{"gift_id":"5655","gift_name":"Rose"}`), 100)
	compressed, err := comp.Compress(input)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(input))

	decompressed, err := comp.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, input, decompressed)
}

func TestZstdCompressor_EmptyInput(t *testing.T) {
	comp, err := monitor.NewZstdCompressor()
	require.NoError(t, err)
	defer comp.Close()

	compressed, err := comp.Compress(nil)
	require.NoError(t, err)

	decompressed, err := comp.Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, decompressed)
}

func TestZstdCompressor_GarbageInput(t *testing.T) {
	comp, err := monitor.NewZstdCompressor()
	require.NoError(t, err)
	defer comp.Close()

	_, err = comp.Decompress([]byte("definitely not zstd"))
	assert.Error(t, err)
}
