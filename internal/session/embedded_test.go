package session

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUint32s(t *testing.T, name string, vals []uint32) string {
	t.Helper()
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestLoadFrameCounter(t *testing.T) {
	path := writeUint32s(t, "counter.bin", []uint32{0, 1, 2, 4, 5})
	count, err := LoadFrameCounter(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 4, 5}, count)
}

func TestLoadPinState(t *testing.T) {
	// Pin low for 2 frames, high for 2, low for 1, high again.
	path := writeUint32s(t, "gpio.bin", []uint32{0, 0, 100, 100, 0, 100})
	pin, err := LoadPinState(path, 1)
	require.NoError(t, err)
	require.NotNil(t, pin)
	assert.Equal(t, []int{2, 4, 5}, pin.Indices)
	assert.Equal(t, []int8{1, -1, 1}, pin.Polarities)
}

func TestLoadPinStateThreshold(t *testing.T) {
	// Values at the threshold read as low; only strictly above flips high.
	path := writeUint32s(t, "gpio.bin", []uint32{0, 1, 2, 1})
	pin, err := LoadPinState(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, pin.Indices)
	assert.Equal(t, []int8{1, -1}, pin.Polarities)
}

func TestLoadPinStateMissingFileMeansNoPinState(t *testing.T) {
	pin, err := LoadPinState(filepath.Join(t.TempDir(), "absent.bin"), 1)
	require.NoError(t, err)
	assert.Nil(t, pin)
}

func TestLoadCameraTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "times.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.0\n0.05\n\n0.1\n"), 0o644))
	ts, err := LoadCameraTimes(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.05, 0.1}, ts)
}
