package session

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PinState is the embedded per-frame digital signal recorded by the camera:
// the fronts of an external TTL as seen at capture time. Indices point into
// the camera's frame-counter array.
type PinState struct {
	Indices    []int
	Polarities []int8
}

// Len returns the number of pin-state fronts.
func (p PinState) Len() int { return len(p.Indices) }

// LoadFrameCounter reads the camera's embedded frame counter: a stream of
// little-endian uint32 values, one per saved frame.
func LoadFrameCounter(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame counter: %w", err)
	}
	defer f.Close()

	var count []int
	r := bufio.NewReader(f)
	var buf [4]byte
	for {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read frame counter: %w", err)
		}
		count = append(count, int(binary.LittleEndian.Uint32(buf[:])))
	}
	return count, nil
}

// LoadPinState reads the camera's embedded GPIO words (little-endian uint32,
// one per saved frame) and reduces them to pin-state fronts. A frame's pin
// is considered high when its word exceeds threshold; fronts are emitted at
// the frame indices where the level flips. Returns nil when the file is
// absent, which callers treat as "no pin state recorded".
func LoadPinState(path string, threshold uint32) (*PinState, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open pin state: %w", err)
	}
	defer f.Close()

	var pin PinState
	r := bufio.NewReader(f)
	var buf [4]byte
	prev := false
	for i := 0; ; i++ {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pin state: %w", err)
		}
		high := binary.LittleEndian.Uint32(buf[:]) > threshold
		if i == 0 {
			prev = high
			continue
		}
		if high != prev {
			pol := int8(-1)
			if high {
				pol = 1
			}
			pin.Indices = append(pin.Indices, i)
			pin.Polarities = append(pin.Polarities, pol)
			prev = high
		}
	}
	return &pin, nil
}

// LoadCameraTimes reads the camera's own per-frame clock: one float64
// seconds value per line, as logged by the acquisition workflow.
func LoadCameraTimes(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera times: %w", err)
	}
	defer f.Close()

	var ts []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("camera times line %d: %w", line, err)
		}
		ts = append(ts, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read camera times: %w", err)
	}
	return ts, nil
}
