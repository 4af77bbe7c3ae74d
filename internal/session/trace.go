// Package session holds the input data contracts of an extraction run and
// readers for the fixture formats they are persisted in. All loading happens
// here, strictly before the alignment algorithms are invoked; the core
// packages only ever see resolved in-memory slices.
package session

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

// Trace is the raw synchronization trace of a recording: every front
// detected on the hardware sync lines, across all channels, in time order.
type Trace struct {
	Times      []float64
	Channels   []int
	Polarities []int8
}

// ChannelMap names the sync channel indices of a rig.
type ChannelMap map[string]int

// DefaultChannelMap is the wiring of the standard recording rig.
func DefaultChannelMap() ChannelMap {
	return ChannelMap{
		"left_camera":  2,
		"right_camera": 3,
		"body_camera":  4,
		"frame2ttl":    12,
		"audio":        15,
		"bpod":         16,
	}
}

// Fronts returns the trace's fronts on one channel, restricted to times at
// or after tmin.
func (t Trace) Fronts(channel int, tmin float64) timesync.Fronts {
	var f timesync.Fronts
	for i := range t.Times {
		if t.Channels[i] != channel || t.Times[i] < tmin {
			continue
		}
		f.Times = append(f.Times, t.Times[i])
		f.Polarities = append(f.Polarities, t.Polarities[i])
		f.Indices = append(f.Indices, i)
	}
	return f
}

// End returns the last front time on any channel, or 0 for an empty trace.
func (t Trace) End() float64 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

// LoadTrace reads a sync trace from a whitespace-separated text file with
// one "time channel polarity" triple per line. Blank lines and lines
// starting with '#' are skipped.
func LoadTrace(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, fmt.Errorf("failed to open sync trace: %w", err)
	}
	defer f.Close()

	var t Trace
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return Trace{}, fmt.Errorf("sync trace line %d: want 3 fields, got %d", line, len(fields))
		}
		tm, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Trace{}, fmt.Errorf("sync trace line %d: bad time: %w", line, err)
		}
		ch, err := strconv.Atoi(fields[1])
		if err != nil {
			return Trace{}, fmt.Errorf("sync trace line %d: bad channel: %w", line, err)
		}
		pol, err := strconv.Atoi(fields[2])
		if err != nil {
			return Trace{}, fmt.Errorf("sync trace line %d: bad polarity: %w", line, err)
		}
		if pol != 1 && pol != -1 {
			return Trace{}, fmt.Errorf("sync trace line %d: polarity must be 1 or -1, got %d", line, pol)
		}
		t.Times = append(t.Times, tm)
		t.Channels = append(t.Channels, ch)
		t.Polarities = append(t.Polarities, int8(pol))
	}
	if err := scanner.Err(); err != nil {
		return Trace{}, fmt.Errorf("failed to read sync trace: %w", err)
	}
	return t, nil
}
