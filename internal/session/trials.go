package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

// Trial is one behavioral-controller trial: named digital-event channels
// mapped to their edge time lists. Input events (e.g. "Port1In") carry
// rising edges, output events ("Port1Out") the matching falling edges.
type Trial struct {
	Events map[string][]float64 `json:"events"`
}

// LoadTrials reads a behavioral-controller trial log: one JSON object per
// line, each holding that trial's event timestamp map.
func LoadTrials(path string) ([]Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trial log: %w", err)
	}
	defer f.Close()

	var trials []Trial
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var t Trial
		if err := json.Unmarshal(scanner.Bytes(), &t); err != nil {
			return nil, fmt.Errorf("trial log line %d: %w", line, err)
		}
		trials = append(trials, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trial log: %w", err)
	}
	return trials, nil
}

// TrialFronts merges one rising and one falling event channel across all
// trials into a single time-ordered front set, the behavioral-controller
// equivalent of a hardware sync channel.
func TrialFronts(trials []Trial, risingEvent, fallingEvent string) timesync.Fronts {
	type front struct {
		t   float64
		pol int8
	}
	var all []front
	for _, tr := range trials {
		for _, t := range tr.Events[risingEvent] {
			all = append(all, front{t, 1})
		}
		for _, t := range tr.Events[fallingEvent] {
			all = append(all, front{t, -1})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].t < all[j].t })

	var f timesync.Fronts
	for _, fr := range all {
		f.Times = append(f.Times, fr.t)
		f.Polarities = append(f.Polarities, fr.pol)
	}
	return f
}
