// Package config loads the extraction tuning parameters. All thresholds
// live here so that the alignment packages never hard-code a magic number;
// fields omitted from a JSON file fall back to the rig defaults through the
// Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

// DefaultConfigPath is the path to the canonical extraction defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/extraction.defaults.json"

// ExtractionConfig represents the root configuration for the extraction
// thresholds. Pointer fields distinguish "omitted" from "explicit zero" so
// partial configs are safe.
type ExtractionConfig struct {
	// Correspondence matching
	MatchTolerance *float64 `json:"match_tolerance,omitempty"`
	GroomTolerance *float64 `json:"groom_tolerance,omitempty"`

	// Camera-embedded pin state
	PinStateThreshold *uint32 `json:"pin_state_threshold,omitempty"`

	// Controller fallback
	RisingEvent  *string  `json:"rising_event,omitempty"`
	FallingEvent *string  `json:"falling_event,omitempty"`
	WidthRelTol  *float64 `json:"width_rel_tol,omitempty"`
	PeriodAbsTol *float64 `json:"period_abs_tol,omitempty"`

	// Passive stimulus segmentation
	SpacerJitter    *float64 `json:"spacer_jitter,omitempty"`
	SpacerQuiet     *float64 `json:"spacer_quiet,omitempty"`
	ExpectedSpacers *int     `json:"expected_spacers,omitempty"`
	ExpectedValves  *int     `json:"expected_valves,omitempty"`
	ExpectedTones   *int     `json:"expected_tones,omitempty"`
	ExpectedNoises  *int     `json:"expected_noises,omitempty"`
	ToneNoiseCutoff *float64 `json:"tone_noise_cutoff,omitempty"`

	GaborNominalWidth   *float64 `json:"gabor_nominal_width,omitempty"`
	GaborWidthTolerance *float64 `json:"gabor_width_tolerance,omitempty"`
	GaborMinPulse       *float64 `json:"gabor_min_pulse,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint32(v uint32) *uint32    { return &v }
func ptrString(v string) *string    { return &v }

// EmptyExtractionConfig returns an ExtractionConfig with all fields set to
// nil, meaning every accessor yields its default.
func EmptyExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{}
}

// LoadExtractionConfig loads an ExtractionConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadExtractionConfig(path string) (*ExtractionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q",
			timesync.ErrInvalidArgument, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)",
			timesync.ErrInvalidArgument, fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyExtractionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that explicitly set configuration values are usable.
// Violations are fatal before any extraction starts.
func (c *ExtractionConfig) Validate() error {
	positive := map[string]*float64{
		"match_tolerance":     c.MatchTolerance,
		"groom_tolerance":     c.GroomTolerance,
		"width_rel_tol":       c.WidthRelTol,
		"period_abs_tol":      c.PeriodAbsTol,
		"spacer_jitter":       c.SpacerJitter,
		"spacer_quiet":        c.SpacerQuiet,
		"tone_noise_cutoff":   c.ToneNoiseCutoff,
		"gabor_nominal_width": c.GaborNominalWidth,
		"gabor_min_pulse":     c.GaborMinPulse,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g",
				timesync.ErrInvalidArgument, name, *v)
		}
	}

	counts := map[string]*int{
		"expected_spacers": c.ExpectedSpacers,
		"expected_valves":  c.ExpectedValves,
		"expected_tones":   c.ExpectedTones,
		"expected_noises":  c.ExpectedNoises,
	}
	for name, v := range counts {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %d",
				timesync.ErrInvalidArgument, name, *v)
		}
	}

	if c.GaborWidthTolerance != nil {
		if *c.GaborWidthTolerance <= 0 {
			return fmt.Errorf("%w: gabor_width_tolerance must be positive, got %g",
				timesync.ErrInvalidArgument, *c.GaborWidthTolerance)
		}
		if *c.GaborWidthTolerance >= c.GetGaborNominalWidth() {
			return fmt.Errorf("%w: gabor_width_tolerance %g must be below the nominal width %g",
				timesync.ErrInvalidArgument, *c.GaborWidthTolerance, c.GetGaborNominalWidth())
		}
	}

	for name, v := range map[string]*string{
		"rising_event":  c.RisingEvent,
		"falling_event": c.FallingEvent,
	} {
		if v != nil && *v == "" {
			return fmt.Errorf("%w: %s must not be empty", timesync.ErrInvalidArgument, name)
		}
	}
	return nil
}

// GetMatchTolerance returns the fine correspondence window in seconds.
func (c *ExtractionConfig) GetMatchTolerance() float64 {
	if c.MatchTolerance == nil {
		return 0.1
	}
	return *c.MatchTolerance
}

// GetGroomTolerance returns the coarse pin-state attribution window in
// seconds. It is deliberately wide: the pin state and the reference live on
// clocks whose offset is unknown until the fit runs.
func (c *ExtractionConfig) GetGroomTolerance() float64 {
	if c.GroomTolerance == nil {
		return 2.0
	}
	return *c.GroomTolerance
}

// GetPinStateThreshold returns the raw counter value above which the
// embedded GPIO word reads as logic high.
func (c *ExtractionConfig) GetPinStateThreshold() uint32 {
	if c.PinStateThreshold == nil {
		return 1
	}
	return *c.PinStateThreshold
}

// GetRisingEvent returns the trial-log channel carrying frame-sync rises.
func (c *ExtractionConfig) GetRisingEvent() string {
	if c.RisingEvent == nil {
		return "Port1In"
	}
	return *c.RisingEvent
}

// GetFallingEvent returns the trial-log channel carrying frame-sync falls.
func (c *ExtractionConfig) GetFallingEvent() string {
	if c.FallingEvent == nil {
		return "Port1Out"
	}
	return *c.FallingEvent
}

// GetWidthRelTol returns the relative pulse-width tolerance of the
// controller fallback's sync test.
func (c *ExtractionConfig) GetWidthRelTol() float64 {
	if c.WidthRelTol == nil {
		return 0.1
	}
	return *c.WidthRelTol
}

// GetPeriodAbsTol returns the absolute pulse-period tolerance in seconds,
// just above the controller's 100µs refresh interval.
func (c *ExtractionConfig) GetPeriodAbsTol() float64 {
	if c.PeriodAbsTol == nil {
		return 0.00011
	}
	return *c.PeriodAbsTol
}

// GetSpacerJitter returns the per-front spacer matching tolerance in
// seconds, one extra display frame at 60Hz times three.
func (c *ExtractionConfig) GetSpacerJitter() float64 {
	if c.SpacerJitter == nil {
		return 3.0 / 60
	}
	return *c.SpacerJitter
}

// GetSpacerQuiet returns the silence required on both sides of a spacer
// occurrence in seconds.
func (c *ExtractionConfig) GetSpacerQuiet() float64 {
	if c.SpacerQuiet == nil {
		return 2.0
	}
	return *c.SpacerQuiet
}

// GetExpectedSpacers returns the number of spacer waveforms a full session
// protocol emits.
func (c *ExtractionConfig) GetExpectedSpacers() int {
	if c.ExpectedSpacers == nil {
		return 3
	}
	return *c.ExpectedSpacers
}

// GetExpectedValves returns the expected valve-opening count of the passive
// replay period.
func (c *ExtractionConfig) GetExpectedValves() int {
	if c.ExpectedValves == nil {
		return 40
	}
	return *c.ExpectedValves
}

// GetExpectedTones returns the expected go-tone count of the passive replay
// period.
func (c *ExtractionConfig) GetExpectedTones() int {
	if c.ExpectedTones == nil {
		return 40
	}
	return *c.ExpectedTones
}

// GetExpectedNoises returns the expected error-noise count of the passive
// replay period.
func (c *ExtractionConfig) GetExpectedNoises() int {
	if c.ExpectedNoises == nil {
		return 40
	}
	return *c.ExpectedNoises
}

// GetToneNoiseCutoff returns the audio pulse duration in seconds separating
// short go tones from long error noises.
func (c *ExtractionConfig) GetToneNoiseCutoff() float64 {
	if c.ToneNoiseCutoff == nil {
		return 0.3
	}
	return *c.ToneNoiseCutoff
}

// GetGaborNominalWidth returns the nominal visual stimulus pulse width in
// seconds.
func (c *ExtractionConfig) GetGaborNominalWidth() float64 {
	if c.GaborNominalWidth == nil {
		return 0.3
	}
	return *c.GaborNominalWidth
}

// GetGaborWidthTolerance returns the allowed deviation from the nominal
// visual pulse width in seconds.
func (c *ExtractionConfig) GetGaborWidthTolerance() float64 {
	if c.GaborWidthTolerance == nil {
		return 0.15
	}
	return *c.GaborWidthTolerance
}

// GetGaborMinPulse returns the shortest gap in seconds still counted as a
// distinct visual stimulus pulse.
func (c *ExtractionConfig) GetGaborMinPulse() float64 {
	if c.GaborMinPulse == nil {
		return 0.1
	}
	return *c.GaborMinPulse
}
