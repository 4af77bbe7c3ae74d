// Command framesync extracts per-frame video timestamps for one or more
// recording sessions and persists them, with their diagnostics and optional
// passive stimulus tables, to a SQLite results database.
//
// A session directory holds:
//
//	sync.txt                  hardware sync trace (ephys sessions)
//	trials.jsonl              behavioral-controller trial log (training/biased)
//	<label>.times.txt         camera-clock frame times
//	<label>.counter.bin       embedded frame counter (little-endian uint32)
//	<label>.gpio.bin          embedded pin state words (optional)
//	<label>.video.json        video metadata sidecar
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/neurodata-tools/framesync/internal/camera"
	"github.com/neurodata-tools/framesync/internal/config"
	"github.com/neurodata-tools/framesync/internal/monitoring"
	"github.com/neurodata-tools/framesync/internal/session"
	"github.com/neurodata-tools/framesync/internal/stimulus"
	"github.com/neurodata-tools/framesync/internal/store"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

var (
	sessionPath  = flag.String("session", "", "Session directory to extract")
	sessionType  = flag.String("type", "ephys", "Session type: ephys, training or biased")
	labels       = flag.String("labels", "left_camera", "Comma-separated camera labels")
	dbPath       = flag.String("db", "framesync.db", "Results database path")
	configPath   = flag.String("config", "", "Extraction config JSON (rig defaults when empty)")
	sessionsFile = flag.String("sessions", "", "Batch file with one 'path type' pair per line")
	nanFill      = flag.Bool("nan-fill", false, "NaN-fill missing tail timestamps instead of extrapolating")
	passive      = flag.Bool("passive", false, "Also extract passive stimulus interval tables (ephys only)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

// bpodAudioRising and bpodAudioFalling are the controller log's audio line
// event names, the reference channel of the fallback correction.
const (
	bpodAudioRising  = "BNC2High"
	bpodAudioFalling = "BNC2Low"
)

// spacerTemplate is the passive protocol's spacer waveform: front times
// relative to the first front.
var spacerTemplate = []float64{0, 0.1, 0.2, 0.3, 0.5, 0.6, 0.8, 0.9, 1.2, 1.3, 1.7, 1.8}

type sessionSpec struct {
	path string
	typ  string
}

func main() {
	flag.Parse()

	if *debug {
		release := monitoring.DebugScope()
		defer release()
	}

	cfg := config.EmptyExtractionConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadExtractionConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	sessions, err := resolveSessions()
	if err != nil {
		log.Fatal(err)
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer db.Close()

	camLabels := strings.Split(*labels, ",")

	// One bad session must not sink the batch.
	failures := 0
	for _, s := range sessions {
		if err := extractSession(db, cfg, camLabels, s); err != nil {
			log.Printf("session %s failed: %v", s.path, err)
			failures++
		}
	}
	if failures > 0 {
		log.Fatalf("%d of %d sessions failed", failures, len(sessions))
	}
}

func resolveSessions() ([]sessionSpec, error) {
	if *sessionsFile == "" {
		if *sessionPath == "" {
			return nil, fmt.Errorf("either -session or -sessions is required")
		}
		return []sessionSpec{{path: *sessionPath, typ: *sessionType}}, nil
	}

	f, err := os.Open(*sessionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open sessions file: %w", err)
	}
	defer f.Close()

	var out []sessionSpec
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("sessions file line %d: want 'path type', got %q", line, text)
		}
		out = append(out, sessionSpec{path: fields[0], typ: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sessions file %s lists no sessions", *sessionsFile)
	}
	return out, nil
}

func extractSession(db *store.DB, cfg *config.ExtractionConfig, camLabels []string, s sessionSpec) error {
	run := store.NewRun(s.path, s.typ)
	log.Printf("extracting %s (%s) as run %s", s.path, s.typ, run.ID)

	var results []camera.Result
	intervals := map[string][]timesync.Interval{}

	switch s.typ {
	case "ephys":
		trace, err := session.LoadTrace(filepath.Join(s.path, "sync.txt"))
		if err != nil {
			return err
		}
		chans := session.DefaultChannelMap()
		audio := trace.Fronts(chans["audio"], 0)

		for _, label := range camLabels {
			res, err := extractHardware(cfg, s, trace, audio, label)
			if err != nil {
				return fmt.Errorf("camera %s: %w", label, err)
			}
			logDiagnostics(res)
			results = append(results, res)
		}

		if *passive {
			// Stimulus tables never block the timestamp extraction; a
			// failure is logged against the session and the run proceeds.
			if err := extractPassive(cfg, trace, chans, intervals); err != nil {
				log.Printf("session %s: passive extraction failed: %v", s.path, err)
			}
		}

	case "training", "biased":
		trials, err := session.LoadTrials(filepath.Join(s.path, "trials.jsonl"))
		if err != nil {
			return err
		}
		for _, label := range camLabels {
			res, err := extractBpod(cfg, s, trials, label)
			if err != nil {
				return fmt.Errorf("camera %s: %w", label, err)
			}
			logDiagnostics(res)
			results = append(results, res)
		}

	default:
		return fmt.Errorf("%w: unknown session type %q", timesync.ErrInvalidArgument, s.typ)
	}

	return db.SaveRun(run, results, intervals)
}

func extractHardware(cfg *config.ExtractionConfig, s sessionSpec, trace session.Trace, audio timesync.Fronts, label string) (camera.Result, error) {
	chans := session.DefaultChannelMap()
	ch, ok := chans[label]
	if !ok {
		return camera.Result{}, fmt.Errorf("%w: no sync channel for camera %q",
			timesync.ErrInvalidArgument, label)
	}

	count, pin, meta, err := loadCameraFiles(cfg, s.path, label)
	if err != nil {
		return camera.Result{}, err
	}
	camTimes, err := session.LoadCameraTimes(filepath.Join(s.path, label+".times.txt"))
	if err != nil {
		return camera.Result{}, err
	}

	hw := &camera.HardwareSource{In: camera.HardwareInputs{
		CameraLabel:      label,
		HardwareCamTimes: trace.Fronts(ch, 0).Rising(),
		TTL:              audio,
		CameraClockTimes: camTimes,
		Count:            count,
		Pin:              pin,
		VideoFrames:      meta.FrameCount,
		GroomTolerance:   cfg.GetGroomTolerance(),
		Extrapolate:      !*nanFill,
	}}
	src, err := camera.SourceForSession(s.typ, hw, nil)
	if err != nil {
		return camera.Result{}, err
	}
	return src.Extract()
}

func extractBpod(cfg *config.ExtractionConfig, s sessionSpec, trials []session.Trial, label string) (camera.Result, error) {
	count, pin, meta, err := loadCameraFiles(cfg, s.path, label)
	if err != nil {
		return camera.Result{}, err
	}

	opts := camera.BpodOptions{
		RisingEvent:  cfg.GetRisingEvent(),
		FallingEvent: cfg.GetFallingEvent(),
		WidthRelTol:  cfg.GetWidthRelTol(),
		PeriodAbsTol: cfg.GetPeriodAbsTol(),
	}
	bpod := &camera.BpodSource{In: camera.BpodInputs{
		CameraLabel:    label,
		Trials:         trials,
		VideoFrames:    meta.FrameCount,
		Options:        opts,
		Count:          count,
		Pin:            pin,
		TTL:            session.TrialFronts(trials, bpodAudioRising, bpodAudioFalling),
		GroomTolerance: cfg.GetGroomTolerance(),
		Extrapolate:    !*nanFill,
	}}
	src, err := camera.SourceForSession(s.typ, nil, bpod)
	if err != nil {
		return camera.Result{}, err
	}
	return src.Extract()
}

func loadCameraFiles(cfg *config.ExtractionConfig, path, label string) ([]int, *session.PinState, session.VideoMeta, error) {
	count, err := session.LoadFrameCounter(filepath.Join(path, label+".counter.bin"))
	if err != nil {
		return nil, nil, session.VideoMeta{}, err
	}
	pin, err := session.LoadPinState(filepath.Join(path, label+".gpio.bin"), cfg.GetPinStateThreshold())
	if err != nil {
		return nil, nil, session.VideoMeta{}, err
	}
	meta, err := session.LoadVideoMeta(filepath.Join(path, label+".video.json"))
	if err != nil {
		return nil, nil, session.VideoMeta{}, err
	}
	return count, pin, meta, nil
}

func extractPassive(cfg *config.ExtractionConfig, trace session.Trace, chans session.ChannelMap, intervals map[string][]timesync.Interval) error {
	f2ttl := trace.Fronts(chans["frame2ttl"], 0)
	periods, err := stimulus.FindPeriods(f2ttl.Times, spacerTemplate,
		cfg.GetSpacerJitter(), cfg.GetSpacerQuiet(), cfg.GetExpectedSpacers(), trace.End())
	if err != nil {
		return err
	}
	intervals["spontaneous"] = []timesync.Interval{periods.Spontaneous}
	intervals["rf_mapping"] = []timesync.Interval{periods.RFMapping}
	intervals["replay"] = []timesync.Interval{periods.Replay}

	gabor, err := stimulus.GaborIntervals(stimulus.Clip(f2ttl, periods.RFMapping),
		cfg.GetGaborNominalWidth(), cfg.GetGaborWidthTolerance(), cfg.GetGaborMinPulse())
	if err != nil {
		return err
	}
	intervals["gabor"] = gabor

	valveFronts := stimulus.Clip(trace.Fronts(chans["bpod"], 0), periods.Replay)
	valve, err := stimulus.ValveIntervals(valveFronts, cfg.GetExpectedValves(), cfg.GetPeriodAbsTol())
	if err != nil {
		return err
	}
	intervals["valve"] = valve

	audioFronts := stimulus.Clip(trace.Fronts(chans["audio"], 0), periods.Replay)
	tones, noises, err := stimulus.AudioIntervals(audioFronts,
		cfg.GetToneNoiseCutoff(), cfg.GetExpectedTones(), cfg.GetExpectedNoises())
	if err != nil {
		return err
	}
	intervals["tone"] = tones
	intervals["noise"] = noises
	return nil
}

func logDiagnostics(res camera.Result) {
	d := res.Diag
	if d.RawFallback {
		log.Printf("camera %s: %d raw hardware timestamps (no pin state)", res.Label, len(res.Times))
		return
	}
	log.Printf("camera %s: %d frame times, drift %.2fppm, tail %d",
		res.Label, len(res.Times), d.DriftPPM, d.ExtrapolatedTail)
	if n := d.UnseenTTLRises + d.UnseenTTLFalls; n > 0 {
		monitoring.Logf("camera %s: %d reference TTL fronts unseen by the camera", res.Label, n)
	}
	if n := d.DroppedPinRises + d.DroppedPinFalls; n > 0 {
		monitoring.Logf("camera %s: %d pin-state fronts dropped", res.Label, n)
	}
	if d.OutOfSyncTrials > 0 {
		monitoring.Logf("camera %s: %d out-of-sync trials", res.Label, d.OutOfSyncTrials)
	}
}
