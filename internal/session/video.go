package session

import (
	"encoding/json"
	"fmt"
	"os"
)

// VideoMeta is the subset of video metadata the alignment needs. Obtaining
// it from the container is the job of an external collaborator; it reaches
// this module through a JSON sidecar written at acquisition time.
type VideoMeta struct {
	FrameCount int     `json:"frame_count"`
	FPS        float64 `json:"fps,omitempty"`
}

// LoadVideoMeta reads a video metadata sidecar.
func LoadVideoMeta(path string) (VideoMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VideoMeta{}, fmt.Errorf("failed to read video metadata: %w", err)
	}
	var m VideoMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return VideoMeta{}, fmt.Errorf("failed to parse video metadata: %w", err)
	}
	if m.FrameCount < 0 {
		return VideoMeta{}, fmt.Errorf("video metadata: negative frame count %d", m.FrameCount)
	}
	return m, nil
}
