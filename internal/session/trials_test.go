package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.jsonl")
	content := `{"events":{"Port1In":[0,0.1],"Port1Out":[0.02,0.12]}}
{"events":{"Port1In":[0.5],"Port1Out":[0.52]}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	trials, err := LoadTrials(path)
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, []float64{0, 0.1}, trials[0].Events["Port1In"])
	assert.Equal(t, []float64{0.52}, trials[1].Events["Port1Out"])
}

func TestLoadTrialsRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))
	_, err := LoadTrials(path)
	assert.Error(t, err)
}

func TestTrialFronts(t *testing.T) {
	trials := []Trial{
		{Events: map[string][]float64{
			"BNC1High": {0, 0.2},
			"BNC1Low":  {0.1, 0.3},
		}},
		{Events: map[string][]float64{
			"BNC1High": {1.0},
			"BNC1Low":  {1.1},
		}},
	}
	f := TrialFronts(trials, "BNC1High", "BNC1Low")
	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3, 1.0, 1.1}, f.Times)
	assert.Equal(t, []int8{1, -1, 1, -1, 1, -1}, f.Polarities)
	assert.NoError(t, f.ValidateLeadingHigh())
}
