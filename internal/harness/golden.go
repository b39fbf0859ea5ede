package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/turtle/internal/ir"
)

// TranscriptSnapshot is the golden form of a scenario: each run's tier and
// command log in transcript form.
type TranscriptSnapshot struct {
	ScenarioName string
	Level        string
	Runs         []RunRecord
}

// toCanonicalMap converts the snapshot for ir.MarshalCanonical, which has
// no floats, so poses are left out.
func (s *TranscriptSnapshot) toCanonicalMap() map[string]any {
	runs := make([]any, len(s.Runs))
	for i, r := range s.Runs {
		log := make([]any, len(r.Log))
		for j, line := range r.Log {
			log[j] = line
		}
		run := map[string]any{
			"attempt": r.Attempt,
			"tier":    r.Tier.String(),
			"log":     log,
		}
		if r.Notice != "" {
			run["notice"] = r.Notice
		}
		runs[i] = run
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"level":         s.Level,
		"runs":          runs,
	}
}

// MarshalTranscript renders a result in golden form.
func MarshalTranscript(name, levelID string, result *Result) ([]byte, error) {
	snapshot := TranscriptSnapshot{
		ScenarioName: name,
		Level:        levelID,
		Runs:         result.Runs,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden runs a scenario and compares its transcript with
// testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.Level, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name, levelID string, result *Result) error {
	t.Helper()

	data, err := MarshalTranscript(name, levelID, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
