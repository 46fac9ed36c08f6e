package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/loopsched/internal/plan"
)

// Snapshot captures a scenario run for golden comparison.
type Snapshot struct {
	Scenario    string            `json:"scenario"`
	Request     string            `json:"request"`
	Pass        bool              `json:"pass"`
	Errors      []string          `json:"errors,omitempty"`
	TripCount   uint64            `json:"trip_count"`
	Assignments []plan.Assignment `json:"assignments"`
	Metadata    []MetadataRow     `json:"metadata,omitempty"`
}

// MetadataRow is one recorded loop description. The run id and row id
// are left out; seq is deterministic.
type MetadataRow struct {
	Seq       int64  `json:"seq"`
	Op        string `json:"op"`
	Loc       string `json:"loc,omitempty"`
	Kind      string `json:"kind"`
	TripCount uint64 `json:"trip_count"`
	Chunk     uint64 `json:"chunk"`
	Executors uint32 `json:"executors"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{
		Scenario:    name,
		Request:     result.Request,
		Pass:        result.Pass,
		Errors:      result.Errors,
		Assignments: []plan.Assignment{},
	}
	if result.Plan != nil {
		snap.TripCount = result.Plan.TripCount
		snap.Assignments = result.Plan.Assignments
	}
	for _, rec := range result.Metadata {
		snap.Metadata = append(snap.Metadata, MetadataRow{
			Seq:       rec.Seq,
			Op:        string(rec.Op),
			Loc:       string(rec.Loc),
			Kind:      rec.Kind.String(),
			TripCount: rec.TripCount,
			Chunk:     rec.Chunk,
			Executors: rec.Executors,
		})
	}
	return snap
}

// Render returns the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Render() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Render()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
