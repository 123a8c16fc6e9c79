package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flexi/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []ir.TraceEntry
	Messages     []string
}

// toCanonical converts the snapshot to an IRObject for canonical JSON.
func (s *TraceSnapshot) toCanonical() ir.IRObject {
	trace := make(ir.IRArray, len(s.Trace))
	for i, e := range s.Trace {
		entry := ir.IRObject{
			"seq":    ir.IRInt(e.Seq),
			"run_id": ir.IRString(e.RunID),
			"kind":   ir.IRString(string(e.Kind)),
		}
		if e.NodeID != ir.NoNode {
			entry["node_id"] = ir.IRInt(e.NodeID)
		}
		if e.Detail != "" {
			entry["detail"] = ir.IRString(e.Detail)
		}
		trace[i] = entry
	}
	messages := make(ir.IRArray, len(s.Messages))
	for i, m := range s.Messages {
		messages[i] = ir.IRString(m)
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         trace,
		"messages":      messages,
	}
}

// MarshalGolden returns the canonical JSON form compared against golden files.
func MarshalGolden(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace, Messages: result.Messages}
	return ir.MarshalCanonical(snapshot.toCanonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalGolden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
