package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rtsvc/internal/canon"
	"github.com/roach88/rtsvc/internal/testutil"
)

// TraceSnapshot captures the observable outcome of a scenario run.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	BootID       string       `json:"boot_id"`
	Halted       bool         `json:"halted"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any, the shape
// canon.Marshal accepts. Empty event fields are omitted.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{"type": event.Type}
		for k, v := range map[string]string{
			"name":       event.Name,
			"detail":     event.Detail,
			"fid":        event.FID,
			"descriptor": event.Descriptor,
			"handler":    event.Handler,
			"result":     event.Result,
		} {
			if v != "" {
				eventMap[k] = v
			}
		}
		if event.Seq != 0 {
			eventMap["seq"] = event.Seq
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"boot_id":       s.BootID,
		"halted":        s.Halted,
		"trace":         traceList,
	}
}

// Snapshot runs scenario and returns its canonical trace bytes.
func Snapshot(scenario *Scenario) ([]byte, *Result, error) {
	result, err := Run(scenario)
	if err != nil {
		return nil, nil, err
	}
	data, err := snapshotBytes(scenario.Name, scenario.BootID, result)
	return data, result, err
}

func snapshotBytes(name, bootID string, result *Result) ([]byte, error) {
	if bootID == "" {
		bootID = testutil.DefaultBootID
	}
	snapshot := TraceSnapshot{
		ScenarioName: name,
		BootID:       bootID,
		Halted:       result.Halted,
		Trace:        result.Trace,
	}
	return canon.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	traceJSON, result, err := Snapshot(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := snapshotBytes(scenarioName, "", result)
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
