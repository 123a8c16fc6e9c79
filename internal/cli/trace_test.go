package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/engine"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/queryir"
	"github.com/roach88/flexi/internal/store"
	"github.com/roach88/flexi/internal/testutil"
)

type traceResponse struct {
	Status string      `json:"status"`
	Data   TraceResult `json:"data"`
}

// recordChain runs the damage chain scenario into a fresh database.
func recordChain(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "flexi.db")
	_, err := runRecorded(t, "json", dbPath,
		filepath.Join(scenariosDir, "chain_double_when_damaged.yaml"), testutil.NewSequentialRunIDs("t"))
	require.NoError(t, err)
	return dbPath
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceMissingRunID(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", "x.db")
	require.Error(t, err)
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "missing", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run not found: missing")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "run-1", "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceShowsChildren(t *testing.T) {
	dbPath := recordChain(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "t-1", "--db", dbPath)
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "normal_attack", resp.Data.Run.Ability)
	assert.Equal(t, ir.RunDone, resp.Data.Run.Status)
	require.NotEmpty(t, resp.Data.Trace)
	assert.Equal(t, ir.TraceRunStart, resp.Data.Trace[0].Kind)
	assert.Equal(t, ir.TraceRunEnd, resp.Data.Trace[len(resp.Data.Trace)-1].Kind)
	assert.Empty(t, resp.Data.Defects)
	assert.Nil(t, resp.Data.Parked)

	var children []string
	for _, c := range resp.Data.Children {
		children = append(children, c.RunID)
	}
	assert.Equal(t, []string{"t-2", "t-3"}, children)
}

func TestTraceKindFilter(t *testing.T) {
	dbPath := recordChain(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "t-3", "--db", dbPath, "--kind", "message")
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Trace, 2)
	for _, e := range resp.Data.Trace {
		assert.Equal(t, ir.TraceMessage, e.Kind)
	}
	assert.Equal(t, "I'm damaged!", resp.Data.Trace[0].Detail)
}

func TestTraceNodeFilter(t *testing.T) {
	dbPath := recordChain(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "t-3", "--db", dbPath, "--node", "3")
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.Trace)
	for _, e := range resp.Data.Trace {
		assert.Equal(t, 3, e.NodeID)
	}
}

func TestTraceFilter(t *testing.T) {
	assert.Equal(t,
		queryir.Equals{Field: "run_id", Value: ir.IRString("r")},
		traceFilter("r", "", 0))
	assert.Equal(t,
		queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: ir.IRString("r")},
			queryir.Equals{Field: "kind", Value: ir.IRString("node")},
			queryir.Equals{Field: "node_id", Value: ir.IRInt(2)},
		}},
		traceFilter("r", "node", 2))
}

func TestTraceTextOutput(t *testing.T) {
	dbPath := recordChain(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text", Verbose: true}), "t-2", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run: t-2")
	assert.Contains(t, out, "Ability: attack_double_when_damaged")
	assert.Contains(t, out, "Parent: t-1 (depth 1)")
	assert.Contains(t, out, "Payload: {")
	assert.Contains(t, out, "=== Trace ===")
	assert.Contains(t, out, "=== Triggered Runs ===")
	assert.Contains(t, out, "(none)")
}

func TestTraceParkedRun(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "parked.yaml", fmt.Sprintf(`name: parked
description: "a target choice left unanswered"
specs: [%q]
owners:
  - name: hero
    stats: { HEALTH: 10, ATTACK: 3 }
steps:
  - run: normal_attack_selection
    payload: { activator: "@hero" }
assertions:
  - type: choice_pending
    pending: true
`, combatSpec(t)))
	dbPath := filepath.Join(dir, "flexi.db")

	_, err := runRecorded(t, "json", dbPath, scenario, engine.NewFixedGenerator("p-1"))
	require.NoError(t, err)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "p-1", "--db", dbPath)
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ir.RunParked, resp.Data.Run.Status)
	require.NotNil(t, resp.Data.Parked)
	assert.NotEmpty(t, resp.Data.Parked.Hash)

	want, err := ir.ContinuationHash(resp.Data.Parked.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Data.Parked.Hash)
}
