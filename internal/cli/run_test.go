package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/engine"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/store"
	"github.com/roach88/flexi/internal/testutil"
)

// runRecorded runs scenarioFile into dbPath with deterministic run ids and
// returns stdout.
func runRecorded(t *testing.T, format, dbPath, scenarioFile string, ids engine.RunIDGenerator) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	opts := &RunOptions{RootOptions: &RootOptions{Format: format}, Database: dbPath, IDs: ids}
	err := runScenarioRecorded(opts, scenarioFile, cmd)
	return buf.String(), err
}

type runResponse struct {
	Status string     `json:"status"`
	Data   RunSummary `json:"data"`
	Error  *CLIError  `json:"error"`
}

func TestRunMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), filepath.Join(scenariosDir, "hello_world.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRunRecordsChain(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flexi.db")

	out, err := runRecorded(t, "json", dbPath,
		filepath.Join(scenariosDir, "chain_double_when_damaged.yaml"), testutil.NewSequentialRunIDs("t"))
	require.NoError(t, err, out)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	require.Len(t, resp.Data.Runs, 4)
	assert.Equal(t, "normal_attack", resp.Data.Runs[0].Ability)
	assert.Equal(t, "t-1", resp.Data.Runs[1].ParentRun)
	assert.Equal(t, 1, resp.Data.Runs[1].Depth)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	runs, err := st.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	for _, r := range runs {
		assert.Equal(t, ir.RunDone, r.Status, r.RunID)
	}

	trace, err := st.ReadTrace(ctx, "t-3")
	require.NoError(t, err)
	require.NotEmpty(t, trace)
	assert.Equal(t, ir.TraceRunStart, trace[0].Kind)
	assert.Equal(t, "log_when_attacked", trace[0].Detail)
}

func TestRunContinuesClockAcrossInvocations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flexi.db")
	scenario := filepath.Join(scenariosDir, "hello_world.yaml")

	_, err := runRecorded(t, "json", dbPath, scenario, engine.NewFixedGenerator("first"))
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	last, err := st.LastSeq(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Positive(t, last)

	out, err := runRecorded(t, "json", dbPath, scenario, engine.NewFixedGenerator("second"))
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "second", resp.Data.Runs[0].RunID)
	assert.Greater(t, resp.Data.Runs[0].Seq, last)
}

func TestRunDefaultsToUUIDv7(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flexi.db")

	out, err := runRecorded(t, "json", dbPath, filepath.Join(scenariosDir, "hello_world.yaml"), nil)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Len(t, resp.Data.Runs[0].RunID, 36)
	assert.Equal(t, []string{"Hello", "World!"}, resp.Data.Messages)
}

func TestRunTextOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flexi.db")

	out, err := runRecorded(t, "text", dbPath, filepath.Join(scenariosDir, "hello_world.yaml"),
		engine.NewFixedGenerator("run-x"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hello_world (recorded in "+dbPath+")")
	assert.Contains(t, out, "run-x")
	assert.Contains(t, out, "Messages:")
	assert.Contains(t, out, "World!")
}

func TestRunFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wrong.yaml", helloScenario(t, "wrong", `["nope"]`))

	out, err := runRecorded(t, "json", filepath.Join(dir, "flexi.db"), path, engine.NewFixedGenerator("r"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_ASSERTION_FAILED", resp.Error.Code)
	assert.False(t, resp.Data.Pass)
}

func TestRunInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "name: bad\n")

	_, err := runRecorded(t, "text", filepath.Join(dir, "flexi.db"), path, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd.SetContext(ctx)

	opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}, Database: filepath.Join(dir, "flexi.db")}
	err := runScenarioRecorded(opts, filepath.Join(scenariosDir, "hello_world.yaml"), cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunIDs(t *testing.T) {
	trace := []ir.TraceEntry{
		{RunID: "a"}, {RunID: "b"}, {RunID: "a"}, {RunID: ""}, {RunID: "c"},
	}
	assert.Equal(t, []string{"a", "b", "c"}, runIDs(trace))
}
