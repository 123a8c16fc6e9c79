package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

// parkTarget records a normal_attack_selection run left waiting for its
// target and returns the scenario path and database path.
func parkTarget(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	scenario := writeFile(t, dir, "target.yaml", fmt.Sprintf(`name: target
description: "hero attacks, target not yet picked"
specs: [%q]
owners:
  - name: hero
    stats: { HEALTH: 10, ATTACK: 3 }
  - name: goblin
    stats: { HEALTH: 10, ATTACK: 3 }
steps:
  - run: normal_attack_selection
    payload: { activator: "@hero" }
assertions:
  - type: choice_pending
    pending: true
`, combatSpec(t)))
	dbPath := filepath.Join(dir, "flexi.db")

	out, err := runRecorded(t, "json", dbPath, scenario, engine.NewFixedGenerator("p-1"))
	require.NoError(t, err, out)
	return scenario, dbPath
}

func resumeRecorded(t *testing.T, opts *ResumeOptions, scenario, runID string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	err := runResume(opts, scenario, runID, cmd)
	return buf.String(), err
}

func readRecorded(t *testing.T, dbPath, runID string) ir.RunRecord {
	t.Helper()
	st, err := store.Open(dbPath, store.ReadOnly())
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.ReadRun(context.Background(), runID)
	require.NoError(t, err)
	return rec
}

func TestResumeAnswersParkedRun(t *testing.T) {
	scenario, dbPath := parkTarget(t)
	require.Equal(t, ir.RunParked, readRecorded(t, dbPath, "p-1").Status)

	opts := &ResumeOptions{
		RunOptions: RunOptions{
			RootOptions: &RootOptions{Format: "json"},
			Database:    dbPath,
			IDs:         testutil.NewSequentialRunIDs("q"),
		},
		Answer: `{target: "@goblin"}`,
	}
	out, err := resumeRecorded(t, opts, scenario, "p-1")
	require.NoError(t, err, out)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)

	assert.Equal(t, ir.RunDone, readRecorded(t, dbPath, "p-1").Status)

	st, err := store.Open(dbPath, store.ReadOnly())
	require.NoError(t, err)
	defer st.Close()
	_, _, err = st.ReadParked(context.Background(), "p-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResumeCancel(t *testing.T) {
	scenario, dbPath := parkTarget(t)

	opts := &ResumeOptions{
		RunOptions: RunOptions{RootOptions: &RootOptions{Format: "json"}, Database: dbPath},
		Cancel:     true,
	}
	out, err := resumeRecorded(t, opts, scenario, "p-1")
	require.NoError(t, err, out)

	assert.Equal(t, ir.RunCancelled, readRecorded(t, dbPath, "p-1").Status)
}

func TestResumeRejects(t *testing.T) {
	t.Run("unknown run", func(t *testing.T) {
		scenario, dbPath := parkTarget(t)
		opts := &ResumeOptions{
			RunOptions: RunOptions{RootOptions: &RootOptions{Format: "json"}, Database: dbPath},
			Cancel:     true,
		}
		_, err := resumeRecorded(t, opts, scenario, "nope")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("answer is not an object", func(t *testing.T) {
		scenario, dbPath := parkTarget(t)
		opts := &ResumeOptions{
			RunOptions: RunOptions{RootOptions: &RootOptions{Format: "json"}, Database: dbPath},
			Answer:     "[1, 2]",
		}
		_, err := resumeRecorded(t, opts, scenario, "p-1")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ir.RunParked, readRecorded(t, dbPath, "p-1").Status)
	})

	t.Run("answer and cancel together", func(t *testing.T) {
		_, err := execute(t, NewResumeCommand(&RootOptions{Format: "text"}),
			"x.yaml", "p-1", "--db", "x.db", "--answer", "{}", "--cancel")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "none of the others can be")
	})

	t.Run("neither answer nor cancel", func(t *testing.T) {
		_, err := execute(t, NewResumeCommand(&RootOptions{Format: "text"}),
			"x.yaml", "p-1", "--db", "x.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one of the flags")
	})
}
