package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/testutil"
)

// memLog is an in-memory Recorder and ParkedSource.
type memLog struct {
	runs   map[string]ir.RunRecord
	trace  []ir.TraceEntry
	parked map[string]ir.IRObject
	hashes map[string]string
}

func newMemLog() *memLog {
	return &memLog{
		runs:   make(map[string]ir.RunRecord),
		parked: make(map[string]ir.IRObject),
		hashes: make(map[string]string),
	}
}

func (m *memLog) RecordRun(_ context.Context, rec ir.RunRecord) error {
	m.runs[rec.RunID] = rec
	return nil
}

func (m *memLog) RecordTrace(_ context.Context, e ir.TraceEntry) error {
	m.trace = append(m.trace, e)
	return nil
}

func (m *memLog) RecordDefect(context.Context, ir.DefectRecord) error { return nil }

func (m *memLog) SaveParked(_ context.Context, runID string, snap ir.IRObject) error {
	h, err := ir.ContinuationHash(snap)
	if err != nil {
		return err
	}
	m.parked[runID], m.hashes[runID] = snap.Clone(), h
	return nil
}

func (m *memLog) ClearParked(_ context.Context, runID string) error {
	delete(m.parked, runID)
	delete(m.hashes, runID)
	return nil
}

func (m *memLog) ReadRun(_ context.Context, runID string) (ir.RunRecord, error) {
	rec, ok := m.runs[runID]
	if !ok {
		return ir.RunRecord{}, fmt.Errorf("run %s not found", runID)
	}
	return rec, nil
}

func (m *memLog) ReadParked(_ context.Context, runID string) (ir.IRObject, string, error) {
	snap, ok := m.parked[runID]
	if !ok {
		return nil, "", fmt.Errorf("parked run %s not found", runID)
	}
	return snap.Clone(), m.hashes[runID], nil
}

// parkSelection parks a selection run in a first system and returns the log
// and the parked run id.
func parkSelection(t *testing.T) (*memLog, string) {
	t.Helper()
	log := newMemLog()
	f := newFixture(t, WithRecorder(log))
	f.run(f.selection(), activator(f.unit1))
	cc, ok := f.sys.Pending()
	require.True(t, ok)
	return log, cc.RunID
}

// TestRestoreParked_ResumesInNewSystem tests that a continuation stored by
// one system is answered by another built from the same descriptions.
func TestRestoreParked_ResumesInNewSystem(t *testing.T) {
	log, runID := parkSelection(t)
	require.Contains(t, log.parked, runID)

	f := newFixture(t, WithRecorder(log), WithRunIDGenerator(testutil.NewSequentialRunIDs("later")))
	f.selection()

	require.NoError(t, f.sys.RestoreParked(context.Background(), log, runID))
	require.True(t, f.sys.Parked())
	cc, ok := f.sys.Pending()
	require.True(t, ok)
	assert.Equal(t, runID, cc.RunID)
	assert.Equal(t, 2, cc.NodeID)

	require.NoError(t, f.sys.Resume(context.Background(), target(f.unit2)))

	assert.Equal(t, int64(4), hp(f.unit2))
	assert.False(t, f.sys.Parked())
	assert.Equal(t, ir.RunDone, log.runs[runID].Status)
	assert.NotContains(t, log.parked, runID)
}

// TestRestoreParked_Rejects tests the continuations that cannot be restored.
func TestRestoreParked_Rejects(t *testing.T) {
	t.Run("tampered snapshot", func(t *testing.T) {
		log, runID := parkSelection(t)
		log.parked[runID]["steps"] = ir.IRInt(0)

		f := newFixture(t)
		f.selection()
		err := f.sys.RestoreParked(context.Background(), log, runID)
		assert.True(t, IsNotRestorable(err), "%v", err)
		assert.False(t, f.sys.Parked())
	})

	t.Run("graph changed", func(t *testing.T) {
		log, runID := parkSelection(t)

		f := newFixture(t)
		changed := testutil.NormalAttackSelection()
		changed.Nodes[1].Config = ir.Obj(ir.O("prompt", ir.IRString("pick a victim")))
		f.ability(testutil.NormalAttack())
		f.ability(changed)
		err := f.sys.RestoreParked(context.Background(), log, runID)
		assert.True(t, IsNotRestorable(err), "%v", err)
	})

	t.Run("run not parked", func(t *testing.T) {
		log, runID := parkSelection(t)
		rec := log.runs[runID]
		rec.Status = ir.RunDone
		log.runs[runID] = rec

		f := newFixture(t)
		f.selection()
		err := f.sys.RestoreParked(context.Background(), log, runID)
		assert.True(t, IsNotRestorable(err), "%v", err)
	})

	t.Run("system busy", func(t *testing.T) {
		log, runID := parkSelection(t)

		f := newFixture(t)
		f.run(f.selection(), activator(f.unit1))
		err := f.sys.RestoreParked(context.Background(), log, runID)
		assert.True(t, IsBusy(err), "%v", err)
	})

	t.Run("unknown run", func(t *testing.T) {
		f := newFixture(t)
		assert.Error(t, f.sys.RestoreParked(context.Background(), newMemLog(), "missing"))
	})
}
