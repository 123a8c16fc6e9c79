package engine

import (
	"context"
	"fmt"

	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/ir"
)

// snapshotOwner is the key under which a stored continuation names the owner
// its ability is bound to. flow.Restore ignores it.
const snapshotOwner = "owner"

// ParkedSource reads back what a Recorder stored for a parked run.
// internal/store implements it.
type ParkedSource interface {
	ReadRun(ctx context.Context, runID string) (ir.RunRecord, error)
	ReadParked(ctx context.Context, runID string) (ir.IRObject, string, error)
}

// RestoreParked makes a run parked by an earlier system the parked run of
// this one, so Resume can answer it.
//
// The ability is matched by name, bound owner and graph hash against the
// abilities instantiated here: a continuation never resumes against a graph
// that changed since it parked. The system must be idle.
func (s *System) RestoreParked(ctx context.Context, src ParkedSource, runID string) error {
	if s.active != nil {
		return &RuntimeError{Code: ErrCodeBusy, Message: "a run is already active", RunID: s.active.id}
	}
	rec, err := src.ReadRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("restore %s: %w", runID, err)
	}
	if rec.Status != ir.RunParked {
		return notRestorable(runID, "run status is %s", rec.Status)
	}
	snap, hash, err := src.ReadParked(ctx, runID)
	if err != nil {
		return fmt.Errorf("restore %s: %w", runID, err)
	}
	if got, err := ir.ContinuationHash(snap); err != nil || got != hash {
		return notRestorable(runID, "continuation hash mismatch")
	}

	owner, _ := snap.GetInt(snapshotOwner)
	ab := s.findAbility(rec.Ability, owner, rec.GraphHash)
	if ab == nil {
		return notRestorable(runID, "no ability %q with graph %s bound to owner %d", rec.Ability, shortHash(rec.GraphHash), owner)
	}

	payload := rec.Payload
	if payload == nil {
		payload = ir.IRObject{}
	}
	r := &run{
		id:      rec.RunID,
		ability: ab,
		payload: payload,
		parent:  rec.ParentRun,
		depth:   rec.Depth,
		seq:     rec.Seq,
		ctx:     ctx,
	}
	in, err := flow.Restore(ab.Graph, snap, s.flowConfig(r))
	if err != nil {
		return notRestorable(runID, "%v", err)
	}
	if in.State() != flow.StateAwaitingChoice {
		return notRestorable(runID, "continuation is %s, not awaiting a choice", in.State())
	}
	r.in = in
	r.parked = true
	r.parks = 1
	s.active = r

	nodeID, _, _ := in.Pending()
	s.log.Info("parked run restored", "run_id", r.id, "ability", ab.Name, "node_id", nodeID)
	return nil
}

func (s *System) findAbility(name string, owner int64, hash string) *Ability {
	match := func(ab *Ability) bool {
		return ab.Name == name && ab.Owner == owner && ab.Hash == hash
	}
	if owner != 0 {
		for _, ab := range s.Abilities(owner) {
			if match(ab) {
				return ab
			}
		}
		return nil
	}
	for i := len(s.unbound) - 1; i >= 0; i-- {
		if match(s.unbound[i]) {
			return s.unbound[i]
		}
	}
	return nil
}

func notRestorable(runID, format string, args ...any) error {
	return &RuntimeError{Code: ErrCodeNotRestorable, Message: fmt.Sprintf(format, args...), RunID: runID}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
