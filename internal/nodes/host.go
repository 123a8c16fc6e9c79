package nodes

import (
	"fmt"

	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// Host is the environment node effects act on during one run.
type Host interface {
	// Owner returns a live owner, or nil.
	Owner(id int64) *stats.Owner

	// Self returns the id of the owner the running ability is bound to,
	// 0 when unbound.
	Self() int64

	// StatID resolves a stat name.
	StatID(name string) (stats.StatID, bool)

	// Enqueue appends a run of a named ability to the run queue.
	Enqueue(ability string, payload ir.IRObject) error

	// Emit raises a game event. Abilities listening for it are enqueued.
	Emit(event string, fields ir.IRObject)

	// Log writes a message to the run's trace.
	Log(text string)
}

func hostOf(ec *flow.ExecContext) (Host, error) {
	h, ok := ec.Host.(Host)
	if !ok {
		return nil, ec.Defect(graph.DefectEvaluationFailed, "run has no host")
	}
	return h, nil
}

// operand reads an int from the named inport when connected and from the
// node config otherwise.
func operand(ec *flow.ExecContext, name string) (int64, error) {
	if !ec.Connected(name) {
		if v, ok := ec.Config().GetInt(name); ok {
			return v, nil
		}
	}
	return ec.InputInt(name)
}

func inputOwner(ec *flow.ExecContext, h Host, name string) (*stats.Owner, error) {
	id, err := ec.InputInt(name)
	if err != nil {
		return nil, err
	}
	o := h.Owner(id)
	if o == nil {
		return nil, ec.Defect(graph.DefectMissingInput, "%s: owner %d does not exist", name, id)
	}
	return o, nil
}

func resolveStat(ec *flow.ExecContext, h Host, name string) (stats.StatID, error) {
	id, ok := h.StatID(name)
	if !ok {
		return 0, ec.Defect(graph.DefectEvaluationFailed, "unknown stat %q", name)
	}
	return id, nil
}

func requireString(cfg ir.IRObject, key string) (string, error) {
	s, ok := cfg.GetString(key)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func optionalString(cfg ir.IRObject, key, def string) (string, error) {
	v, present := cfg[key]
	if !present {
		return def, nil
	}
	s, ok := ir.AsString(v)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

func optionalInt(cfg ir.IRObject, key string) (int64, bool, error) {
	v, present := cfg[key]
	if !present {
		return 0, false, nil
	}
	n, ok := ir.AsInt(v)
	if !ok {
		return 0, false, fmt.Errorf("%s must be an int", key)
	}
	return n, true, nil
}

// format renders a port value for log output.
func format(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return fmt.Sprintf("%d", int64(val))
	case ir.IRBool:
		if val {
			return "true"
		}
		return "false"
	case nil, ir.IRNull:
		return "null"
	default:
		b, err := ir.MarshalCanonical(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
