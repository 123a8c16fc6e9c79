package flow

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// Snapshot serializes the complete interpreter state as a canonical object:
// run id, state, step count, payload, pending choice and every frame with its
// cursor, loop stack, port values and node locals.
//
// Port values are keyed by port id. Port ids are assigned in declaration
// order when a graph is built, so a snapshot restores against any graph built
// from the same description.
func (in *Interpreter) Snapshot() ir.IRObject {
	frames := make(ir.IRArray, 0, len(in.frames))
	for _, f := range in.frames {
		loops := make(ir.IRArray, 0, len(f.loops))
		for _, l := range f.loops {
			loops = append(loops, ir.IRInt(l))
		}

		ports := make([]int, 0, len(f.values))
		for id := range f.values {
			ports = append(ports, int(id))
		}
		sort.Ints(ports)
		values := ir.IRObject{}
		for _, id := range ports {
			values[strconv.Itoa(id)] = f.values[graph.PortID(id)]
		}

		locals := ir.IRObject{}
		for id, vals := range f.locals {
			locals[strconv.Itoa(id)] = vals.Clone()
		}

		frames = append(frames, ir.Obj(
			ir.O("graph", ir.IRString(f.graph.Name)),
			ir.O("cursor", ir.IRInt(f.cursor)),
			ir.O("call_node", ir.IRInt(f.callNode)),
			ir.O("loops", loops),
			ir.O("values", values),
			ir.O("locals", locals),
		))
	}

	snap := ir.Obj(
		ir.O("run_id", ir.IRString(in.cfg.RunID)),
		ir.O("state", ir.IRString(in.state.String())),
		ir.O("steps", ir.IRInt(in.quota.Current())),
		ir.O("payload", in.cfg.Payload.Clone()),
		ir.O("cancelled", ir.IRBool(in.cancelled)),
		ir.O("frames", frames),
	)
	if in.choice != nil {
		snap["choice"] = in.choice.Clone()
	}
	return snap
}

// Restore rebuilds an interpreter from a Snapshot.
//
// root must be built from the same description as the snapshotted run; the
// first frame must name it. Deeper frames are resolved through cfg.Macros.
// cfg.RunID and cfg.Payload default to the values stored in the snapshot.
func Restore(root *graph.Graph, snap ir.IRObject, cfg Config) (*Interpreter, error) {
	stateName, _ := snap.GetString("state")
	state, ok := parseState(stateName)
	if !ok {
		return nil, fmt.Errorf("restore snapshot: unknown state %q", stateName)
	}
	if cfg.RunID == "" {
		cfg.RunID, _ = snap.GetString("run_id")
	}
	if cfg.Payload == nil {
		if p, ok := snap["payload"].(ir.IRObject); ok {
			cfg.Payload = p.Clone()
		}
	}

	in := New(root, cfg)
	in.state = state
	in.cancelled, _ = snap.GetBool("cancelled")
	steps, _ := snap.GetInt("steps")
	in.quota.current = int(steps)
	if c, ok := snap["choice"].(ir.IRObject); ok {
		in.choice = c.Clone()
	}

	rawFrames, _ := snap["frames"].(ir.IRArray)
	for i, raw := range rawFrames {
		obj, ok := raw.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("restore snapshot: frame %d is not an object", i)
		}
		f, err := restoreFrame(root, obj, i, cfg.Macros)
		if err != nil {
			return nil, fmt.Errorf("restore snapshot: frame %d: %w", i, err)
		}
		in.frames = append(in.frames, f)
	}
	if (state == StateRunning || state == StateAwaitingChoice) && len(in.frames) == 0 {
		return nil, fmt.Errorf("restore snapshot: state %s without frames", state)
	}
	return in, nil
}

func restoreFrame(root *graph.Graph, obj ir.IRObject, index int, macros MacroResolver) (*frame, error) {
	name, _ := obj.GetString("graph")
	var g *graph.Graph
	if index == 0 {
		if name != root.Name {
			return nil, fmt.Errorf("root frame names graph %q, have %q", name, root.Name)
		}
		g = root
	} else {
		var ok bool
		if macros != nil {
			g, ok = macros.Macro(name)
		}
		if !ok {
			return nil, fmt.Errorf("macro %q is not loaded", name)
		}
	}

	cursor, _ := obj.GetInt("cursor")
	if g.Node(int(cursor)) == nil {
		return nil, fmt.Errorf("cursor node %d not in graph %q", cursor, name)
	}
	callNode, _ := obj.GetInt("call_node")
	f := newFrame(g, int(cursor), int(callNode))

	loops, _ := obj["loops"].(ir.IRArray)
	for _, l := range loops {
		id, ok := ir.AsInt(l)
		if !ok {
			return nil, fmt.Errorf("loop entry is not an int")
		}
		f.loops = append(f.loops, int(id))
	}

	values, _ := obj["values"].(ir.IRObject)
	for key, v := range values {
		id, err := strconv.Atoi(key)
		if err != nil || g.Port(graph.PortID(id)) == nil {
			return nil, fmt.Errorf("unknown port id %q", key)
		}
		f.values[graph.PortID(id)] = v
	}

	locals, _ := obj["locals"].(ir.IRObject)
	for key, v := range locals {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("bad locals key %q", key)
		}
		vals, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("locals for node %d are not an object", id)
		}
		f.locals[id] = vals.Clone()
	}
	return f, nil
}
