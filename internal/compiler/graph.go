package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// CompileAbility parses a CUE value into an ability description.
//
// The value is the ability struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`ability: hello: { nodes: [...], edges: [...] }`)
//	desc, err := CompileAbility(v.LookupPath(cue.ParsePath("ability.hello")))
func CompileAbility(v cue.Value) (ir.GraphDescription, error) {
	return compileGraph(v, ir.KindAbility)
}

// CompileMacro parses a CUE value into a macro description. Macro bodies
// start from the input node, id -1, which the factory adds.
func CompileMacro(v cue.Value) (ir.GraphDescription, error) {
	return compileGraph(v, ir.KindMacro)
}

func compileGraph(v cue.Value, kind ir.GraphKind) (ir.GraphDescription, error) {
	if err := v.Err(); err != nil {
		return ir.GraphDescription{}, cueError(string(kind), err)
	}

	desc := ir.GraphDescription{Kind: kind}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		desc.Name = sels[len(sels)-1].String()
	}
	if name, ok, err := stringField(v, "name", string(kind)); err != nil {
		return desc, err
	} else if ok {
		desc.Name = name
	}
	if desc.Name == "" {
		return desc, fieldError(v, string(kind), "name is required")
	}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return desc, fieldError(v, "nodes", "nodes is required")
	}
	iter, err := nodesVal.List()
	if err != nil {
		return desc, cueError("nodes", err)
	}
	for i := 0; iter.Next(); i++ {
		n, err := compileNode(iter.Value(), fmt.Sprintf("nodes[%d]", i))
		if err != nil {
			return desc, err
		}
		desc.Nodes = append(desc.Nodes, n)
	}

	edgesVal := v.LookupPath(cue.ParsePath("edges"))
	if edgesVal.Exists() {
		iter, err := edgesVal.List()
		if err != nil {
			return desc, cueError("edges", err)
		}
		for i := 0; iter.Next(); i++ {
			e, err := compileEdge(iter.Value(), fmt.Sprintf("edges[%d]", i))
			if err != nil {
				return desc, err
			}
			desc.Edges = append(desc.Edges, e)
		}
	}

	return desc, nil
}

func compileNode(v cue.Value, field string) (ir.NodeDesc, error) {
	var n ir.NodeDesc

	id, ok, err := intField(v, "id", field)
	if err != nil {
		return n, err
	}
	if !ok {
		return n, fieldError(v, field+".id", "id is required")
	}
	n.ID = int(id)

	typ, ok, err := stringField(v, "type", field)
	if err != nil {
		return n, err
	}
	if !ok || typ == "" {
		return n, fieldError(v, field+".type", "type is required")
	}
	n.Type = typ

	if pos := v.LookupPath(cue.ParsePath("position")); pos.Exists() {
		x, _, err := intField(pos, "x", field+".position")
		if err != nil {
			return n, err
		}
		y, _, err := intField(pos, "y", field+".position")
		if err != nil {
			return n, err
		}
		n.Position = ir.Vec2{X: x, Y: y}
	}

	if cfg := v.LookupPath(cue.ParsePath("config")); cfg.Exists() {
		obj, err := toObject(cfg, field+".config")
		if err != nil {
			return n, err
		}
		n.Config = obj
	}
	return n, nil
}

// compileEdge reads {from, from_port, to, to_port}. Ports default to a flow
// link: from_port "next", to_port "previous".
func compileEdge(v cue.Value, field string) (ir.EdgeDesc, error) {
	var e ir.EdgeDesc

	from, ok, err := intField(v, "from", field)
	if err != nil {
		return e, err
	}
	if !ok {
		return e, fieldError(v, field+".from", "from is required")
	}
	to, ok, err := intField(v, "to", field)
	if err != nil {
		return e, err
	}
	if !ok {
		return e, fieldError(v, field+".to", "to is required")
	}
	e.FromNode, e.ToNode = int(from), int(to)

	e.FromPort = graph.PortNext
	if p, ok, err := stringField(v, "from_port", field); err != nil {
		return e, err
	} else if ok {
		e.FromPort = p
	}
	e.ToPort = graph.PortPrevious
	if p, ok, err := stringField(v, "to_port", field); err != nil {
		return e, err
	} else if ok {
		e.ToPort = p
	}
	return e, nil
}
