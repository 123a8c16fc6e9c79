package factory

import (
	"sort"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// InputNodeID is the reserved id of a macro's implicit input node.
const InputNodeID = -1

// MacroInputType is the node type the factory instantiates as a macro's
// input node when the description does not declare one.
const MacroInputType = "macro.input"

// Build instantiates desc against reg.
//
// Build never fails outright. Nodes with unknown types (UNRESOLVED_TYPE) or
// rejected configuration (INVALID_CONFIG) are omitted, edges that cannot be
// connected are dropped, and every problem is returned as a defect. The
// returned graph is always non-nil and contains everything that could be
// built.
//
// For abilities the entry is the lowest-id node whose type is registered as
// an entry type; MISSING_ENTRY is reported when there is none. For macros the
// entry is the input node with id InputNodeID, created automatically.
func Build(reg *Registry, desc ir.GraphDescription) (*graph.Graph, []*graph.Defect) {
	b := &builder{reg: reg, desc: desc, g: graph.New(desc.Name, desc.Kind)}
	b.nodes()
	if desc.Kind == ir.KindMacro {
		b.macroInput()
	}
	b.edges()
	b.entry()
	return b.g, b.defects
}

// Validate builds desc and returns only the defects.
func Validate(reg *Registry, desc ir.GraphDescription) []*graph.Defect {
	_, defects := Build(reg, desc)
	return defects
}

type builder struct {
	reg     *Registry
	desc    ir.GraphDescription
	g       *graph.Graph
	entries []int
	defects []*graph.Defect
}

func (b *builder) report(err error) {
	if err == nil {
		return
	}
	d, ok := graph.AsDefect(err)
	if !ok {
		d = &graph.Defect{Code: graph.DefectEvaluationFailed, NodeID: graph.NoNode, Message: err.Error()}
	}
	if d.Graph == "" {
		d.Graph = b.desc.Name
	}
	b.defects = append(b.defects, d)
}

func (b *builder) nodes() {
	for _, nd := range b.desc.Nodes {
		reg, ok := b.reg.Lookup(nd.Type)
		if !ok {
			b.report(graph.NewDefect(graph.DefectUnresolvedType, nd.ID, "", "unknown node type %q", nd.Type))
			continue
		}
		cfg := nd.Config.Clone()
		behavior, err := reg.New(cfg)
		if err != nil {
			b.report(graph.NewDefect(graph.DefectInvalidConfig, nd.ID, "", "%s: %v", nd.Type, err))
			continue
		}
		n, err := b.g.AddNode(nd.ID, nd.Type, behavior)
		b.report(err)
		if n == nil {
			continue
		}
		n.Position = nd.Position
		n.Config = cfg
		if reg.Entry {
			b.entries = append(b.entries, nd.ID)
		}
	}
}

func (b *builder) macroInput() {
	if b.g.Node(InputNodeID) != nil {
		return
	}
	reg, ok := b.reg.Lookup(MacroInputType)
	if !ok {
		b.report(graph.NewDefect(graph.DefectUnresolvedType, InputNodeID, "", "macro input type %q not registered", MacroInputType))
		return
	}
	behavior, err := reg.New(ir.IRObject{})
	if err != nil {
		b.report(graph.NewDefect(graph.DefectInvalidConfig, InputNodeID, "", "%s: %v", MacroInputType, err))
		return
	}
	_, err = b.g.AddNode(InputNodeID, MacroInputType, behavior)
	b.report(err)
}

func (b *builder) edges() {
	for _, e := range b.desc.Edges {
		b.report(b.g.Connect(e.FromNode, e.FromPort, e.ToNode, e.ToPort))
	}
}

func (b *builder) entry() {
	if b.desc.Kind == ir.KindMacro {
		if b.g.Node(InputNodeID) != nil {
			b.report(b.g.SetEntry(InputNodeID))
		}
		return
	}
	if len(b.entries) == 0 {
		b.report(graph.NewDefect(graph.DefectMissingEntry, graph.NoNode, "", "ability has no entry node"))
		return
	}
	sort.Ints(b.entries)
	b.report(b.g.SetEntry(b.entries[0]))
}
