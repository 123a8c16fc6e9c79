package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/flexi/internal/factory"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// Ability is an instantiated ability graph. It is a template: every enqueue
// creates a fresh run with its own interpreter, so an Ability is never
// reused across runs.
type Ability struct {
	// Name is the description name. ability.run nodes refer to it.
	Name string

	// Owner is the owner the ability is bound to, 0 when unbound. A bound
	// ability's runs see the owner through data.self and entry.event.
	Owner int64

	// Graph is the built graph, partial when Defects is non-empty.
	Graph *graph.Graph

	// Defects are the structural defects found while building Graph.
	Defects []*graph.Defect

	// Hash is the content hash of the description.
	Hash string
}

// Valid reports whether the graph was built without defects.
func (a *Ability) Valid() bool { return len(a.Defects) == 0 }

// InstantiateAbility builds an unbound ability. It never fails: structural
// defects are reported and the ability holds whatever part of the graph
// could be built.
func (s *System) InstantiateAbility(desc ir.GraphDescription) *Ability {
	ab := s.instantiate(desc, 0)
	s.unbound = append(s.unbound, ab)
	return ab
}

// AppendAbility builds an ability bound to owner and adds it to the owner's
// ability list. TriggerEvent considers bound abilities in owner-creation
// order, then append order.
func (s *System) AppendAbility(owner *stats.Owner, desc ir.GraphDescription) (*Ability, error) {
	if owner == nil || s.repo.GetOwner(owner.ID()) != owner {
		return nil, &RuntimeError{Code: ErrCodeUnknownOwner, Message: "cannot append ability " + desc.Name + " to a missing owner"}
	}
	ab := s.instantiate(desc, owner.ID())
	s.bound = append(s.bound, ab)
	return ab, nil
}

// Abilities returns the abilities bound to owner in append order.
func (s *System) Abilities(owner int64) []*Ability {
	var out []*Ability
	for _, ab := range s.bound {
		if ab.Owner == owner {
			out = append(out, ab)
		}
	}
	return out
}

// Lookup returns the most recently instantiated ability with name.
func (s *System) Lookup(name string) (*Ability, bool) {
	ab, ok := s.byName[name]
	return ab, ok
}

// LoadMacro builds a macro graph and makes it callable by name. A partial
// macro is still loaded; its defects are reported and returned.
func (s *System) LoadMacro(desc ir.GraphDescription) []*graph.Defect {
	desc.Kind = ir.KindMacro
	g, defects := factory.Build(s.registry, desc)
	for _, d := range defects {
		s.report(context.Background(), "", d)
	}
	s.macros[desc.Name] = g
	st := g.Stats()
	s.log.Debug("macro loaded", "macro", desc.Name, "nodes", st.Nodes, "connections", st.Connections, "defects", len(defects))
	return defects
}

// Macro returns the loaded macro graph with name.
func (s *System) Macro(name string) (*graph.Graph, bool) {
	return s.macros.Macro(name)
}

func (s *System) instantiate(desc ir.GraphDescription, owner int64) *Ability {
	if desc.Kind == "" {
		desc.Kind = ir.KindAbility
	}
	g, defects := factory.Build(s.registry, desc)
	ab := &Ability{Name: desc.Name, Owner: owner, Graph: g, Defects: defects}
	if h, err := ir.GraphHash(desc); err == nil {
		ab.Hash = h
	} else {
		s.log.Warn("graph hash failed", "ability", desc.Name, "error", err)
	}
	for _, d := range defects {
		s.report(context.Background(), "", d)
	}
	if prev, ok := s.byName[desc.Name]; ok && prev != ab {
		s.log.Debug("ability name rebound", "ability", desc.Name)
	}
	s.byName[desc.Name] = ab
	st := g.Stats()
	s.log.Log(context.Background(), levelFor(defects), "ability instantiated",
		"ability", desc.Name,
		"owner", owner,
		"nodes", st.Nodes,
		"flow_nodes", st.FlowNodes,
		"connections", st.Connections,
		"defects", len(defects),
	)
	return ab
}

func levelFor(defects []*graph.Defect) slog.Level {
	if len(defects) > 0 {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}
