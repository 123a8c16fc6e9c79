package compiler

import (
	"fmt"

	"github.com/roach88/flexi/internal/factory"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateNodeID  = "E101" // two nodes share an id
	ErrReservedNodeID   = "E102" // node declares a reserved id
	ErrUnknownEdgeNode  = "E103" // edge references an undeclared node
	ErrDuplicateName    = "E104" // two graphs or stats share a name
	ErrDuplicateStatID  = "E105" // two stats share an id
	ErrEmptyGraph       = "E106" // graph has no nodes
	ErrUnresolvedRule   = "E107" // rule references an unknown stat or op
	ErrUnresolvedType   = "E108" // node type missing from the registry
	ErrNameClash        = "E109" // an ability and a macro share a name
	ErrUnknownMacroCall = "E110" // macro.call names a macro the bundle lacks
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled bundle against a registry. It returns every
// problem found; it never stops at the first.
//
// Graph-level defects (missing ports, bad connections) are the factory's
// concern and are reported when graphs are built; Validate catches what can
// be seen from the descriptions alone.
func Validate(b *Bundle, reg *factory.Registry) []ValidationError {
	var errs []ValidationError

	statIDs := map[int]string{}
	statNames := map[string]bool{}
	for _, d := range b.Stats {
		if prev, ok := statIDs[int(d.ID)]; ok {
			errs = append(errs, ValidationError{Field: "stat." + d.Name, Code: ErrDuplicateStatID,
				Message: fmt.Sprintf("id %d already used by %s", d.ID, prev)})
		}
		if statNames[d.Name] {
			errs = append(errs, ValidationError{Field: "stat." + d.Name, Code: ErrDuplicateName, Message: "duplicate stat name"})
		}
		statIDs[int(d.ID)] = d.Name
		statNames[d.Name] = true
	}

	lookup := statSet(statNames)
	for _, r := range b.Rules {
		if _, err := r.Resolve(lookup); err != nil {
			errs = append(errs, ValidationError{Field: "rule." + r.Name, Code: ErrUnresolvedRule, Message: err.Error()})
		}
	}

	macros := map[string]bool{}
	for _, d := range b.Macros {
		if macros[d.Name] {
			errs = append(errs, ValidationError{Field: "macro." + d.Name, Code: ErrDuplicateName, Message: "duplicate macro name"})
		}
		macros[d.Name] = true
		errs = append(errs, validateGraph("macro."+d.Name, d, reg)...)
	}
	abilities := map[string]bool{}
	for _, d := range b.Abilities {
		if abilities[d.Name] {
			errs = append(errs, ValidationError{Field: "ability." + d.Name, Code: ErrDuplicateName, Message: "duplicate ability name"})
		}
		if macros[d.Name] {
			errs = append(errs, ValidationError{Field: "ability." + d.Name, Code: ErrNameClash, Message: "a macro has the same name"})
		}
		abilities[d.Name] = true
		errs = append(errs, validateGraph("ability."+d.Name, d, reg)...)
	}

	for _, d := range append(append([]ir.GraphDescription{}, b.Macros...), b.Abilities...) {
		for i, n := range d.Nodes {
			if n.Type != "macro.call" {
				continue
			}
			name, _ := n.Config.GetString("macro")
			if name != "" && !macros[name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s.nodes[%d]", d.Kind, d.Name, i),
					Code:    ErrUnknownMacroCall,
					Message: fmt.Sprintf("macro %q is not defined", name),
				})
			}
		}
	}
	return errs
}

func validateGraph(field string, d ir.GraphDescription, reg *factory.Registry) []ValidationError {
	var errs []ValidationError
	if len(d.Nodes) == 0 {
		errs = append(errs, ValidationError{Field: field, Code: ErrEmptyGraph, Message: "graph has no nodes"})
	}

	ids := map[int]bool{}
	if d.Kind == ir.KindMacro {
		ids[factory.InputNodeID] = true
	}
	for i, n := range d.Nodes {
		nf := fmt.Sprintf("%s.nodes[%d]", field, i)
		if d.Kind == ir.KindMacro && n.ID == factory.InputNodeID {
			errs = append(errs, ValidationError{Field: nf, Code: ErrReservedNodeID,
				Message: fmt.Sprintf("id %d is reserved for the macro input", factory.InputNodeID)})
			continue
		}
		if n.ID == ir.NoNode {
			errs = append(errs, ValidationError{Field: nf, Code: ErrReservedNodeID,
				Message: fmt.Sprintf("id %d is reserved", ir.NoNode)})
			continue
		}
		if ids[n.ID] {
			errs = append(errs, ValidationError{Field: nf, Code: ErrDuplicateNodeID, Message: fmt.Sprintf("duplicate node id %d", n.ID)})
		}
		ids[n.ID] = true
	}
	for i, e := range d.Edges {
		ef := fmt.Sprintf("%s.edges[%d]", field, i)
		for _, id := range []int{e.FromNode, e.ToNode} {
			if !ids[id] {
				errs = append(errs, ValidationError{Field: ef, Code: ErrUnknownEdgeNode, Message: fmt.Sprintf("node %d is not declared", id)})
			}
		}
	}
	if reg != nil {
		for _, typ := range reg.Unresolved(d) {
			errs = append(errs, ValidationError{Field: field, Code: ErrUnresolvedType, Message: fmt.Sprintf("node type %q is not registered", typ)})
		}
	}
	return errs
}

// statSet resolves names only; ids do not matter for validation.
type statSet map[string]bool

func (s statSet) Lookup(name string) (stats.StatID, bool) {
	return 0, s[name]
}
