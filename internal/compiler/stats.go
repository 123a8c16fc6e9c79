package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/flexi/internal/stats"
)

// CompileStats parses `stat: <NAME>: id: <int>` into definitions ordered by id.
// v is the value holding the stat struct (the "stat" field itself).
func CompileStats(v cue.Value) ([]stats.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, cueError("stat", err)
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, cueError("stat", err)
	}
	var defs []stats.Definition
	for iter.Next() {
		name := iter.Label()
		id, ok, err := intField(iter.Value(), "id", "stat."+name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fieldError(iter.Value(), "stat."+name+".id", "id is required")
		}
		defs = append(defs, stats.Definition{ID: stats.StatID(id), Name: name})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// RuleSpec is a conditional modifier declared by stat name. The harness reads
// the same shape from YAML.
type RuleSpec struct {
	Name      string         `yaml:"name" json:"name"`
	When      *ConditionSpec `yaml:"when,omitempty" json:"when,omitempty"`
	Modifiers []ModifierSpec `yaml:"modifiers" json:"modifiers"`
}

// ConditionSpec guards a RuleSpec.
type ConditionSpec struct {
	Stat  string `yaml:"stat" json:"stat"`
	Cmp   string `yaml:"cmp" json:"cmp"`
	Value int64  `yaml:"value" json:"value"`
}

// ModifierSpec is one adjustment: op "add", or "mul" with a percentage delta.
type ModifierSpec struct {
	Stat  string `yaml:"stat" json:"stat"`
	Op    string `yaml:"op" json:"op"`
	Value int64  `yaml:"value" json:"value"`
}

// StatLookup resolves stat names; stats.Repository implements it.
type StatLookup interface {
	Lookup(name string) (stats.StatID, bool)
}

// Resolve turns the spec into a stats.ConditionalModifier.
func (r RuleSpec) Resolve(lookup StatLookup) (stats.ConditionalModifier, error) {
	out := stats.ConditionalModifier{Name: r.Name}
	if r.When != nil {
		id, ok := lookup.Lookup(r.When.Stat)
		if !ok {
			return out, fmt.Errorf("rule %s: unknown stat %q", r.Name, r.When.Stat)
		}
		cmp := stats.Comparator(r.When.Cmp)
		if !cmp.Valid() {
			return out, fmt.Errorf("rule %s: unknown comparator %q", r.Name, r.When.Cmp)
		}
		out.When = &stats.Condition{Stat: id, Cmp: cmp, Value: r.When.Value}
	}
	if len(r.Modifiers) == 0 {
		return out, fmt.Errorf("rule %s: at least one modifier is required", r.Name)
	}
	for _, m := range r.Modifiers {
		mod, err := m.Resolve(lookup, r.Name)
		if err != nil {
			return out, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		out.Modifiers = append(out.Modifiers, mod)
	}
	return out, nil
}

// Resolve turns the spec into a stats.Modifier attributed to source.
func (m ModifierSpec) Resolve(lookup StatLookup, source string) (stats.Modifier, error) {
	id, ok := lookup.Lookup(m.Stat)
	if !ok {
		return stats.Modifier{}, fmt.Errorf("unknown stat %q", m.Stat)
	}
	op, err := stats.ParseModifierOp(m.Op)
	if err != nil {
		return stats.Modifier{}, err
	}
	return stats.Modifier{Stat: id, Op: op, Value: m.Value, Source: source}, nil
}

// CompileRule parses `rule: <name>: { when?: {...}, modifiers: [...] }`.
func CompileRule(v cue.Value) (RuleSpec, error) {
	var r RuleSpec
	if err := v.Err(); err != nil {
		return r, cueError("rule", err)
	}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		r.Name = sels[len(sels)-1].String()
	}
	if w := v.LookupPath(cue.ParsePath("when")); w.Exists() {
		c := &ConditionSpec{}
		var err error
		if c.Stat, _, err = stringField(w, "stat", "when"); err != nil {
			return r, err
		}
		if c.Cmp, _, err = stringField(w, "cmp", "when"); err != nil {
			return r, err
		}
		if c.Value, _, err = intField(w, "value", "when"); err != nil {
			return r, err
		}
		r.When = c
	}
	mods := v.LookupPath(cue.ParsePath("modifiers"))
	if !mods.Exists() {
		return r, fieldError(v, "rule."+r.Name+".modifiers", "modifiers is required")
	}
	iter, err := mods.List()
	if err != nil {
		return r, cueError("rule."+r.Name+".modifiers", err)
	}
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("modifiers[%d]", i)
		var m ModifierSpec
		if m.Stat, _, err = stringField(iter.Value(), "stat", field); err != nil {
			return r, err
		}
		if m.Op, _, err = stringField(iter.Value(), "op", field); err != nil {
			return r, err
		}
		if m.Value, _, err = intField(iter.Value(), "value", field); err != nil {
			return r, err
		}
		r.Modifiers = append(r.Modifiers, m)
	}
	return r, nil
}
