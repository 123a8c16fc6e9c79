package compiler

import (
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// Bundle is everything compiled from one CUE instance.
type Bundle struct {
	Stats     []stats.Definition
	Rules     []RuleSpec
	Abilities []ir.GraphDescription
	Macros    []ir.GraphDescription
}

// CompileBundle compiles the top-level stat, rule, macro and ability
// structs of a CUE value. It does not stop at the first bad definition:
// every error is returned and the bundle holds what compiled.
// Abilities, macros and rules are sorted by name.
func CompileBundle(v cue.Value) (*Bundle, []error) {
	b := &Bundle{}
	if err := v.Validate(); err != nil {
		return b, []error{cueError("", err)}
	}
	var errs []error

	if sv := v.LookupPath(cue.ParsePath("stat")); sv.Exists() {
		defs, err := CompileStats(sv)
		if err != nil {
			errs = append(errs, err)
		}
		b.Stats = defs
	}

	eachField(v, "rule", &errs, func(fv cue.Value) {
		r, err := CompileRule(fv)
		if err != nil {
			errs = append(errs, err)
			return
		}
		b.Rules = append(b.Rules, r)
	})
	eachField(v, "macro", &errs, func(fv cue.Value) {
		d, err := CompileMacro(fv)
		if err != nil {
			errs = append(errs, err)
			return
		}
		b.Macros = append(b.Macros, d)
	})
	eachField(v, "ability", &errs, func(fv cue.Value) {
		d, err := CompileAbility(fv)
		if err != nil {
			errs = append(errs, err)
			return
		}
		b.Abilities = append(b.Abilities, d)
	})

	sort.Slice(b.Rules, func(i, j int) bool { return b.Rules[i].Name < b.Rules[j].Name })
	sort.Slice(b.Macros, func(i, j int) bool { return b.Macros[i].Name < b.Macros[j].Name })
	sort.Slice(b.Abilities, func(i, j int) bool { return b.Abilities[i].Name < b.Abilities[j].Name })
	return b, errs
}

func eachField(v cue.Value, name string, errs *[]error, fn func(cue.Value)) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return
	}
	iter, err := fv.Fields()
	if err != nil {
		*errs = append(*errs, cueError(name, err))
		return
	}
	for iter.Next() {
		fn(iter.Value())
	}
}

// Ability returns the ability description with name.
func (b *Bundle) Ability(name string) (ir.GraphDescription, bool) {
	for _, d := range b.Abilities {
		if d.Name == name {
			return d, true
		}
	}
	return ir.GraphDescription{}, false
}

// Rule returns the rule with name.
func (b *Bundle) Rule(name string) (RuleSpec, bool) {
	for _, r := range b.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return RuleSpec{}, false
}
