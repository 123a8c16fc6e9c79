package stats

import (
	"fmt"
	"sort"
)

// Owner holds a stat pool, its modifiers and its conditional rules.
//
// Owners are not safe for concurrent use. The ability system drives every
// mutation from a single logical thread.
type Owner struct {
	id        int64
	stats     map[StatID]*Stat
	manual    []Modifier
	derived   []Modifier
	rules     []ConditionalModifier
	algorithm Algorithm
}

// NewOwner creates a standalone owner. A nil algorithm selects
// DefaultAlgorithm.
func NewOwner(id int64, algorithm Algorithm) *Owner {
	if algorithm == nil {
		algorithm = DefaultAlgorithm{}
	}
	return &Owner{
		id:        id,
		stats:     make(map[StatID]*Stat),
		algorithm: algorithm,
	}
}

// ID returns the owner id.
func (o *Owner) ID() int64 { return o.id }

// AddStat creates a stat with the given original base.
func (o *Owner) AddStat(id StatID, base int64) error {
	if _, exists := o.stats[id]; exists {
		return fmt.Errorf("owner %d: stat %d already exists", o.id, id)
	}
	o.stats[id] = newStat(id, base)
	return nil
}

// GetStat returns the stat, or nil when the owner has none with that id.
func (o *Owner) GetStat(id StatID) *Stat {
	return o.stats[id]
}

// Stats returns every stat ordered by id.
func (o *Owner) Stats() []*Stat {
	out := make([]*Stat, 0, len(o.stats))
	for _, s := range o.stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// SetStat sets a stat's CurrentBase. CurrentValue is not touched.
func (o *Owner) SetStat(id StatID, base int64) error {
	s := o.stats[id]
	if s == nil {
		return fmt.Errorf("owner %d: no stat %d", o.id, id)
	}
	s.CurrentBase = base
	return nil
}

// ModifyStat adds delta to a stat's CurrentBase.
func (o *Owner) ModifyStat(id StatID, delta int64) error {
	s := o.stats[id]
	if s == nil {
		return fmt.Errorf("owner %d: no stat %d", o.id, id)
	}
	s.CurrentBase += delta
	return nil
}

// Modifiers returns the active modifiers: manual ones first, then those
// derived from rules at the last RefreshModifiers.
func (o *Owner) Modifiers() []Modifier {
	out := make([]Modifier, 0, len(o.manual)+len(o.derived))
	out = append(out, o.manual...)
	return append(out, o.derived...)
}

// AppendModifier adds an unconditional modifier. It survives RefreshModifiers.
func (o *Owner) AppendModifier(m Modifier) {
	o.manual = append(o.manual, m)
}

// ClearModifiers drops every manual and derived modifier.
func (o *Owner) ClearModifiers() {
	o.manual = nil
	o.derived = nil
}

// AddRule registers a conditional modifier. It has no effect until the next
// RefreshModifiers.
func (o *Owner) AddRule(r ConditionalModifier) {
	o.rules = append(o.rules, r)
}

// Rules returns the registered conditional modifiers.
func (o *Owner) Rules() []ConditionalModifier {
	out := make([]ConditionalModifier, len(o.rules))
	copy(out, o.rules)
	return out
}

// RefreshStats recomputes every CurrentValue from CurrentBase and the active
// modifiers.
func (o *Owner) RefreshStats() {
	o.algorithm.RefreshStats(o)
}

// RefreshModifiers rebuilds the rule-derived modifiers and refreshes stats.
//
// Guards are evaluated against the values produced by the manual modifiers
// alone, so a rule can never switch itself off by its own effect.
func (o *Owner) RefreshModifiers() {
	o.derived = nil
	o.RefreshStats()
	var derived []Modifier
	for _, r := range o.rules {
		if r.When != nil && !r.When.Holds(o) {
			continue
		}
		for _, m := range r.Modifiers {
			if m.Source == "" {
				m.Source = r.Name
			}
			derived = append(derived, m)
		}
	}
	o.derived = derived
	o.RefreshStats()
}
