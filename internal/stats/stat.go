package stats

import (
	"fmt"
	"strings"
)

// StatID identifies a stat definition.
type StatID int

// Definition names a stat.
type Definition struct {
	ID   StatID
	Name string
}

// Stat is one value in an owner's pool.
type Stat struct {
	id           StatID
	originalBase int64

	// CurrentBase defaults to the original base and is what node effects
	// modify.
	CurrentBase int64

	// CurrentValue is CurrentBase after modifiers. Only a refresh writes it.
	CurrentValue int64
}

func newStat(id StatID, base int64) *Stat {
	return &Stat{id: id, originalBase: base, CurrentBase: base, CurrentValue: base}
}

// ID returns the stat id.
func (s *Stat) ID() StatID { return s.id }

// OriginalBase returns the base the stat was created with.
func (s *Stat) OriginalBase() int64 { return s.originalBase }

// Reset restores CurrentBase to OriginalBase. CurrentValue follows on the next
// refresh.
func (s *Stat) Reset() { s.CurrentBase = s.originalBase }

// ModifierOp is the kind of adjustment a modifier makes.
type ModifierOp int

const (
	// OpAdd adds Value to the base during the additive pass.
	OpAdd ModifierOp = iota + 1
	// OpMul scales by (100 + Value) percent during the multiplicative pass.
	OpMul
)

func (op ModifierOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	default:
		return "unknown"
	}
}

// ParseModifierOp parses "add" or "mul".
func ParseModifierOp(s string) (ModifierOp, error) {
	switch strings.ToLower(s) {
	case "add":
		return OpAdd, nil
	case "mul":
		return OpMul, nil
	default:
		return 0, fmt.Errorf("unknown modifier op %q (want add or mul)", s)
	}
}

// Modifier adjusts one stat's derived value.
type Modifier struct {
	Stat   StatID
	Op     ModifierOp
	Value  int64
	Source string
}

// Comparator is a guard comparison operator.
type Comparator string

const (
	CmpLess         Comparator = "<"
	CmpLessEqual    Comparator = "<="
	CmpEqual        Comparator = "=="
	CmpNotEqual     Comparator = "!="
	CmpGreaterEqual Comparator = ">="
	CmpGreater      Comparator = ">"
)

// Valid reports whether c is a known comparator.
func (c Comparator) Valid() bool {
	switch c {
	case CmpLess, CmpLessEqual, CmpEqual, CmpNotEqual, CmpGreaterEqual, CmpGreater:
		return true
	}
	return false
}

// Compare applies the comparator to a and b.
func (c Comparator) Compare(a, b int64) bool {
	switch c {
	case CmpLess:
		return a < b
	case CmpLessEqual:
		return a <= b
	case CmpEqual:
		return a == b
	case CmpNotEqual:
		return a != b
	case CmpGreaterEqual:
		return a >= b
	case CmpGreater:
		return a > b
	}
	return false
}

// Condition guards a rule: Stat's CurrentValue compared against Value.
type Condition struct {
	Stat  StatID
	Cmp   Comparator
	Value int64
}

// Holds evaluates the condition against an owner. A missing stat never holds.
func (c Condition) Holds(o *Owner) bool {
	s := o.GetStat(c.Stat)
	if s == nil {
		return false
	}
	return c.Cmp.Compare(s.CurrentValue, c.Value)
}

// ConditionalModifier contributes its modifiers while its guard holds.
// A nil guard always holds.
type ConditionalModifier struct {
	Name      string
	When      *Condition
	Modifiers []Modifier
}
