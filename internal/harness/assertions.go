package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/flexi/internal/engine"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []ir.TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", entry.Seq, entry.RunID, FormatEntry(entry))
		}
	}
	return buf.String()
}

// FormatEntry renders a trace entry in the "kind:detail" notation used by
// trace assertions. Entries without detail render as the bare kind.
func FormatEntry(e ir.TraceEntry) string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ":" + e.Detail
}

// AssertionContext gives assertions access to live system state.
type AssertionContext struct {
	System *engine.System
	Owners map[string]*stats.Owner
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStat:
			err = assertStat(actx, assertion)
		case AssertModifierCount:
			err = assertModifierCount(actx, assertion)
		case AssertMessages:
			err = assertMessages(result, assertion)
		case AssertDefectCount:
			err = assertDefectCount(result, assertion)
		case AssertChoicePending:
			err = assertChoicePending(result, actx, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func lookupOwner(actx *AssertionContext, name string) (*stats.Owner, error) {
	if actx == nil {
		return nil, fmt.Errorf("owner %q: no system state", name)
	}
	o, ok := actx.Owners[name]
	if !ok {
		return nil, fmt.Errorf("unknown owner %q", name)
	}
	return o, nil
}

// assertStat compares one stat. The field picks the current base (default),
// the refreshed current value or the original base.
func assertStat(actx *AssertionContext, a Assertion) error {
	o, err := lookupOwner(actx, a.Owner)
	if err != nil {
		return err
	}
	if actx.System == nil {
		return fmt.Errorf("stat: no system state")
	}
	id, ok := actx.System.Repository().Lookup(a.Stat)
	if !ok {
		return fmt.Errorf("unknown stat %q", a.Stat)
	}
	field := a.Field
	if field == "" {
		field = "base"
	}
	label := fmt.Sprintf("%s.%s (%s)", a.Owner, a.Stat, field)

	s := o.GetStat(id)
	if s == nil {
		return &AssertionError{Type: AssertStat, Expected: fmt.Sprintf("%s = %d", label, *a.Value), Actual: "owner has no such stat"}
	}
	var got int64
	switch field {
	case "value":
		got = s.CurrentValue
	case "original":
		got = s.OriginalBase()
	default:
		got = s.CurrentBase
	}
	if got != *a.Value {
		return &AssertionError{
			Type:     AssertStat,
			Expected: fmt.Sprintf("%s = %d", label, *a.Value),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

// assertModifierCount counts an owner's modifiers, optionally on one stat.
func assertModifierCount(actx *AssertionContext, a Assertion) error {
	o, err := lookupOwner(actx, a.Owner)
	if err != nil {
		return err
	}
	mods := o.Modifiers()
	if a.Stat != "" {
		id, ok := actx.System.Repository().Lookup(a.Stat)
		if !ok {
			return fmt.Errorf("unknown stat %q", a.Stat)
		}
		mods = slices.DeleteFunc(slices.Clone(mods), func(m stats.Modifier) bool { return m.Stat != id })
	}
	if len(mods) != a.Count {
		return &AssertionError{
			Type:     AssertModifierCount,
			Expected: fmt.Sprintf("%s has %d modifiers", a.Owner, a.Count),
			Actual:   fmt.Sprintf("%d modifiers", len(mods)),
		}
	}
	return nil
}

// assertMessages requires the exact log output.
func assertMessages(result *Result, a Assertion) error {
	if !slices.Equal(result.Messages, a.Messages) {
		return &AssertionError{
			Type:     AssertMessages,
			Expected: fmt.Sprintf("%q", a.Messages),
			Actual:   fmt.Sprintf("%q", result.Messages),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertDefectCount counts reported defects, optionally of one code.
func assertDefectCount(result *Result, a Assertion) error {
	n := 0
	var seen []string
	for _, d := range result.Defects {
		seen = append(seen, string(d.Code))
		if a.Code == "" || string(d.Code) == a.Code {
			n++
		}
	}
	if n != a.Count {
		what := "defects"
		if a.Code != "" {
			what = a.Code + " defects"
		}
		return &AssertionError{
			Type:     AssertDefectCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s %v", n, what, seen),
		}
	}
	return nil
}

// assertChoicePending checks whether a run is parked on a choice.
func assertChoicePending(result *Result, actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.System == nil {
		return fmt.Errorf("choice_pending: no system state")
	}
	if got := actx.System.Parked(); got != *a.Pending {
		return &AssertionError{
			Type:     AssertChoicePending,
			Expected: fmt.Sprintf("pending = %t", *a.Pending),
			Actual:   fmt.Sprintf("pending = %t", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchEntry reports whether a trace entry matches the notation. A bare kind
// matches any detail.
func matchEntry(e ir.TraceEntry, want string) bool {
	kind, detail, hasDetail := strings.Cut(want, ":")
	if string(e.Kind) != kind {
		return false
	}
	return !hasDetail || e.Detail == detail
}

// assertTraceOrder checks that the entries appear in order. They need not be
// consecutive.
func assertTraceOrder(trace []ir.TraceEntry, a Assertion) error {
	next := 0
	for _, e := range trace {
		if next < len(a.Entries) && matchEntry(e, a.Entries[next]) {
			next++
		}
	}
	if next < len(a.Entries) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("entries in order %q", a.Entries),
			Actual:   fmt.Sprintf("%q not found after %d matched entries", a.Entries[next], next),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that an entry appears exactly Count times.
func assertTraceCount(trace []ir.TraceEntry, a Assertion) error {
	n := 0
	for _, e := range trace {
		if matchEntry(e, a.Entry) {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%q appears %d times", a.Entry, a.Count),
			Actual:   fmt.Sprintf("appears %d times", n),
			Trace:    trace,
		}
	}
	return nil
}
