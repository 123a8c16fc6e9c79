package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flexi/internal/compiler"
)

// Scenario defines a conformance test scenario: owners with stats, a list of
// steps driven through the ability system, and assertions over the final
// stats, messages, defects and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files holding stats, rules, macros and abilities.
	// Relative paths are resolved against the scenario file's directory.
	Specs []string `yaml:"specs"`

	// Config tunes the ability system for this scenario.
	Config Config `yaml:"config,omitempty"`

	// Rules declares conditional modifiers in addition to the CUE rules.
	Rules []compiler.RuleSpec `yaml:"rules,omitempty"`

	// Owners are created in order; their names are referenced from steps and
	// payloads as "@name".
	Owners []OwnerSpec `yaml:"owners"`

	// Steps run in order after the owners are set up.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Config mirrors the engine options a scenario may set. Zero means default.
type Config struct {
	MaxSteps                    int    `yaml:"max_steps,omitempty"`
	MaxChainDepth               int    `yaml:"max_chain_depth,omitempty"`
	RefreshModifiersBetweenRuns bool   `yaml:"refresh_modifiers_between_runs,omitempty"`
	RunIDPrefix                 string `yaml:"run_id_prefix,omitempty"`
}

// OwnerSpec creates one owner.
type OwnerSpec struct {
	Name      string           `yaml:"name"`
	Stats     map[string]int64 `yaml:"stats"`
	Abilities []string         `yaml:"abilities,omitempty"` // appended, so events can trigger them
	Rules     []string         `yaml:"rules,omitempty"`

	// Modifiers are unconditional; they survive refresh_modifiers and are
	// dropped by a clear_modifiers step.
	Modifiers []compiler.ModifierSpec `yaml:"modifiers,omitempty"`
}

// Step is one action. Exactly one of the action fields must be set.
type Step struct {
	// Run enqueues the named ability with Payload and drives the queue.
	Run     string         `yaml:"run,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`

	// Trigger raises an external event with Fields.
	Trigger string         `yaml:"trigger,omitempty"`
	Fields  map[string]any `yaml:"fields,omitempty"`

	// Restore loads a run parked in the run log as the parked run. It needs
	// a recorder that can read continuations back (WithRecorder with a store).
	Restore string `yaml:"restore,omitempty"`

	// Resume answers the parked choice; Cancel aborts it.
	Resume map[string]any `yaml:"resume,omitempty"`
	Cancel bool           `yaml:"cancel,omitempty"`

	Refresh          bool   `yaml:"refresh,omitempty"`
	RefreshModifiers bool   `yaml:"refresh_modifiers,omitempty"`
	SetStat          *Set   `yaml:"set_stat,omitempty"`
	RemoveOwner      string `yaml:"remove_owner,omitempty"`
	ClearModifiers   string `yaml:"clear_modifiers,omitempty"`
}

// Set overwrites an owner's current base.
type Set struct {
	Owner string `yaml:"owner"`
	Stat  string `yaml:"stat"`
	Value int64  `yaml:"value"`
}

// Step kinds, as returned by Step.Kind.
const (
	StepRun              = "run"
	StepTrigger          = "trigger"
	StepRestore          = "restore"
	StepResume           = "resume"
	StepCancel           = "cancel"
	StepRefresh          = "refresh"
	StepRefreshModifiers = "refresh_modifiers"
	StepSetStat          = "set_stat"
	StepRemoveOwner      = "remove_owner"
	StepClearModifiers   = "clear_modifiers"
)

// Kinds returns the action kinds set on the step.
func (s Step) Kinds() []string {
	var kinds []string
	if s.Run != "" {
		kinds = append(kinds, StepRun)
	}
	if s.Trigger != "" {
		kinds = append(kinds, StepTrigger)
	}
	if s.Restore != "" {
		kinds = append(kinds, StepRestore)
	}
	if s.Resume != nil {
		kinds = append(kinds, StepResume)
	}
	if s.Cancel {
		kinds = append(kinds, StepCancel)
	}
	if s.Refresh {
		kinds = append(kinds, StepRefresh)
	}
	if s.RefreshModifiers {
		kinds = append(kinds, StepRefreshModifiers)
	}
	if s.SetStat != nil {
		kinds = append(kinds, StepSetStat)
	}
	if s.RemoveOwner != "" {
		kinds = append(kinds, StepRemoveOwner)
	}
	if s.ClearModifiers != "" {
		kinds = append(kinds, StepClearModifiers)
	}
	return kinds
}

// Assertion validates final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Owner and Stat select a stat (stat, modifier_count).
	Owner string `yaml:"owner,omitempty"`
	Stat  string `yaml:"stat,omitempty"`

	// Field picks the stat value compared by "stat": base (default), value
	// or original.
	Field string `yaml:"field,omitempty"`
	Value *int64 `yaml:"value,omitempty"`

	// Count is used by modifier_count, defect_count and trace_count.
	Count int `yaml:"count,omitempty"`

	// Code filters defect_count to one defect code.
	Code string `yaml:"code,omitempty"`

	// Messages is the exact log output (messages).
	Messages []string `yaml:"messages,omitempty"`

	// Pending is the expected choice state (choice_pending).
	Pending *bool `yaml:"pending,omitempty"`

	// Entry and Entries use the "kind" or "kind:detail" trace notation
	// (trace_count, trace_order).
	Entry   string   `yaml:"entry,omitempty"`
	Entries []string `yaml:"entries,omitempty"`
}

// Assertion type constants.
const (
	AssertStat          = "stat"
	AssertModifierCount = "modifier_count"
	AssertMessages      = "messages"
	AssertDefectCount   = "defect_count"
	AssertChoicePending = "choice_pending"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// relative spec paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	owners := make(map[string]bool, len(s.Owners))
	for i, o := range s.Owners {
		if o.Name == "" {
			return fmt.Errorf("owners[%d]: name is required", i)
		}
		if owners[o.Name] {
			return fmt.Errorf("owners[%d]: duplicate owner %q", i, o.Name)
		}
		owners[o.Name] = true
	}

	for i, step := range s.Steps {
		kinds := step.Kinds()
		if len(kinds) != 1 {
			return fmt.Errorf("steps[%d]: exactly one action is required, got %v", i, kinds)
		}
		if step.SetStat != nil && (step.SetStat.Owner == "" || step.SetStat.Stat == "") {
			return fmt.Errorf("steps[%d]: set_stat needs owner and stat", i)
		}
		if step.RemoveOwner != "" && !owners[step.RemoveOwner] {
			return fmt.Errorf("steps[%d]: unknown owner %q", i, step.RemoveOwner)
		}
		if step.ClearModifiers != "" && !owners[step.ClearModifiers] {
			return fmt.Errorf("steps[%d]: unknown owner %q", i, step.ClearModifiers)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStat:
		if a.Owner == "" || a.Stat == "" {
			return fmt.Errorf("assertions[%d]: owner and stat are required for stat", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for stat", index)
		}
		switch a.Field {
		case "", "base", "value", "original":
		default:
			return fmt.Errorf("assertions[%d]: unknown stat field %q", index, a.Field)
		}
	case AssertModifierCount:
		if a.Owner == "" {
			return fmt.Errorf("assertions[%d]: owner is required for modifier_count", index)
		}
	case AssertMessages:
		if a.Messages == nil {
			return fmt.Errorf("assertions[%d]: messages list is required for messages", index)
		}
	case AssertDefectCount:
	case AssertChoicePending:
		if a.Pending == nil {
			return fmt.Errorf("assertions[%d]: pending is required for choice_pending", index)
		}
	case AssertTraceOrder:
		if len(a.Entries) == 0 {
			return fmt.Errorf("assertions[%d]: entries list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
