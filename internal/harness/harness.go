package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/flexi/internal/compiler"
	"github.com/roach88/flexi/internal/engine"
	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/nodes"
	"github.com/roach88/flexi/internal/stats"
	"github.com/roach88/flexi/internal/testutil"
)

// Option configures a scenario execution.
type Option func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	recorder engine.Recorder
	ids      engine.RunIDGenerator
	clock    *engine.Clock
	maxSteps int
	ctx      context.Context
}

// WithLogger sets the logger passed to the system. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithRecorder records runs, trace and defects while the scenario executes.
func WithRecorder(r engine.Recorder) Option {
	return func(c *runConfig) { c.recorder = r }
}

// WithRunIDGenerator replaces the sequential run ids used for golden files.
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(c *runConfig) { c.ids = g }
}

// WithClock starts the logical clock somewhere other than zero.
func WithClock(clock *engine.Clock) Option {
	return func(c *runConfig) { c.clock = clock }
}

// WithMaxSteps overrides the scenario's step quota when n > 0.
func WithMaxSteps(n int) Option {
	return func(c *runConfig) { c.maxSteps = n }
}

// WithContext runs the steps under ctx. A cancelled context stops the
// system between runs.
func WithContext(ctx context.Context) Option {
	return func(c *runConfig) { c.ctx = ctx }
}

// Harness holds the live state of one scenario execution.
type Harness struct {
	sys       *engine.System
	repo      *stats.Repository
	bundle    *compiler.Bundle
	rules     map[string]compiler.RuleSpec
	templates map[string]*engine.Ability
	owners    map[string]*stats.Owner
	parked    engine.ParkedSource
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh registry, repository and system. Run ids are
// sequential ("run-1", "run-2", ...) unless overridden, so traces are stable
// for golden comparison.
//
// Execution flow:
//  1. Compile the CUE specs
//  2. Define stats, load macros, instantiate abilities
//  3. Create owners with their stats, rules and appended abilities
//  4. Execute steps
//  5. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := setup(scenario, cfg)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := cfg.ctx.Err(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := h.execute(cfg.ctx, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result := NewResult()
	result.Trace = h.sys.Trace()
	result.Messages = h.sys.Messages()
	result.Defects = h.sys.Defects()

	actx := &AssertionContext{System: h.sys, Owners: h.owners}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func setup(scenario *Scenario, cfg runConfig) (*Harness, error) {
	bundle, errs := compiler.LoadBundle(scenario.Specs...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to compile specs: %w", errors.Join(errs...))
	}

	repo := stats.NewRepository()
	if err := repo.Define(bundle.Stats...); err != nil {
		return nil, fmt.Errorf("failed to define stats: %w", err)
	}

	ids := cfg.ids
	if ids == nil {
		ids = testutil.NewSequentialRunIDs(scenario.Config.RunIDPrefix)
	}
	engineOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithRunIDGenerator(ids),
		engine.WithRefreshModifiersBetweenRuns(scenario.Config.RefreshModifiersBetweenRuns),
	}
	if cfg.recorder != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(cfg.recorder))
	}
	if cfg.clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(cfg.clock))
	}
	maxSteps := scenario.Config.MaxSteps
	if cfg.maxSteps > 0 {
		maxSteps = cfg.maxSteps
	}
	if maxSteps > 0 {
		engineOpts = append(engineOpts, engine.WithMaxSteps(maxSteps))
	}
	if scenario.Config.MaxChainDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxChainDepth(scenario.Config.MaxChainDepth))
	}

	h := &Harness{
		sys:       engine.New(nodes.NewRegistry(), repo, engineOpts...),
		repo:      repo,
		bundle:    bundle,
		rules:     make(map[string]compiler.RuleSpec),
		templates: make(map[string]*engine.Ability),
		owners:    make(map[string]*stats.Owner),
		logger:    cfg.logger,
	}
	h.parked, _ = cfg.recorder.(engine.ParkedSource)
	for _, r := range bundle.Rules {
		h.rules[r.Name] = r
	}
	for _, r := range scenario.Rules {
		h.rules[r.Name] = r
	}

	for _, m := range bundle.Macros {
		h.sys.LoadMacro(m)
	}
	for _, d := range bundle.Abilities {
		h.templates[d.Name] = h.sys.InstantiateAbility(d)
	}

	for _, spec := range scenario.Owners {
		if err := h.createOwner(spec); err != nil {
			return nil, fmt.Errorf("owner %s: %w", spec.Name, err)
		}
	}
	repo.RefreshModifiers()
	return h, nil
}

func (h *Harness) createOwner(spec OwnerSpec) error {
	o := h.repo.CreateOwner()
	h.owners[spec.Name] = o

	names := make([]string, 0, len(spec.Stats))
	for name := range spec.Stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id, ok := h.repo.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown stat %q", name)
		}
		if err := o.AddStat(id, spec.Stats[name]); err != nil {
			return err
		}
	}

	for _, name := range spec.Rules {
		r, ok := h.rules[name]
		if !ok {
			return fmt.Errorf("unknown rule %q", name)
		}
		cm, err := r.Resolve(h.repo)
		if err != nil {
			return err
		}
		o.AddRule(cm)
	}

	for _, ms := range spec.Modifiers {
		m, err := ms.Resolve(h.repo, spec.Name)
		if err != nil {
			return fmt.Errorf("modifier: %w", err)
		}
		o.AppendModifier(m)
	}

	for _, name := range spec.Abilities {
		desc, ok := h.bundle.Ability(name)
		if !ok {
			return fmt.Errorf("unknown ability %q", name)
		}
		if _, err := h.sys.AppendAbility(o, desc); err != nil {
			return err
		}
	}
	h.logger.Debug("owner created", "owner", spec.Name, "id", o.ID())
	return nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch {
	case step.Run != "":
		ab, ok := h.templates[step.Run]
		if !ok {
			return fmt.Errorf("unknown ability %q", step.Run)
		}
		payload, err := h.toObject(step.Payload)
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		if !h.sys.TryEnqueueAndRunAbility(ctx, ab, payload) {
			return fmt.Errorf("ability %q was not enqueued", step.Run)
		}
	case step.Trigger != "":
		fields, err := h.toObject(step.Fields)
		if err != nil {
			return fmt.Errorf("fields: %w", err)
		}
		n := h.sys.TriggerEvent(ctx, step.Trigger, fields)
		h.logger.Debug("event triggered", "event", step.Trigger, "runs", n)
	case step.Restore != "":
		if h.parked == nil {
			return fmt.Errorf("restore %s: no run log to restore from", step.Restore)
		}
		return h.sys.RestoreParked(ctx, h.parked, step.Restore)
	case step.Resume != nil:
		data, err := h.toObject(step.Resume)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		return h.sys.Resume(ctx, flow.Answer{Data: data})
	case step.Cancel:
		return h.sys.Resume(ctx, flow.Cancellation())
	case step.Refresh:
		h.sys.RefreshStats()
	case step.RefreshModifiers:
		h.sys.RefreshModifiers()
	case step.SetStat != nil:
		o, ok := h.owners[step.SetStat.Owner]
		if !ok {
			return fmt.Errorf("unknown owner %q", step.SetStat.Owner)
		}
		id, ok := h.repo.Lookup(step.SetStat.Stat)
		if !ok {
			return fmt.Errorf("unknown stat %q", step.SetStat.Stat)
		}
		return o.SetStat(id, step.SetStat.Value)
	case step.RemoveOwner != "":
		h.repo.RemoveOwner(h.owners[step.RemoveOwner])
	case step.ClearModifiers != "":
		o, ok := h.owners[step.ClearModifiers]
		if !ok {
			return fmt.Errorf("unknown owner %q", step.ClearModifiers)
		}
		o.ClearModifiers()
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

// toObject converts YAML-parsed values to an ir.IRObject. Strings of the
// form "@name" become the id of the named owner.
func (h *Harness) toObject(m map[string]any) (ir.IRObject, error) {
	obj := ir.IRObject{}
	for key, val := range m {
		v, err := h.toValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj[key] = v
	}
	return obj, nil
}

func (h *Harness) toValue(val any) (ir.IRValue, error) {
	switch v := val.(type) {
	case nil:
		return ir.IRNull{}, nil
	case string:
		if name, ok := strings.CutPrefix(v, "@"); ok {
			o, ok := h.owners[name]
			if !ok {
				return nil, fmt.Errorf("unknown owner %q", name)
			}
			return ir.IRInt(o.ID()), nil
		}
		return ir.IRString(v), nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case float64:
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden: %v", v)
	case bool:
		return ir.IRBool(v), nil
	case []any:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			e, err := h.toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		return h.toObject(v)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
