package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/flexi/internal/engine"
	"github.com/roach88/flexi/internal/harness"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	MaxSteps int

	// IDs overrides the run id generator (for testing). If nil, defaults to
	// UUIDv7Generator.
	IDs engine.RunIDGenerator
}

// RunSummary describes one executed scenario.
type RunSummary struct {
	Scenario string         `json:"scenario"`
	Database string         `json:"database"`
	Pass     bool           `json:"pass"`
	Runs     []ir.RunRecord `json:"runs"`
	Messages []string       `json:"messages"`
	Defects  []string       `json:"defects,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record it",
		Long: `Run a scenario and record every run, trace entry, defect and parked
continuation in a SQLite database (created if it doesn't exist).

Run ids are UUIDv7 and the logical clock continues from the last sequence
number already in the database, so several runs can share one file. Use
'flexi trace <run-id>' to inspect a recorded run.

Example:
  flexi run ./scenarios/hello_world.yaml --db ./flexi.db
  flexi run ./scenarios/choice_target.yaml --db /tmp/test.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioRecorded(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "override the per-run step quota")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runScenarioRecorded(opts *RunOptions, scenarioFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	return executeRecorded(cmd, opts, formatter, scenario)
}

// executeRecorded runs scenario against the database in opts and prints the
// summary. The resume command shares it with run.
func executeRecorded(cmd *cobra.Command, opts *RunOptions, formatter *OutputFormatter, scenario *harness.Scenario) error {
	logger := slog.Default()

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	last, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read last sequence", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}

	logger.Info("running scenario", "scenario", scenario.Name, "start_seq", last)
	result, err := harness.Run(scenario,
		harness.WithContext(ctx),
		harness.WithLogger(logger),
		harness.WithRecorder(st),
		harness.WithRunIDGenerator(ids),
		harness.WithClock(engine.NewClockAt(last)),
		harness.WithMaxSteps(opts.MaxSteps),
	)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	summary := RunSummary{
		Scenario: scenario.Name,
		Database: opts.Database,
		Pass:     result.Pass,
		Messages: result.Messages,
		Errors:   result.Errors,
	}
	for _, d := range result.Defects {
		summary.Defects = append(summary.Defects, d.Error())
	}
	for _, id := range runIDs(result.Trace) {
		rec, err := st.ReadRun(ctx, id)
		if err != nil {
			logger.Warn("run not recorded", "run_id", id, "error", err)
			continue
		}
		summary.Runs = append(summary.Runs, rec)
	}

	var fail *CLIError
	if !result.Pass {
		fail = &CLIError{Code: "E_ASSERTION_FAILED", Message: fmt.Sprintf("%d assertion(s) failed", len(result.Errors))}
	}
	if err := formatter.Emit(summary, fail, func(w io.Writer) { printRunSummary(w, summary) }); err != nil {
		return err
	}
	if fail != nil {
		return NewExitError(ExitFailure, fail.Message)
	}
	return nil
}

// runIDs returns the distinct run ids of trace in first-seen order.
func runIDs(trace []ir.TraceEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range trace {
		if e.RunID == "" || seen[e.RunID] {
			continue
		}
		seen[e.RunID] = true
		out = append(out, e.RunID)
	}
	return out
}

func printRunSummary(w io.Writer, s RunSummary) {
	mark := "✓"
	if !s.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (recorded in %s)\n\n", mark, s.Scenario, s.Database)

	fmt.Fprintln(w, "Runs:")
	for _, r := range s.Runs {
		fmt.Fprintf(w, "  %s  %-30s %-9s depth=%d\n", r.RunID, r.Ability, r.Status, r.Depth)
	}
	if len(s.Messages) > 0 {
		fmt.Fprintln(w, "\nMessages:")
		for _, m := range s.Messages {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	if len(s.Defects) > 0 {
		fmt.Fprintln(w, "\nDefects:")
		for _, d := range s.Defects {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "\n%s\n", e)
	}
}
