package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/queryir"
	"github.com/roach88/flexi/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter trace entries to one kind
	Node     int    // optional - filter trace entries to one node id
}

// TraceResult holds everything recorded for one run.
type TraceResult struct {
	Run      ir.RunRecord      `json:"run"`
	Trace    []ir.TraceEntry   `json:"trace"`
	Defects  []ir.DefectRecord `json:"defects"`
	Children []ir.RunRecord    `json:"children"`
	Parked   *ParkedInfo       `json:"parked,omitempty"`
}

// ParkedInfo describes the stored continuation of a parked run.
type ParkedInfo struct {
	Hash     string      `json:"hash"`
	Snapshot ir.IRObject `json:"snapshot"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the recorded trace of a run",
		Long: `Show what was recorded for one run: its record, trace entries, defects,
the runs it triggered and, if it is still waiting on a choice, its parked
continuation.

Examples:
  flexi trace 0192b7c4-... --db ./flexi.db
  flexi trace 0192b7c4-... --db ./flexi.db --kind message
  flexi trace 0192b7c4-... --db ./flexi.db --node 4
  flexi trace 0192b7c4-... --db ./flexi.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show trace entries of this kind")
	cmd.Flags().IntVar(&opts.Node, "node", 0, "only show trace entries of this node id")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := store.Open(opts.Database, store.ReadOnly())
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := loadTrace(ctx, st, runID, traceFilter(runID, opts.Kind, opts.Node))
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	return formatter.Emit(result, nil, func(w io.Writer) { printTrace(w, result, opts.Verbose) })
}

// traceFilter selects the trace entries of runID, narrowed by kind and node
// when set.
func traceFilter(runID, kind string, node int) queryir.Predicate {
	var byKind, byNode queryir.Predicate
	if kind != "" {
		byKind = queryir.Equals{Field: "kind", Value: ir.IRString(kind)}
	}
	if node != 0 {
		byNode = queryir.Equals{Field: "node_id", Value: ir.IRInt(node)}
	}
	return queryir.Where(queryir.Equals{Field: "run_id", Value: ir.IRString(runID)}, byKind, byNode)
}

func loadTrace(ctx context.Context, st *store.Store, runID string, filter queryir.Predicate) (*TraceResult, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	trace, err := st.QueryTrace(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	defects, err := st.ReadDefects(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("reading defects: %w", err)
	}
	children, err := st.QueryRuns(ctx, queryir.Equals{Field: "parent_run", Value: ir.IRString(runID)})
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}

	result := &TraceResult{Run: run, Trace: trace, Defects: defects, Children: children}

	if run.Status == ir.RunParked {
		snapshot, hash, err := st.ReadParked(ctx, runID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("reading parked continuation: %w", err)
		default:
			result.Parked = &ParkedInfo{Hash: hash, Snapshot: snapshot}
		}
	}
	return result, nil
}

func printTrace(w io.Writer, r *TraceResult, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", r.Run.RunID)
	fmt.Fprintf(w, "Ability: %s (%s)\n", r.Run.Ability, shortHash(r.Run.GraphHash))
	fmt.Fprintf(w, "Status: %s\n", r.Run.Status)
	if r.Run.ParentRun != "" {
		fmt.Fprintf(w, "Parent: %s (depth %d)\n", r.Run.ParentRun, r.Run.Depth)
	}
	if verbose {
		fmt.Fprintf(w, "Payload: %s\n", canonicalString(r.Run.Payload))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Trace ===")
	if len(r.Trace) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range r.Trace {
		switch {
		case e.NodeID != ir.NoNode:
			fmt.Fprintf(w, "  [%d] %-9s #%d %s\n", e.Seq, e.Kind, e.NodeID, e.Detail)
		default:
			fmt.Fprintf(w, "  [%d] %-9s %s\n", e.Seq, e.Kind, e.Detail)
		}
	}
	fmt.Fprintln(w)

	if len(r.Defects) > 0 {
		fmt.Fprintln(w, "=== Defects ===")
		for _, d := range r.Defects {
			loc := d.Graph
			if d.NodeID != ir.NoNode {
				loc = fmt.Sprintf("%s#%d", loc, d.NodeID)
			}
			fmt.Fprintf(w, "  [%d] %s %s: %s\n", d.Seq, d.Code, loc, d.Message)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Triggered Runs ===")
	if len(r.Children) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, c := range r.Children {
		fmt.Fprintf(w, "  %s %s %s\n", c.RunID, c.Ability, c.Status)
	}

	if r.Parked != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Parked ===")
		fmt.Fprintf(w, "  Continuation: %s\n", shortHash(r.Parked.Hash))
		if verbose {
			fmt.Fprintf(w, "  Snapshot: %s\n", canonicalString(r.Parked.Snapshot))
		}
	}
}

func canonicalString(obj ir.IRObject) string {
	if obj == nil {
		return "{}"
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
