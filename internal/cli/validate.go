package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/flexi/internal/compiler"
	"github.com/roach88/flexi/internal/engine"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/nodes"
	"github.com/roach88/flexi/internal/stats"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Stats     int                        `json:"stats"`
	Rules     int                        `json:"rules"`
	Macros    int                        `json:"macros"`
	Abilities int                        `json:"abilities"`
	Graphs    []GraphSummary             `json:"graphs,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// GraphSummary counts the elements of one built graph.
type GraphSummary struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Nodes       int    `json:"nodes"`
	FlowNodes   int    `json:"flow_nodes"`
	Ports       int    `json:"ports"`
	Connections int    `json:"connections"`
}

func summarize(kind, name string, g *graph.Graph) GraphSummary {
	st := g.Stats()
	return GraphSummary{
		Kind:        kind,
		Name:        name,
		Nodes:       st.Nodes,
		FlowNodes:   st.FlowNodes,
		Ports:       st.Ports,
		Connections: st.Connections,
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate specs and build every graph",
		Long: `Validate CUE stat, rule, macro and ability specs.

Compiles every definition, checks names, node ids and edges, then builds
each macro and ability graph through the node registry and reports the
structural defects found. Exits 1 when anything is wrong.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, toValidationError(err))
	}
	bundleErrors, graphs := validateBundle(loadResult.Bundle, formatter)
	validationErrors = append(validationErrors, bundleErrors...)

	b := loadResult.Bundle
	result := ValidationResult{
		Valid:     len(validationErrors) == 0,
		Stats:     len(b.Stats),
		Rules:     len(b.Rules),
		Macros:    len(b.Macros),
		Abilities: len(b.Abilities),
		Graphs:    graphs,
		Errors:    validationErrors,
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return formatter.Emit(result, nil, func(w io.Writer) {
		fmt.Fprintf(w, "✓ All specs valid (%d stats, %d rules, %d macros, %d abilities)\n",
			result.Stats, result.Rules, result.Macros, result.Abilities)
		if opts.Verbose {
			for _, g := range result.Graphs {
				fmt.Fprintf(w, "  %-7s %-30s %d nodes (%d flow), %d ports, %d connections\n",
					g.Kind, g.Name, g.Nodes, g.FlowNodes, g.Ports, g.Connections)
			}
		}
	})
}

// validateBundle runs the static checks, then builds every graph when the
// static checks pass. Build defects are reported per graph.
func validateBundle(b *compiler.Bundle, formatter *OutputFormatter) ([]compiler.ValidationError, []GraphSummary) {
	reg := nodes.NewRegistry()
	errs := compiler.Validate(b, reg)
	if len(errs) > 0 {
		return errs, nil
	}

	repo := stats.NewRepository()
	if err := repo.Define(b.Stats...); err != nil {
		return []compiler.ValidationError{{Field: "stat", Message: err.Error(), Code: compiler.ErrDuplicateStatID}}, nil
	}
	var graphs []GraphSummary
	sys := engine.New(reg, repo, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer sys.Close()

	for _, m := range b.Macros {
		formatter.VerboseLog("Building macro: %s", m.Name)
		for _, d := range sys.LoadMacro(m) {
			errs = append(errs, defectError("macro", d))
		}
		if g, ok := sys.Macro(m.Name); ok {
			graphs = append(graphs, summarize("macro", m.Name, g))
		}
	}
	for _, desc := range b.Abilities {
		formatter.VerboseLog("Building ability: %s", desc.Name)
		ab := sys.InstantiateAbility(desc)
		for _, d := range ab.Defects {
			errs = append(errs, defectError("ability", d))
		}
		graphs = append(graphs, summarize("ability", desc.Name, ab.Graph))
	}
	return errs, graphs
}

func defectError(kind string, d *graph.Defect) compiler.ValidationError {
	field := fmt.Sprintf("%s.%s", kind, d.Graph)
	if d.NodeID != graph.NoNode {
		field = fmt.Sprintf("%s#%d", field, d.NodeID)
	}
	return compiler.ValidationError{Field: field, Message: d.Message, Code: string(d.Code)}
}

func toValidationError(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return compiler.ValidationError{Field: "load", Message: loadErr.Message, Code: loadErr.Code, Line: line}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputLoadError reports a failure to load anything at all. These are
// command errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	first := result.Errors[0]
	err := formatter.Emit(result, &CLIError{Code: first.Code, Message: first.Message}, func(w io.Writer) {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "line %d\n", e.Line)
			}
			fmt.Fprintf(w, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
		}
	})
	if err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
