package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flexi/internal/compiler"
	"github.com/roach88/flexi/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledStat is the JSON form of a stat definition.
type CompiledStat struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CompiledGraph pairs a graph description with its content hash.
type CompiledGraph struct {
	Hash        string              `json:"hash"`
	Description ir.GraphDescription `json:"description"`
}

// CompilationResult holds everything compiled from a specs directory.
type CompilationResult struct {
	IRVersion string              `json:"ir_version"`
	Stats     []CompiledStat      `json:"stats"`
	Rules     []compiler.RuleSpec `json:"rules"`
	Macros    []CompiledGraph     `json:"macros"`
	Abilities []CompiledGraph     `json:"abilities"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE specs to graph descriptions",
		Long: `Compile CUE stat, rule, macro and ability specs to graph descriptions.

Each macro and ability is printed with its content hash. The hash covers the
canonical JSON of the description, so two specs producing the same graph
hash equal.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := buildCompilationResult(loadResult.Bundle)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return formatter.Emit(result, nil, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Compiled %d stat(s), %d rule(s), %d macro(s), %d ability(ies)\n\n",
			len(result.Stats), len(result.Rules), len(result.Macros), len(result.Abilities))
		printGraphs(w, "Macros", result.Macros)
		printGraphs(w, "Abilities", result.Abilities)
		if opts.Output != "" {
			fmt.Fprintf(w, "Wrote compiled specs to %s\n", opts.Output)
		}
	})
}

func buildCompilationResult(b *compiler.Bundle) (*CompilationResult, error) {
	result := &CompilationResult{
		IRVersion: ir.IRVersion,
		Stats:     make([]CompiledStat, 0, len(b.Stats)),
		Rules:     b.Rules,
		Macros:    make([]CompiledGraph, 0, len(b.Macros)),
		Abilities: make([]CompiledGraph, 0, len(b.Abilities)),
	}
	if result.Rules == nil {
		result.Rules = []compiler.RuleSpec{}
	}
	for _, d := range b.Stats {
		result.Stats = append(result.Stats, CompiledStat{ID: int(d.ID), Name: d.Name})
	}

	var err error
	if result.Macros, err = hashGraphs(b.Macros); err != nil {
		return nil, err
	}
	if result.Abilities, err = hashGraphs(b.Abilities); err != nil {
		return nil, err
	}
	return result, nil
}

func hashGraphs(descs []ir.GraphDescription) ([]CompiledGraph, error) {
	out := make([]CompiledGraph, 0, len(descs))
	for _, d := range descs {
		hash, err := ir.GraphHash(d)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", d.Name, err)
		}
		out = append(out, CompiledGraph{Hash: hash, Description: d})
	}
	return out, nil
}

func printGraphs(w io.Writer, title string, graphs []CompiledGraph) {
	if len(graphs) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, g := range graphs {
		fmt.Fprintf(w, "  %s: %d node(s), %d edge(s) %s\n",
			g.Description.Name, len(g.Description.Nodes), len(g.Description.Edges), shortHash(g.Hash))
	}
	fmt.Fprintln(w)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// outputCompileErrors reports compile failures. Specs that do not compile
// are command errors (exit code 2).
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = toCLIError(err)
	}
	err := formatter.Emit(cliErrors, &cliErrors[0], func(w io.Writer) {
		fmt.Fprintln(w, "✗ Compilation failed")
		fmt.Fprintln(w)
		for _, err := range errs {
			var loadErr *LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				fmt.Fprintf(w, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			e := toCLIError(err)
			fmt.Fprintf(w, "  %s: %s\n\n", e.Code, e.Message)
		}
	})
	if err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func toCLIError(err error) CLIError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return CLIError{Code: loadErr.Code, Message: loadErr.Message}
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}

// writeResultToFile writes indented JSON. Canonical JSON is only used for
// hashing.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}
