package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flexi/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
	MaxSteps int    // overrides every scenario's step quota when > 0
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "" when no golden file exists
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run scenarios and compare traces",
		Long: `Run scenario files against the specs they reference.

Each scenario's assertions are evaluated and, when golden/<name>.golden
exists next to the scenario, its trace is compared byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  flexi test ./scenarios
  flexi test ./scenarios/hello_world.yaml
  flexi test ./scenarios --filter "chain_*"
  flexi test ./scenarios --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "override the per-run step quota")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var scenarioFiles []string
	for _, p := range paths {
		files, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		scenarioFiles = append(scenarioFiles, files...)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, file := range scenarioFiles {
		sr := runScenario(file, opts)
		formatter.VerboseLog("%s: pass=%v", sr.Name, sr.Pass)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var fail *CLIError
	if result.Failed > 0 {
		fail = &CLIError{Code: "E_TEST_FAILED", Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
	}
	if err := formatter.Emit(result, fail, func(w io.Writer) { printTestText(w, result) }); err != nil {
		return err
	}
	if fail != nil {
		return NewExitError(ExitFailure, fail.Message)
	}
	return nil
}

// findScenarioFiles returns path itself when it is a file, otherwise every
// YAML file under it whose base name matches filter.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path not found: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file and checks it against its golden
// file when one exists.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario, harness.WithMaxSteps(opts.MaxSteps))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = result.Errors

	golden, err := harness.MarshalGolden(scenario.Name, result)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("marshal trace: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(file)
	switch {
	case opts.Update:
		if err := writeGoldenFile(goldenPath, golden); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return sr
		}
		sr.Golden = "updated"
	default:
		want, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		case !bytes.Equal(want, golden):
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		default:
			sr.Golden = "match"
		}
	}

	sr.Pass = result.Pass && len(sr.Errors) == 0
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func printTestText(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range result.Scenarios {
		if sr.Pass {
			suffix := ""
			if sr.Golden == "updated" {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(w, "✓ %s%s\n", sr.Name, suffix)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			for _, line := range strings.Split(e, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
