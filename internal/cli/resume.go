package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flexi/internal/harness"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	RunOptions
	Answer string
	Cancel bool
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RunOptions: RunOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "resume <scenario.yaml> <run-id>",
		Short: "Answer a run parked in the database",
		Long: `Restore a run that 'flexi run' left parked on a choice and answer it.

The scenario supplies the specs and owners; its steps and assertions are not
executed. Owners start from the stats the scenario declares. The parked
ability must still compile to the same graph, otherwise the continuation is
refused.

The answer is a YAML or JSON object; strings of the form "@name" become the
id of the named owner.

Example:
  flexi resume ./scenarios/choice_target.yaml 0190a5c2-... --db ./flexi.db --answer '{target: "@goblin"}'
  flexi resume ./scenarios/choice_target.yaml 0190a5c2-... --db ./flexi.db --cancel`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "override the per-run step quota")
	cmd.Flags().StringVar(&opts.Answer, "answer", "", "choice answer as a YAML/JSON object")
	cmd.Flags().BoolVar(&opts.Cancel, "cancel", false, "cancel the parked run instead of answering")
	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("answer", "cancel")
	cmd.MarkFlagsOneRequired("answer", "cancel")

	return cmd
}

func runResume(opts *ResumeOptions, scenarioFile, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	answer, err := resumeStep(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid answer", err)
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	scenario.Steps = []harness.Step{{Restore: runID}, answer}
	scenario.Assertions = nil

	return executeRecorded(cmd, &opts.RunOptions, formatter, scenario)
}

func resumeStep(opts *ResumeOptions) (harness.Step, error) {
	if opts.Cancel {
		return harness.Step{Cancel: true}, nil
	}
	var data map[string]any
	if err := yaml.Unmarshal([]byte(opts.Answer), &data); err != nil {
		return harness.Step{}, fmt.Errorf("parse --answer: %w", err)
	}
	if data == nil {
		return harness.Step{}, fmt.Errorf("--answer must be an object")
	}
	return harness.Step{Resume: data}, nil
}
