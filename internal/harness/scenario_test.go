package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a spec file and a scenario file into dir and returns
// the scenario path.
func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spec.cue"), []byte("stat: HEALTH: id: 1\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
specs: [spec.cue]
config:
  max_steps: 50
owners:
  - name: hero
    stats: { HEALTH: 10 }
steps:
  - run: hello
    payload: { target: "@hero" }
  - cancel: true
assertions:
  - type: stat
    owner: hero
    stat: HEALTH
    value: 10
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "spec.cue")}, scenario.Specs)
	assert.Equal(t, 50, scenario.Config.MaxSteps)
	require.Len(t, scenario.Owners, 1)
	assert.Equal(t, int64(10), scenario.Owners[0].Stats["HEALTH"])
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, []string{StepRun}, scenario.Steps[0].Kinds())
	assert.Equal(t, "@hero", scenario.Steps[0].Payload["target"])
	assert.Equal(t, []string{StepCancel}, scenario.Steps[1].Kinds())
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, int64(10), *scenario.Assertions[0].Value)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: x
description: "x"
specs: [spec.cue]
steps: [{refresh: true}]
assertion: []
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: defect_count}]\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: defect_count}]\n",
			want:    "description is required",
		},
		{
			name:    "missing specs",
			content: "name: n\ndescription: d\nsteps: [{refresh: true}]\nassertions: [{type: defect_count}]\n",
			want:    "specs list is required",
		},
		{
			name:    "spec not found",
			content: "name: n\ndescription: d\nspecs: [other.cue]\nsteps: [{refresh: true}]\nassertions: [{type: defect_count}]\n",
			want:    "spec file not found",
		},
		{
			name:    "missing steps",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nassertions: [{type: defect_count}]\n",
			want:    "steps list is required",
		},
		{
			name:    "missing assertions",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\n",
			want:    "assertions list is required",
		},
		{
			name:    "two actions in one step",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true, run: a}]\nassertions: [{type: defect_count}]\n",
			want:    "exactly one action",
		},
		{
			name:    "empty step",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{}]\nassertions: [{type: defect_count}]\n",
			want:    "exactly one action",
		},
		{
			name:    "duplicate owner",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nowners: [{name: a}, {name: a}]\nsteps: [{refresh: true}]\nassertions: [{type: defect_count}]\n",
			want:    "duplicate owner",
		},
		{
			name:    "remove unknown owner",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{remove_owner: ghost}]\nassertions: [{type: defect_count}]\n",
			want:    `unknown owner "ghost"`,
		},
		{
			name:    "clear modifiers of unknown owner",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{clear_modifiers: ghost}]\nassertions: [{type: defect_count}]\n",
			want:    `unknown owner "ghost"`,
		},
		{
			name:    "stat without value",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: stat, owner: a, stat: HEALTH}]\n",
			want:    "value is required",
		},
		{
			name:    "bad stat field",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: stat, owner: a, stat: HEALTH, value: 1, field: max}]\n",
			want:    "unknown stat field",
		},
		{
			name:    "trace_order without entries",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: trace_order}]\n",
			want:    "entries list is required",
		},
		{
			name:    "choice_pending without pending",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: choice_pending}]\n",
			want:    "pending is required",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: final_state}]\n",
			want:    "unknown assertion type",
		},
		{
			name:    "negative count",
			content: "name: n\ndescription: d\nspecs: [spec.cue]\nsteps: [{refresh: true}]\nassertions: [{type: defect_count, count: -1}]\n",
			want:    "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	specs := filepath.Join(dir, "specs")
	require.NoError(t, os.MkdirAll(specs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(specs, "a.cue"), []byte("stat: HEALTH: id: 1\n"), 0644))

	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: n
description: d
specs: [specs/a.cue]
steps: [{refresh: true}]
assertions: [{type: defect_count}]
`), 0644))

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(specs, "a.cue"), scenario.Specs[0])
}
