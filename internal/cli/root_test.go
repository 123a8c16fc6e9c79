package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "flexi", cmd.Use)
	assert.Contains(t, cmd.Long, "abilities")
	assert.Contains(t, cmd.Version, ir.EngineVersion)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "run", "test", "trace", "resume"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"compile", []string{"output"}},
		{"run", []string{"db", "max-steps"}},
		{"test", []string{"update", "filter", "max-steps"}},
		{"trace", []string{"db", "kind", "node"}},
		{"resume", []string{"db", "max-steps", "answer", "cancel"}},
	}

	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, f := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(f), "flag --%s", f)
			}
		})
	}

	compileCmd, _, _ := cmd.Find([]string{"compile"})
	assert.Equal(t, "o", compileCmd.Flags().Lookup("output").Shorthand)
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--format", "xml", "validate", specsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootDispatchesToValidate(t *testing.T) {
	cmd := NewRootCommand()
	out, err := execute(t, cmd, "validate", specsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid")
}
