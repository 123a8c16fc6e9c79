package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	specsDir     = filepath.Join("..", "..", "testdata", "specs")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
	invalidDir   = filepath.Join("..", "..", "testdata", "invalid")
)

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// combatSpec returns the absolute path of the shared combat specs.
func combatSpec(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join(specsDir, "combat.cue"))
	require.NoError(t, err)
	return p
}
