package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/ir"
)

func TestRunWithGolden_HelloWorld(t *testing.T) {
	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	result, err := RunWithGolden(t, loadFixture(t, "hello_world"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestMarshalGolden_Canonical(t *testing.T) {
	result := &Result{
		Trace: []ir.TraceEntry{
			{Seq: 2, RunID: "run-1", Kind: ir.TraceRunStart, NodeID: ir.NoNode, Detail: "a"},
			{Seq: 3, RunID: "run-1", Kind: ir.TraceNode, NodeID: 0, Detail: "a/entry.start"},
			{Seq: 4, RunID: "run-1", Kind: ir.TraceNode, NodeID: 4, Detail: "a/flow.log"},
		},
		Messages: []string{"hi"},
	}
	got, err := MarshalGolden("s", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"messages":["hi"],"scenario_name":"s","trace":[`+
			`{"detail":"a","kind":"run_start","run_id":"run-1","seq":2},`+
			`{"detail":"a/entry.start","kind":"node","node_id":0,"run_id":"run-1","seq":3},`+
			`{"detail":"a/flow.log","kind":"node","node_id":4,"run_id":"run-1","seq":4}]}`,
		string(got))
}

func TestMarshalGolden_Empty(t *testing.T) {
	got, err := MarshalGolden("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[],"scenario_name":"empty","trace":[]}`, string(got))
}
