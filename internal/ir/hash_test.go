package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescription() GraphDescription {
	return GraphDescription{
		Name: "hello_world",
		Kind: KindAbility,
		Nodes: []NodeDesc{
			{ID: 1, Type: "entry.start"},
			{ID: 2, Type: "flow.log", Config: IRObject{"text": IRString("Hello")}},
		},
		Edges: []EdgeDesc{
			{FromNode: 1, FromPort: "next", ToNode: 2, ToPort: "previous"},
		},
	}
}

func TestGraphHash_Deterministic(t *testing.T) {
	h1, err := GraphHash(sampleDescription())
	require.NoError(t, err)
	h2, err := GraphHash(sampleDescription())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "sha256 hex digest")
}

func TestGraphHash_IgnoresPositions(t *testing.T) {
	moved := sampleDescription()
	moved.Nodes[0].Position = Vec2{X: 300, Y: -40}

	assert.Equal(t, MustGraphHash(sampleDescription()), MustGraphHash(moved))
}

func TestGraphHash_ChangesWithConfig(t *testing.T) {
	changed := sampleDescription()
	changed.Nodes[1].Config = IRObject{"text": IRString("World!")}

	assert.NotEqual(t, MustGraphHash(sampleDescription()), MustGraphHash(changed))
}

func TestContinuationHash_DomainSeparated(t *testing.T) {
	snapshot := IRObject{"name": IRString("hello_world")}
	h, err := ContinuationHash(snapshot)
	require.NoError(t, err)

	// Same bytes under a different domain must not collide.
	assert.NotEqual(t, hashWithDomain(DomainGraph, []byte(`{"name":"hello_world"}`)), h)
	assert.Equal(t, hashWithDomain(DomainContinuation, []byte(`{"name":"hello_world"}`)), h)
}

func TestTypeNames_FirstSeenOrder(t *testing.T) {
	d := sampleDescription()
	d.Nodes = append(d.Nodes, NodeDesc{ID: 3, Type: "flow.log"}, NodeDesc{ID: 4, Type: "stat.refresh"})
	assert.Equal(t, []string{"entry.start", "flow.log", "stat.refresh"}, d.TypeNames())
}
