package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/nodes"
)

const bundleSrc = `
stat: {
	HEALTH: id: 1
	ATTACK: id: 2
}

rule: rage: {
	when: {stat: "HEALTH", cmp: "<", value: 25}
	modifiers: [{stat: "ATTACK", op: "add", value: 4}]
}

macro: hello: {
	nodes: [{id: 1, type: "flow.log", config: {text: "Hello"}}]
	edges: [{from: -1, to: 1}]
}

ability: normal_attack: {
	nodes: [
		{id: 1, type: "entry.start"},
		{id: 2, type: "combat.damage"},
	]
	edges: [{from: 1, to: 2}]
}

ability: greet: {
	nodes: [
		{id: 1, type: "entry.start"},
		{id: 2, type: "macro.call", config: {macro: "hello"}},
	]
	edges: [{from: 1, to: 2}]
}
`

func TestCompileBundle(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(bundleSrc)
	require.NoError(t, v.Err())

	b, errs := CompileBundle(v)
	require.Empty(t, errs)

	assert.Len(t, b.Stats, 2)
	require.Len(t, b.Rules, 1)
	assert.Equal(t, "rage", b.Rules[0].Name)
	require.Len(t, b.Macros, 1)
	assert.Equal(t, ir.KindMacro, b.Macros[0].Kind)
	require.Len(t, b.Abilities, 2)
	assert.Equal(t, "greet", b.Abilities[0].Name)
	assert.Equal(t, "normal_attack", b.Abilities[1].Name)

	_, ok := b.Ability("normal_attack")
	assert.True(t, ok)
	_, ok = b.Ability("missing")
	assert.False(t, ok)
	_, ok = b.Rule("rage")
	assert.True(t, ok)

	assert.Empty(t, Validate(b, nodes.NewRegistry()))
}

func TestCompileBundleCollectsErrors(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		ability: bad1: {edges: []}
		ability: bad2: {nodes: [{id: 1}]}
		ability: ok: {nodes: [{id: 1, type: "entry.start"}]}
	`)
	require.NoError(t, v.Err())

	b, errs := CompileBundle(v)
	assert.Len(t, errs, 2)
	require.Len(t, b.Abilities, 1)
	assert.Equal(t, "ok", b.Abilities[0].Name)
}

func TestCompileBundleCUEError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`a: 1
a: 2`)
	_, errs := CompileBundle(v)
	require.Len(t, errs, 1)
}
