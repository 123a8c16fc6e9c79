package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialRunIDs(t *testing.T) {
	gen := NewSequentialRunIDs("attack")

	assert.Equal(t, "attack-1", gen.Generate())
	assert.Equal(t, "attack-2", gen.Generate())
}

func TestSequentialRunIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "run-1", NewSequentialRunIDs("").Generate())
}
