package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDIsStableAndOpaque(t *testing.T) {
	m := NewMemory()
	require.NotEmpty(t, m.ID())
	assert.Equal(t, m.ID(), m.ID())

	other := NewMemory()
	assert.NotEqual(t, m.ID(), other.ID())
}

func TestShownSet(t *testing.T) {
	m := NewMemory()
	assert.False(t, m.Shown("p1"))

	m.MarkShown("p1")
	assert.True(t, m.Shown("p1"))
	assert.False(t, m.Shown("p2"))
}
