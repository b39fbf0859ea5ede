package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turtle/internal/ir"
)

// TestCommandLog_FIFO tests that actions shift in append order.
func TestCommandLog_FIFO(t *testing.T) {
	l := NewCommandLog()
	l.Append(ir.NewAction(ir.KindMove, "b1", ir.Number(10)))
	l.Append(ir.NewAction(ir.KindTurn, "b2", ir.Number(90)))
	require.Equal(t, 2, l.Len())

	a, ok := l.Shift()
	require.True(t, ok)
	assert.Equal(t, ir.KindMove, a.Kind)

	a, ok = l.Shift()
	require.True(t, ok)
	assert.Equal(t, ir.KindTurn, a.Kind)

	_, ok = l.Shift()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

// TestCommandLog_SnapshotDoesNotConsume tests that snapshots are copies.
func TestCommandLog_SnapshotDoesNotConsume(t *testing.T) {
	l := NewCommandLogFrom([]ir.Action{
		ir.NewAction(ir.KindPenUp, ""),
		ir.NewAction(ir.KindPenDown, ""),
	})

	snap := l.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, 2, l.Len())

	clone := l.Clone()
	l.Shift()
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 2, clone.Len())
}

// TestCommandLog_ReuseAfterDrain tests appending after the log was emptied.
func TestCommandLog_ReuseAfterDrain(t *testing.T) {
	l := NewCommandLog()
	l.Append(ir.NewAction(ir.KindShow, ""))
	l.Shift()
	l.Append(ir.NewAction(ir.KindHide, ""))

	a, ok := l.Shift()
	require.True(t, ok)
	assert.Equal(t, ir.KindHide, a.Kind)
}
