package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAction_CopiesArgs(t *testing.T) {
	args := []Value{Number(100)}
	a := NewAction(KindMove, "block_id_3", args...)

	args[0] = Number(5)

	n, ok := a.Number(0)
	require.True(t, ok)
	assert.Equal(t, 100.0, n)

	// Mutating the returned slice must not leak into the action
	got := a.Args()
	got[0] = Number(7)
	n, _ = a.Number(0)
	assert.Equal(t, 100.0, n)
}

func TestAction_Accessors(t *testing.T) {
	a := NewAction(KindFont, "", Text("Arial"), Number(18), Text("normal"))

	family, ok := a.Text(0)
	require.True(t, ok)
	assert.Equal(t, "Arial", family)

	size, ok := a.Number(1)
	require.True(t, ok)
	assert.Equal(t, 18.0, size)

	_, ok = a.Number(0)
	assert.False(t, ok, "text arg is not a number")

	_, ok = a.Number(5)
	assert.False(t, ok, "out of range")

	sizeText, ok := a.Text(1)
	require.True(t, ok)
	assert.Equal(t, "18", sizeText)
}

func TestAction_String(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"move with node", NewAction(KindMove, "block_id_3", Number(100)), "FD 100 @block_id_3"},
		{"negative turn", NewAction(KindTurn, "", Number(-30)), "RT -30"},
		{"fractional", NewAction(KindMove, "", Number(0.5)), "FD 0.5"},
		{"colour", NewAction(KindPenColour, "b1", Text("#ff0000")), `PC "#ff0000" @b1`},
		{"no args", NewAction(KindPenUp, ""), "PU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.String())
		})
	}
}

func TestAction_Validate(t *testing.T) {
	assert.NoError(t, NewAction(KindMove, "", Number(1)).Validate())
	assert.NoError(t, NewAction(KindHighlight, "b2").Validate())

	err := NewAction(KindMove, "").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 args")

	err = NewAction(Kind("ZZ"), "").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action kind")
}

func TestKind_Arity(t *testing.T) {
	assert.Equal(t, 3, KindFont.Arity())
	assert.Equal(t, 0, KindPenDown.Arity())
	assert.Equal(t, -1, Kind("??").Arity())
	assert.False(t, Kind("??").Valid())
}
