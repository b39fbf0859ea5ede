package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a primitive verb in the command log.
// The set is closed: the replay engine handles exactly these kinds.
type Kind string

const (
	KindMove      Kind = "FD" // move along heading, stroking when the pen is down
	KindJump      Kind = "JF" // move along heading without stroking
	KindTurn      Kind = "RT" // turn clockwise by degrees (negative = left)
	KindPenUp     Kind = "PU"
	KindPenDown   Kind = "PD"
	KindPenWidth  Kind = "PW"
	KindPenColour Kind = "PC"
	KindHide      Kind = "HT"
	KindShow      Kind = "ST"
	KindPrint     Kind = "DP" // draw text at the current pose
	KindFont      Kind = "DF" // set font: family, size, style

	// KindHighlight carries only a node id. It is emitted by explicit
	// timeout checkpoints so the editor can show which loop is spinning.
	KindHighlight Kind = "HL"
)

// kindArity is the number of args each kind carries.
var kindArity = map[Kind]int{
	KindMove:      1,
	KindJump:      1,
	KindTurn:      1,
	KindPenUp:     0,
	KindPenDown:   0,
	KindPenWidth:  1,
	KindPenColour: 1,
	KindHide:      0,
	KindShow:      0,
	KindPrint:     1,
	KindFont:      3,
	KindHighlight: 0,
}

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	_, ok := kindArity[k]
	return ok
}

// Arity returns the number of args k expects, or -1 for unknown kinds.
func (k Kind) Arity() int {
	n, ok := kindArity[k]
	if !ok {
		return -1
	}
	return n
}

// Value is a sealed interface for action arguments.
// Only Number and Text implement it.
type Value interface {
	value()
	String() string
}

// Number is a numeric action argument (distance, angle, width, size).
type Number float64

func (Number) value() {}

// String formats the number without trailing zeros.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Text is a string action argument (colour, printed text, font family).
type Text string

func (Text) value() {}

func (t Text) String() string { return string(t) }

// Action is one primitive effect emitted during interpretation.
//
// Actions are immutable: NewAction copies args, and accessors return values.
type Action struct {
	Kind   Kind
	args   []Value
	NodeID string // originating program node, "" when unknown
}

// NewAction constructs an action. The args slice is copied.
func NewAction(kind Kind, nodeID string, args ...Value) Action {
	cp := make([]Value, len(args))
	copy(cp, args)
	return Action{Kind: kind, args: cp, NodeID: nodeID}
}

// Args returns a copy of the action's arguments.
func (a Action) Args() []Value {
	cp := make([]Value, len(a.args))
	copy(cp, a.args)
	return cp
}

// NumArgs returns the number of arguments.
func (a Action) NumArgs() int { return len(a.args) }

// Number returns argument i as a float, or false if it is absent or not numeric.
func (a Action) Number(i int) (float64, bool) {
	if i < 0 || i >= len(a.args) {
		return 0, false
	}
	n, ok := a.args[i].(Number)
	return float64(n), ok
}

// Text returns argument i as a string. Numbers are formatted.
func (a Action) Text(i int) (string, bool) {
	if i < 0 || i >= len(a.args) {
		return "", false
	}
	return a.args[i].String(), true
}

// Validate checks the kind and arity. Actions emitted by the engine API
// are valid by construction; this guards hand-built logs.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if want := a.Kind.Arity(); len(a.args) != want {
		return fmt.Errorf("action %s: expected %d args, got %d", a.Kind, want, len(a.args))
	}
	return nil
}

// String renders the action in transcript form, e.g. "FD 100 @block_id_3".
func (a Action) String() string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	for _, v := range a.args {
		b.WriteByte(' ')
		if t, ok := v.(Text); ok {
			b.WriteString(strconv.Quote(string(t)))
			continue
		}
		b.WriteString(v.String())
	}
	if a.NodeID != "" {
		b.WriteString(" @")
		b.WriteString(a.NodeID)
	}
	return b.String()
}
