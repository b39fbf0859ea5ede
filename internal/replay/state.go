package replay

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/turtle/internal/ir"
)

// Defaults applied by Reset.
const (
	DefaultPenWidth  = 5
	DefaultPenColour = "#000000"
)

// DefaultFont is the font in effect before any DF action.
var DefaultFont = Font{Family: "Arial", Size: 18, Style: "normal"}

// Point is a position on the surface, in pixels from the top-left corner.
type Point struct {
	X, Y float64
}

// Pen is the stroke style for one segment.
type Pen struct {
	Width  float64
	Colour string
}

// Font describes how DP text is drawn.
type Font struct {
	Family string
	Size   float64 // points
	Style  string
}

// String renders the font in CSS shorthand, e.g. "normal 18pt Arial".
func (f Font) String() string {
	return fmt.Sprintf("%s %spt %s", f.Style, strconv.FormatFloat(f.Size, 'f', -1, 64), f.Family)
}

// State is the execution state built up by replay.
type State struct {
	X       float64
	Y       float64
	Heading float64 // degrees clockwise from north, in [0,360)

	PenDown   bool
	PenWidth  float64
	PenColour string
	Font      Font
	Visible   bool

	// ColoursUsed lists distinct lower-case colours of non-zero strokes
	// drawn with the pen down, in first-use order.
	ColoursUsed []string
}

// NewState returns the state at the start of a replay.
func NewState(pose ir.Pose) State {
	return State{
		X:         pose.X,
		Y:         pose.Y,
		Heading:   normalizeHeading(pose.Heading),
		PenDown:   true,
		PenWidth:  DefaultPenWidth,
		PenColour: DefaultPenColour,
		Font:      DefaultFont,
		Visible:   true,
	}
}

// Pose returns the position and heading.
func (s State) Pose() ir.Pose {
	return ir.Pose{X: s.X, Y: s.Y, Heading: s.Heading}
}

// Pen returns the current stroke style.
func (s State) Pen() Pen {
	return Pen{Width: s.PenWidth, Colour: s.PenColour}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.ColoursUsed = slices.Clone(s.ColoursUsed)
	return s
}

func (s *State) recordColour(c string) {
	if !slices.Contains(s.ColoursUsed, c) {
		s.ColoursUsed = append(s.ColoursUsed, c)
	}
}
