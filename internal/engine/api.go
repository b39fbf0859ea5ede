package engine

import (
	"fmt"
	"math"

	"github.com/roach88/turtle/internal/ir"
)

// API is the deferred-effect capability handed to a running program.
//
// Every verb appends one Action to the command log instead of drawing.
// Each append consumes a tick first, so the log can never outgrow the
// budget. Backward and left verbs negate their argument; there are no
// separate kinds for them.
type API struct {
	log    *CommandLog
	budget *TickBudget
}

// NewAPI binds a capability to a log and a budget.
func NewAPI(log *CommandLog, budget *TickBudget) *API {
	return &API{log: log, budget: budget}
}

func (a *API) emit(kind ir.Kind, nodeID string, args ...ir.Value) error {
	if err := a.budget.Check(nodeID); err != nil {
		return err
	}
	a.log.Append(ir.NewAction(kind, nodeID, args...))
	return nil
}

func finite(verb string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: argument must be a finite number, got %v", verb, v)
	}
	return nil
}

func (a *API) MoveForward(distance float64, nodeID string) error {
	if err := finite("moveForward", distance); err != nil {
		return err
	}
	return a.emit(ir.KindMove, nodeID, ir.Number(distance))
}

func (a *API) MoveBackward(distance float64, nodeID string) error {
	if err := finite("moveBackward", distance); err != nil {
		return err
	}
	return a.emit(ir.KindMove, nodeID, ir.Number(-distance))
}

func (a *API) JumpForward(distance float64, nodeID string) error {
	if err := finite("jumpForward", distance); err != nil {
		return err
	}
	return a.emit(ir.KindJump, nodeID, ir.Number(distance))
}

func (a *API) JumpBackward(distance float64, nodeID string) error {
	if err := finite("jumpBackward", distance); err != nil {
		return err
	}
	return a.emit(ir.KindJump, nodeID, ir.Number(-distance))
}

func (a *API) TurnRight(angle float64, nodeID string) error {
	if err := finite("turnRight", angle); err != nil {
		return err
	}
	return a.emit(ir.KindTurn, nodeID, ir.Number(angle))
}

func (a *API) TurnLeft(angle float64, nodeID string) error {
	if err := finite("turnLeft", angle); err != nil {
		return err
	}
	return a.emit(ir.KindTurn, nodeID, ir.Number(-angle))
}

func (a *API) PenUp(nodeID string) error {
	return a.emit(ir.KindPenUp, nodeID)
}

func (a *API) PenDown(nodeID string) error {
	return a.emit(ir.KindPenDown, nodeID)
}

// PenWidth sets the stroke width. Negative widths are clamped to 0.
func (a *API) PenWidth(width float64, nodeID string) error {
	if err := finite("penWidth", width); err != nil {
		return err
	}
	return a.emit(ir.KindPenWidth, nodeID, ir.Number(math.Max(width, 0)))
}

func (a *API) PenColour(colour string, nodeID string) error {
	return a.emit(ir.KindPenColour, nodeID, ir.Text(colour))
}

func (a *API) HideTurtle(nodeID string) error {
	return a.emit(ir.KindHide, nodeID)
}

func (a *API) ShowTurtle(nodeID string) error {
	return a.emit(ir.KindShow, nodeID)
}

// DrawPrint draws text at the current pose.
func (a *API) DrawPrint(text string, nodeID string) error {
	return a.emit(ir.KindPrint, nodeID, ir.Text(text))
}

// DrawFont sets the font used by later DrawPrint calls.
func (a *API) DrawFont(family string, size float64, style string, nodeID string) error {
	if err := finite("drawFont", size); err != nil {
		return err
	}
	return a.emit(ir.KindFont, nodeID, ir.Text(family), ir.Number(size), ir.Text(style))
}

// CheckTimeout is the explicit long-running checkpoint the editor inserts
// at the top of every loop body. It consumes one tick; when nodeID is set
// the same tick also records a highlight-only action for that node.
func (a *API) CheckTimeout(nodeID string) error {
	if err := a.budget.Check(nodeID); err != nil {
		return err
	}
	if nodeID != "" {
		a.log.Append(ir.NewAction(ir.KindHighlight, nodeID))
	}
	return nil
}
