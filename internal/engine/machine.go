package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/turtle/internal/compiler"
)

// control is the non-local exit signalled by a statement.
type control int

const (
	ctlNone control = iota
	ctlBreak
	ctlContinue
	ctlReturn
)

func (c control) String() string {
	switch c {
	case ctlBreak:
		return "break"
	case ctlContinue:
		return "continue"
	case ctlReturn:
		return "return"
	}
	return "none"
}

// programFault is a runtime fault in learner code.
type programFault struct {
	pos compiler.Pos
	msg string
}

func (f *programFault) Error() string {
	return fmt.Sprintf("line %d: %s", f.pos.Line, f.msg)
}

// machine is the per-run evaluation state.
//
// Values are float64, string, bool, or nil (undefined). Variables follow
// function scoping: a var inside a function is local to the call, and
// everything else lives in globals.
type machine struct {
	ctx      context.Context
	api      *API
	budget   *TickBudget
	funcs    map[string]*compiler.FuncDecl
	globals  map[string]any
	locals   map[string]any // nil outside function calls
	depth    int
	maxDepth int
	lastNode string // node id of the most recent verb or checkpoint
}

func newMachine(ctx context.Context, api *API, budget *TickBudget, maxDepth int) *machine {
	return &machine{
		ctx:      ctx,
		api:      api,
		budget:   budget,
		funcs:    make(map[string]*compiler.FuncDecl),
		globals:  make(map[string]any),
		maxDepth: maxDepth,
	}
}

func (m *machine) faultf(pos compiler.Pos, format string, args ...any) error {
	return &programFault{pos: pos, msg: fmt.Sprintf(format, args...)}
}

// classify converts internal faults to user program errors. Budget and
// context errors pass through unchanged.
func (m *machine) classify(err error) error {
	var pf *programFault
	if errors.As(err, &pf) {
		return NewUserProgramError(m.lastNode, err)
	}
	return err
}

// tick consumes one tick. The context is polled every 1024 ticks.
func (m *machine) tick(nodeID string) error {
	if err := m.budget.Check(nodeID); err != nil {
		return err
	}
	if m.budget.Used()&1023 == 0 {
		if err := m.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Variables.

func (m *machine) lookup(pos compiler.Pos, name string) (any, error) {
	if m.locals != nil {
		if v, ok := m.locals[name]; ok {
			return v, nil
		}
	}
	if v, ok := m.globals[name]; ok {
		return v, nil
	}
	if v, ok := constants[name]; ok {
		return v, nil
	}
	return nil, m.faultf(pos, "%s is not defined", name)
}

func (m *machine) declare(name string, v any, hasInit bool) {
	scope := m.globals
	if m.locals != nil {
		scope = m.locals
	}
	if _, exists := scope[name]; exists && !hasInit {
		return
	}
	scope[name] = v
}

func (m *machine) assign(name string, v any) {
	if m.locals != nil {
		if _, ok := m.locals[name]; ok {
			m.locals[name] = v
			return
		}
	}
	m.globals[name] = v
}

// Statements.

func (m *machine) exec(st compiler.Stmt) (control, any, error) {
	switch s := st.(type) {
	case *compiler.Block:
		return m.execBlock(s)

	case *compiler.VarDecl:
		var v any
		if s.Init != nil {
			var err error
			if v, err = m.eval(s.Init); err != nil {
				return ctlNone, nil, err
			}
		}
		m.declare(s.Name, v, s.Init != nil)
		return ctlNone, nil, nil

	case *compiler.Assign:
		v, err := m.eval(s.Value)
		if err != nil {
			return ctlNone, nil, err
		}
		if s.Op != "=" {
			cur, err := m.lookup(s.Pos, s.Name)
			if err != nil {
				return ctlNone, nil, err
			}
			if v, err = m.binary(s.Pos, strings.TrimSuffix(s.Op, "="), cur, v); err != nil {
				return ctlNone, nil, err
			}
		}
		m.assign(s.Name, v)
		return ctlNone, nil, nil

	case *compiler.IncDec:
		cur, err := m.lookup(s.Pos, s.Name)
		if err != nil {
			return ctlNone, nil, err
		}
		n := toNumber(cur)
		if s.Op == "++" {
			n++
		} else {
			n--
		}
		m.assign(s.Name, n)
		return ctlNone, nil, nil

	case *compiler.ExprStmt:
		_, err := m.eval(s.X)
		return ctlNone, nil, err

	case *compiler.If:
		cond, err := m.eval(s.Cond)
		if err != nil {
			return ctlNone, nil, err
		}
		if truthy(cond) {
			return m.execBlock(s.Then)
		}
		if s.Else != nil {
			return m.exec(s.Else)
		}
		return ctlNone, nil, nil

	case *compiler.While:
		for {
			cond, err := m.eval(s.Cond)
			if err != nil {
				return ctlNone, nil, err
			}
			if !truthy(cond) {
				return ctlNone, nil, nil
			}
			if err := m.tick(""); err != nil {
				return ctlNone, nil, err
			}
			ctl, ret, err := m.execBlock(s.Body)
			if err != nil || ctl == ctlReturn {
				return ctl, ret, err
			}
			if ctl == ctlBreak {
				return ctlNone, nil, nil
			}
		}

	case *compiler.For:
		if s.Init != nil {
			if _, _, err := m.exec(s.Init); err != nil {
				return ctlNone, nil, err
			}
		}
		for {
			if s.Cond != nil {
				cond, err := m.eval(s.Cond)
				if err != nil {
					return ctlNone, nil, err
				}
				if !truthy(cond) {
					return ctlNone, nil, nil
				}
			}
			if err := m.tick(""); err != nil {
				return ctlNone, nil, err
			}
			ctl, ret, err := m.execBlock(s.Body)
			if err != nil || ctl == ctlReturn {
				return ctl, ret, err
			}
			if ctl == ctlBreak {
				return ctlNone, nil, nil
			}
			if s.Post != nil {
				if _, _, err := m.exec(s.Post); err != nil {
					return ctlNone, nil, err
				}
			}
		}

	case *compiler.Return:
		var v any
		if s.Value != nil {
			var err error
			if v, err = m.eval(s.Value); err != nil {
				return ctlNone, nil, err
			}
		}
		return ctlReturn, v, nil

	case *compiler.Break:
		return ctlBreak, nil, nil

	case *compiler.Continue:
		return ctlContinue, nil, nil
	}
	return ctlNone, nil, m.faultf(st.Position(), "unsupported statement %T", st)
}

func (m *machine) execBlock(b *compiler.Block) (control, any, error) {
	for _, st := range b.Stmts {
		ctl, ret, err := m.exec(st)
		if err != nil || ctl != ctlNone {
			return ctl, ret, err
		}
	}
	return ctlNone, nil, nil
}

// Expressions.

func (m *machine) eval(e compiler.Expr) (any, error) {
	switch x := e.(type) {
	case *compiler.NumberLit:
		return x.Value, nil
	case *compiler.StringLit:
		return x.Value, nil
	case *compiler.BoolLit:
		return x.Value, nil
	case *compiler.NullLit:
		return nil, nil
	case *compiler.Ident:
		return m.lookup(x.Pos, x.Name)

	case *compiler.Unary:
		v, err := m.eval(x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case "-":
			return -toNumber(v), nil
		case "+":
			return toNumber(v), nil
		case "!":
			return !truthy(v), nil
		}
		return nil, m.faultf(x.Pos, "unknown operator %s", x.Op)

	case *compiler.Binary:
		left, err := m.eval(x.Left)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case "&&":
			if !truthy(left) {
				return left, nil
			}
			return m.eval(x.Right)
		case "||":
			if truthy(left) {
				return left, nil
			}
			return m.eval(x.Right)
		}
		right, err := m.eval(x.Right)
		if err != nil {
			return nil, err
		}
		return m.binary(x.Pos, x.Op, left, right)

	case *compiler.Call:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			v, err := m.eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return m.call(x, args)
	}
	return nil, m.faultf(e.Position(), "unsupported expression %T", e)
}

func (m *machine) binary(pos compiler.Pos, op string, l, r any) (any, error) {
	switch op {
	case "+":
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return toString(l) + toString(r), nil
		}
		return toNumber(l) + toNumber(r), nil
	case "-":
		return toNumber(l) - toNumber(r), nil
	case "*":
		return toNumber(l) * toNumber(r), nil
	case "/":
		return toNumber(l) / toNumber(r), nil
	case "%":
		return math.Mod(toNumber(l), toNumber(r)), nil
	case "<", "<=", ">", ">=":
		return compare(op, l, r), nil
	case "==":
		return looseEqual(l, r), nil
	case "!=":
		return !looseEqual(l, r), nil
	case "===":
		return strictEqual(l, r), nil
	case "!==":
		return !strictEqual(l, r), nil
	}
	return nil, m.faultf(pos, "unknown operator %s", op)
}

// Calls.

func (m *machine) call(c *compiler.Call, args []any) (any, error) {
	name := c.Callee
	switch {
	case strings.HasPrefix(name, "Turtle."):
		return nil, m.verb(c.Pos, strings.TrimPrefix(name, "Turtle."), args)

	case name == "checkTimeout" || name == "BlocklyApps.checkTimeout":
		id := stringArg(args, 0)
		if id != "" {
			m.lastNode = id
		}
		if err := m.api.CheckTimeout(id); err != nil {
			return nil, err
		}
		if m.budget.Used()&1023 == 0 {
			if err := m.ctx.Err(); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case strings.HasPrefix(name, "Math."):
		return m.math(c.Pos, strings.TrimPrefix(name, "Math."), args)

	case name == "alert" || name == "window.alert":
		return nil, m.faultf(c.Pos, "%s is not available", name)
	}

	fn, ok := m.funcs[name]
	if !ok {
		return nil, m.faultf(c.Pos, "%s is not a function", name)
	}
	return m.callUser(c.Pos, fn, args)
}

func (m *machine) callUser(pos compiler.Pos, fn *compiler.FuncDecl, args []any) (any, error) {
	if m.depth >= m.maxDepth {
		return nil, m.faultf(pos, "maximum call depth %d exceeded in %s", m.maxDepth, fn.Name)
	}
	if err := m.tick(""); err != nil {
		return nil, err
	}

	locals := make(map[string]any, len(fn.Params))
	for i, p := range fn.Params {
		if i < len(args) {
			locals[p] = args[i]
		} else {
			locals[p] = nil
		}
	}

	saved := m.locals
	m.locals = locals
	m.depth++
	defer func() {
		m.locals = saved
		m.depth--
	}()

	ctl, ret, err := m.execBlock(fn.Body)
	if err != nil {
		return nil, err
	}
	switch ctl {
	case ctlBreak, ctlContinue:
		return nil, m.faultf(pos, "illegal %s statement outside a loop in %s", ctl, fn.Name)
	case ctlReturn:
		return ret, nil
	}
	return nil, nil
}

// verb dispatches a Turtle.* call to the action API. The trailing string
// argument, when present, is the originating node id.
func (m *machine) verb(pos compiler.Pos, name string, args []any) error {
	var (
		err    error
		nodeID string
	)
	switch name {
	case "moveForward":
		nodeID = stringArg(args, 1)
		err = m.api.MoveForward(numberArg(args, 0), nodeID)
	case "moveBackward":
		nodeID = stringArg(args, 1)
		err = m.api.MoveBackward(numberArg(args, 0), nodeID)
	case "jumpForward":
		nodeID = stringArg(args, 1)
		err = m.api.JumpForward(numberArg(args, 0), nodeID)
	case "jumpBackward":
		nodeID = stringArg(args, 1)
		err = m.api.JumpBackward(numberArg(args, 0), nodeID)
	case "turnRight":
		nodeID = stringArg(args, 1)
		err = m.api.TurnRight(numberArg(args, 0), nodeID)
	case "turnLeft":
		nodeID = stringArg(args, 1)
		err = m.api.TurnLeft(numberArg(args, 0), nodeID)
	case "penUp":
		nodeID = stringArg(args, 0)
		err = m.api.PenUp(nodeID)
	case "penDown":
		nodeID = stringArg(args, 0)
		err = m.api.PenDown(nodeID)
	case "penWidth":
		nodeID = stringArg(args, 1)
		err = m.api.PenWidth(numberArg(args, 0), nodeID)
	case "penColour":
		nodeID = stringArg(args, 1)
		err = m.api.PenColour(stringArg(args, 0), nodeID)
	case "hideTurtle":
		nodeID = stringArg(args, 0)
		err = m.api.HideTurtle(nodeID)
	case "showTurtle":
		nodeID = stringArg(args, 0)
		err = m.api.ShowTurtle(nodeID)
	case "drawPrint":
		nodeID = stringArg(args, 1)
		text := ""
		if len(args) > 0 {
			text = toString(args[0])
		}
		err = m.api.DrawPrint(text, nodeID)
	case "drawFont":
		nodeID = stringArg(args, 3)
		err = m.api.DrawFont(stringArg(args, 0), numberArg(args, 1), stringArg(args, 2), nodeID)
	default:
		return m.faultf(pos, "Turtle.%s is not a function", name)
	}
	if nodeID != "" {
		m.lastNode = nodeID
	}
	if err != nil && !IsBudgetExceededError(err) {
		return m.faultf(pos, "%v", err)
	}
	return err
}

var constants = map[string]any{
	"Math.PI":    math.Pi,
	"Math.E":     math.E,
	"Math.SQRT2": math.Sqrt2,
	"Infinity":   math.Inf(1),
	"NaN":        math.NaN(),
}

var unaryMath = map[string]func(float64) float64{
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": func(x float64) float64 { return math.Floor(x + 0.5) },
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"log":   math.Log,
}

func (m *machine) math(pos compiler.Pos, name string, args []any) (any, error) {
	if fn, ok := unaryMath[name]; ok {
		return fn(numberArg(args, 0)), nil
	}
	switch name {
	case "pow":
		return math.Pow(numberArg(args, 0), numberArg(args, 1)), nil
	case "min", "max":
		acc := math.Inf(1)
		pick := math.Min
		if name == "max" {
			acc = math.Inf(-1)
			pick = math.Max
		}
		for _, a := range args {
			acc = pick(acc, toNumber(a))
		}
		return acc, nil
	case "random":
		return nil, m.faultf(pos, "Math.random is not available: programs must be deterministic")
	}
	return nil, m.faultf(pos, "Math.%s is not a function", name)
}

// Value conversions follow the loose rules of the editor's source language.

func numberArg(args []any, i int) float64 {
	if i >= len(args) {
		return math.NaN()
	}
	return toNumber(args[i])
}

func stringArg(args []any, i int) string {
	if i >= len(args) || args[i] == nil {
		return ""
	}
	return toString(args[i])
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	return math.NaN()
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN"
		case math.IsInf(x, 1):
			return "Infinity"
		case math.IsInf(x, -1):
			return "-Infinity"
		case math.Abs(x) >= 1e21:
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return "undefined"
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	}
	return false
}

func compare(op string, l, r any) bool {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		case ">":
			return ls > rs
		}
		return ls >= rs
	}
	a, b := toNumber(l), toNumber(r)
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	}
	return a >= b
}

func strictEqual(l, r any) bool {
	switch a := l.(type) {
	case float64:
		b, ok := r.(float64)
		return ok && a == b
	case string:
		b, ok := r.(string)
		return ok && a == b
	case bool:
		b, ok := r.(bool)
		return ok && a == b
	case nil:
		return r == nil
	}
	return false
}

func looseEqual(l, r any) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	if strictEqual(l, r) {
		return true
	}
	return toNumber(l) == toNumber(r)
}
