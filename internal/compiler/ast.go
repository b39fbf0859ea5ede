package compiler

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
	Position() Pos
}

// Expr is an expression node.
type Expr interface {
	exprNode()
	Position() Pos
}

// Program is a parsed compilation unit.
// Funcs holds hoisted function declarations in source order.
type Program struct {
	Body  []Stmt
	Funcs []*FuncDecl
}

// Block is a braced statement list.
type Block struct {
	Pos   Pos
	Stmts []Stmt
}

type (
	// VarDecl declares a variable: var name = init;
	VarDecl struct {
		Pos  Pos
		Name string
		Init Expr // nil for a bare declaration
	}

	// Assign updates a variable: name op value; op is one of = += -= *= /=
	Assign struct {
		Pos   Pos
		Name  string
		Op    string
		Value Expr
	}

	// IncDec is name++ or name--.
	IncDec struct {
		Pos  Pos
		Name string
		Op   string
	}

	// ExprStmt evaluates an expression for its effects.
	ExprStmt struct {
		Pos Pos
		X   Expr
	}

	// If is a conditional; Else is nil, a *Block, or an *If.
	If struct {
		Pos  Pos
		Cond Expr
		Then *Block
		Else Stmt
	}

	// While loops while Cond is truthy.
	While struct {
		Pos  Pos
		Cond Expr
		Body *Block
	}

	// For is a C-style loop. Init, Cond and Post may be nil.
	For struct {
		Pos  Pos
		Init Stmt
		Cond Expr
		Post Stmt
		Body *Block
	}

	// FuncDecl declares a procedure.
	FuncDecl struct {
		Pos    Pos
		Name   string
		Params []string
		Body   *Block
	}

	// Return exits the enclosing function; Value may be nil.
	Return struct {
		Pos   Pos
		Value Expr
	}

	Break    struct{ Pos Pos }
	Continue struct{ Pos Pos }
)

type (
	NumberLit struct {
		Pos   Pos
		Value float64
	}

	StringLit struct {
		Pos   Pos
		Value string
	}

	BoolLit struct {
		Pos   Pos
		Value bool
	}

	// NullLit covers both null and undefined.
	NullLit struct{ Pos Pos }

	// Ident is a possibly dotted name such as count or Math.PI.
	Ident struct {
		Pos  Pos
		Name string
	}

	// Call invokes a possibly dotted callee such as Turtle.moveForward.
	Call struct {
		Pos    Pos
		Callee string
		Args   []Expr
	}

	Binary struct {
		Pos   Pos
		Op    string
		Left  Expr
		Right Expr
	}

	Unary struct {
		Pos Pos
		Op  string
		X   Expr
	}
)

func (*Block) stmtNode()    {}
func (*VarDecl) stmtNode()  {}
func (*Assign) stmtNode()   {}
func (*IncDec) stmtNode()   {}
func (*ExprStmt) stmtNode() {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*For) stmtNode()      {}
func (*FuncDecl) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}

func (s *Block) Position() Pos    { return s.Pos }
func (s *VarDecl) Position() Pos  { return s.Pos }
func (s *Assign) Position() Pos   { return s.Pos }
func (s *IncDec) Position() Pos   { return s.Pos }
func (s *ExprStmt) Position() Pos { return s.Pos }
func (s *If) Position() Pos       { return s.Pos }
func (s *While) Position() Pos    { return s.Pos }
func (s *For) Position() Pos      { return s.Pos }
func (s *FuncDecl) Position() Pos { return s.Pos }
func (s *Return) Position() Pos   { return s.Pos }
func (s *Break) Position() Pos    { return s.Pos }
func (s *Continue) Position() Pos { return s.Pos }

func (*NumberLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*NullLit) exprNode()   {}
func (*Ident) exprNode()     {}
func (*Call) exprNode()      {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}

func (e *NumberLit) Position() Pos { return e.Pos }
func (e *StringLit) Position() Pos { return e.Pos }
func (e *BoolLit) Position() Pos   { return e.Pos }
func (e *NullLit) Position() Pos   { return e.Pos }
func (e *Ident) Position() Pos     { return e.Pos }
func (e *Call) Position() Pos      { return e.Pos }
func (e *Binary) Position() Pos    { return e.Pos }
func (e *Unary) Position() Pos     { return e.Pos }
