package compiler

import (
	"fmt"
)

// binaryPrec maps binary operators to precedence; higher binds tighter.
var binaryPrec = map[string]int{
	"||":  1,
	"&&":  2,
	"==":  3,
	"!=":  3,
	"===": 3,
	"!==": 3,
	"<":   4,
	"<=":  4,
	">":   4,
	">=":  4,
	"+":   5,
	"-":   5,
	"*":   6,
	"/":   6,
	"%":   6,
}

// MaxNesting bounds how deeply statements and expressions may nest.
// Running a program recurses as deep as it is nested.
const MaxNesting = 200

type parser struct {
	toks []Token
	pos  int
	// function declarations are only legal at the top level
	depth int
	nest  int
	funcs []*FuncDecl
}

// Parse parses program source into a Program.
func Parse(src string) (*Program, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	prog := &Program{}
	for !p.at(TokEOF, "") {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		if st != nil {
			prog.Body = append(prog.Body, st)
		}
	}
	prog.Funcs = p.funcs
	return prog, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

// at reports whether the current token has the given kind and, when text
// is non-empty, the given text.
func (p *parser) at(kind TokenKind, text string) bool {
	t := p.peek()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *parser) accept(kind TokenKind, text string) bool {
	if p.at(kind, text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(kind TokenKind, text string) (Token, error) {
	if p.at(kind, text) {
		return p.advance(), nil
	}
	want := text
	if want == "" {
		want = kind.String()
	}
	return Token{}, p.errorf("expected %s, found %s", want, describe(p.peek()))
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.peek().Pos, Message: fmt.Sprintf(format, args...)}
}

func describe(t Token) string {
	switch t.Kind {
	case TokEOF:
		return "end of input"
	case TokString:
		return fmt.Sprintf("string %q", t.Text)
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}

func (p *parser) enter() error {
	p.nest++
	if p.nest > MaxNesting {
		return p.errorf("program nested deeper than %d levels", MaxNesting)
	}
	return nil
}

func (p *parser) leave() { p.nest-- }

// statement parses one statement. A lone ";" yields (nil, nil).
func (p *parser) statement() (Stmt, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	t := p.peek()
	switch {
	case t.Kind == TokPunct && t.Text == ";":
		p.advance()
		return nil, nil
	case t.Kind == TokPunct && t.Text == "{":
		return p.block()
	case t.Kind == TokKeyword:
		switch t.Text {
		case "var", "let":
			st, err := p.varDecl()
			if err != nil {
				return nil, err
			}
			return st, p.endStatement()
		case "if":
			return p.ifStmt()
		case "while":
			return p.whileStmt()
		case "for":
			return p.forStmt()
		case "function":
			return p.funcDecl()
		case "return":
			p.advance()
			ret := &Return{Pos: t.Pos}
			if !p.at(TokPunct, ";") && !p.at(TokPunct, "}") && !p.at(TokEOF, "") {
				v, err := p.expr(0)
				if err != nil {
					return nil, err
				}
				ret.Value = v
			}
			return ret, p.endStatement()
		case "break":
			p.advance()
			return &Break{Pos: t.Pos}, p.endStatement()
		case "continue":
			p.advance()
			return &Continue{Pos: t.Pos}, p.endStatement()
		}
	}
	st, err := p.simple()
	if err != nil {
		return nil, err
	}
	return st, p.endStatement()
}

// endStatement consumes an optional ";". Like the editor's output, statements
// may omit it before "}" or at end of input.
func (p *parser) endStatement() error {
	if p.accept(TokPunct, ";") || p.at(TokPunct, "}") || p.at(TokEOF, "") {
		return nil
	}
	return p.errorf("expected ';', found %s", describe(p.peek()))
}

func (p *parser) block() (*Block, error) {
	open, err := p.expect(TokPunct, "{")
	if err != nil {
		return nil, err
	}
	b := &Block{Pos: open.Pos}
	p.depth++
	defer func() { p.depth-- }()
	for !p.at(TokPunct, "}") {
		if p.at(TokEOF, "") {
			return nil, p.errorf("unterminated block starting at %s", open.Pos)
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		if st != nil {
			b.Stmts = append(b.Stmts, st)
		}
	}
	p.advance()
	return b, nil
}

func (p *parser) varDecl() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(TokIdent, "")
	if err != nil {
		return nil, err
	}
	decl := &VarDecl{Pos: kw.Pos, Name: name.Text}
	if p.accept(TokPunct, "=") {
		init, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	return decl, nil
}

// simple parses an assignment, increment/decrement, or expression statement.
func (p *parser) simple() (Stmt, error) {
	t := p.peek()
	if t.Kind == TokIdent {
		next := p.toks[p.pos+1]
		if next.Kind == TokPunct {
			switch next.Text {
			case "=", "+=", "-=", "*=", "/=":
				p.advance()
				p.advance()
				v, err := p.expr(0)
				if err != nil {
					return nil, err
				}
				return &Assign{Pos: t.Pos, Name: t.Text, Op: next.Text, Value: v}, nil
			case "++", "--":
				p.advance()
				p.advance()
				return &IncDec{Pos: t.Pos, Name: t.Text, Op: next.Text}, nil
			}
		}
	}
	x, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Pos: t.Pos, X: x}, nil
}

func (p *parser) ifStmt() (Stmt, error) {
	kw := p.advance()
	cond, err := p.parenExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	st := &If{Pos: kw.Pos, Cond: cond, Then: then}
	if p.accept(TokKeyword, "else") {
		if p.at(TokKeyword, "if") {
			if err := p.enter(); err != nil {
				return nil, err
			}
			defer p.leave()
			elif, err := p.ifStmt()
			if err != nil {
				return nil, err
			}
			st.Else = elif
		} else {
			blk, err := p.block()
			if err != nil {
				return nil, err
			}
			st.Else = blk
		}
	}
	return st, nil
}

func (p *parser) whileStmt() (Stmt, error) {
	kw := p.advance()
	cond, err := p.parenExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &While{Pos: kw.Pos, Cond: cond, Body: body}, nil
}

func (p *parser) forStmt() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(TokPunct, "("); err != nil {
		return nil, err
	}
	st := &For{Pos: kw.Pos}

	if !p.at(TokPunct, ";") {
		var init Stmt
		var err error
		if p.at(TokKeyword, "var") || p.at(TokKeyword, "let") {
			init, err = p.varDecl()
		} else {
			init, err = p.simple()
		}
		if err != nil {
			return nil, err
		}
		st.Init = init
	}
	if _, err := p.expect(TokPunct, ";"); err != nil {
		return nil, err
	}

	if !p.at(TokPunct, ";") {
		cond, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		st.Cond = cond
	}
	if _, err := p.expect(TokPunct, ";"); err != nil {
		return nil, err
	}

	if !p.at(TokPunct, ")") {
		post, err := p.simple()
		if err != nil {
			return nil, err
		}
		st.Post = post
	}
	if _, err := p.expect(TokPunct, ")"); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	st.Body = body
	return st, nil
}

func (p *parser) funcDecl() (Stmt, error) {
	kw := p.advance()
	if p.depth > 0 {
		return nil, &SyntaxError{Pos: kw.Pos, Message: "function declarations are only allowed at top level"}
	}
	name, err := p.expect(TokIdent, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokPunct, "("); err != nil {
		return nil, err
	}
	fn := &FuncDecl{Pos: kw.Pos, Name: name.Text}
	for !p.at(TokPunct, ")") {
		param, err := p.expect(TokIdent, "")
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param.Text)
		if !p.accept(TokPunct, ",") {
			break
		}
	}
	if _, err := p.expect(TokPunct, ")"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	for _, prev := range p.funcs {
		if prev.Name == fn.Name {
			return nil, &SyntaxError{Pos: kw.Pos, Message: fmt.Sprintf("function %q already declared at %s", fn.Name, prev.Pos)}
		}
	}
	p.funcs = append(p.funcs, fn)
	// Declarations are hoisted; they do not execute in statement order.
	return nil, nil
}

func (p *parser) parenExpr() (Expr, error) {
	if _, err := p.expect(TokPunct, "("); err != nil {
		return nil, err
	}
	x, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokPunct, ")"); err != nil {
		return nil, err
	}
	return x, nil
}

// expr parses a binary expression by precedence climbing.
func (p *parser) expr(minPrec int) (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != TokPunct {
			return left, nil
		}
		prec, ok := binaryPrec[t.Text]
		if !ok || prec <= minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.expr(prec)
		if err != nil {
			return nil, err
		}
		left = &Binary{Pos: t.Pos, Op: t.Text, Left: left, Right: right}
	}
}

func (p *parser) unary() (Expr, error) {
	t := p.peek()
	if t.Kind == TokPunct && (t.Text == "-" || t.Text == "!" || t.Text == "+") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Pos: t.Pos, Op: t.Text, X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.advance()
	switch t.Kind {
	case TokNumber:
		return &NumberLit{Pos: t.Pos, Value: t.Num}, nil
	case TokString:
		return &StringLit{Pos: t.Pos, Value: t.Text}, nil
	case TokKeyword:
		switch t.Text {
		case "true":
			return &BoolLit{Pos: t.Pos, Value: true}, nil
		case "false":
			return &BoolLit{Pos: t.Pos, Value: false}, nil
		case "null", "undefined":
			return &NullLit{Pos: t.Pos}, nil
		}
	case TokPunct:
		if t.Text == "(" {
			x, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokPunct, ")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	case TokIdent:
		name := t.Text
		for p.accept(TokPunct, ".") {
			part, err := p.expect(TokIdent, "")
			if err != nil {
				return nil, err
			}
			name += "." + part.Text
		}
		if !p.accept(TokPunct, "(") {
			return &Ident{Pos: t.Pos, Name: name}, nil
		}
		call := &Call{Pos: t.Pos, Callee: name}
		for !p.at(TokPunct, ")") {
			arg, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.accept(TokPunct, ",") {
				break
			}
		}
		if _, err := p.expect(TokPunct, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}
	return nil, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("unexpected %s", describe(t))}
}
