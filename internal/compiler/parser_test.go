package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasic(t *testing.T) {
	toks, err := Tokenize(`Turtle.moveForward(100, 'block_id_3'); // go`)
	require.NoError(t, err)

	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TokIdent, TokPunct, TokIdent, TokPunct, TokNumber, TokPunct, TokString, TokPunct, TokPunct, TokEOF,
	}, kinds)
	assert.Equal(t, 100.0, toks[4].Num)
	assert.Equal(t, "block_id_3", toks[6].Text)
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := Tokenize(`1.5 .25 3e2 7`)
	require.NoError(t, err)
	require.Len(t, toks, 5)
	assert.Equal(t, 1.5, toks[0].Num)
	assert.Equal(t, 0.25, toks[1].Num)
	assert.Equal(t, 300.0, toks[2].Num)
	assert.Equal(t, 7.0, toks[3].Num)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\"b" 'it\'s' "tab\there"`)
	require.NoError(t, err)
	assert.Equal(t, `a"b`, toks[0].Text)
	assert.Equal(t, "it's", toks[1].Text)
	assert.Equal(t, "tab\there", toks[2].Text)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unterminated string", `'abc`, "unterminated string"},
		{"unterminated comment", `/* abc`, "unterminated comment"},
		{"bad character", `a # b`, "unexpected character"},
		{"bad escape", `'\q'`, "unknown escape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			require.Error(t, err)
			var syn *SyntaxError
			require.True(t, errors.As(err, &syn))
			assert.Contains(t, syn.Message, tt.want)
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	toks, err := Tokenize("a\n  b")
	require.NoError(t, err)
	assert.Equal(t, Pos{Line: 1, Col: 1}, toks[0].Pos)
	assert.Equal(t, Pos{Line: 2, Col: 3}, toks[1].Pos)
}

func TestParseEditorLoop(t *testing.T) {
	src := `
for (var count = 0; count < 4; count++) {
  checkTimeout('block_id_3');
  Turtle.moveForward(100, 'block_id_4');
  Turtle.turnRight(90, 'block_id_5');
}
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	loop, ok := prog.Body[0].(*For)
	require.True(t, ok)
	assert.IsType(t, &VarDecl{}, loop.Init)
	assert.IsType(t, &IncDec{}, loop.Post)
	require.Len(t, loop.Body.Stmts, 3)

	call := loop.Body.Stmts[1].(*ExprStmt).X.(*Call)
	assert.Equal(t, "Turtle.moveForward", call.Callee)
	require.Len(t, call.Args, 2)
	assert.Equal(t, 100.0, call.Args[0].(*NumberLit).Value)
}

func TestParsePrecedence(t *testing.T) {
	prog, err := Parse(`x = 1 + 2 * 3 < 10 && !done || y;`)
	require.NoError(t, err)

	assign := prog.Body[0].(*Assign)
	or := assign.Value.(*Binary)
	assert.Equal(t, "||", or.Op)
	and := or.Left.(*Binary)
	assert.Equal(t, "&&", and.Op)
	lt := and.Left.(*Binary)
	assert.Equal(t, "<", lt.Op)
	plus := lt.Left.(*Binary)
	assert.Equal(t, "+", plus.Op)
	assert.Equal(t, "*", plus.Right.(*Binary).Op)
	assert.Equal(t, "!", and.Right.(*Unary).Op)
}

func TestParseLeftAssociative(t *testing.T) {
	prog, err := Parse(`x = 10 - 3 - 2;`)
	require.NoError(t, err)

	outer := prog.Body[0].(*Assign).Value.(*Binary)
	inner, ok := outer.Left.(*Binary)
	require.True(t, ok, "subtraction should associate left")
	assert.Equal(t, 10.0, inner.Left.(*NumberLit).Value)
	assert.Equal(t, 2.0, outer.Right.(*NumberLit).Value)
}

func TestParseIfElseChain(t *testing.T) {
	prog, err := Parse(`
if (a) { f(); } else if (b) { g(); } else { h(); }
`)
	require.NoError(t, err)

	st := prog.Body[0].(*If)
	elif, ok := st.Else.(*If)
	require.True(t, ok)
	assert.IsType(t, &Block{}, elif.Else)
}

func TestParseFunctionsAreHoisted(t *testing.T) {
	prog, err := Parse(`
square(50);
function square(size) {
  for (var i = 0; i < 4; i++) { Turtle.moveForward(size); Turtle.turnRight(90); }
}
`)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	require.Len(t, prog.Funcs, 1)
	assert.Equal(t, "square", prog.Funcs[0].Name)
	assert.Equal(t, []string{"size"}, prog.Funcs[0].Params)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing paren", `if (a { }`, "expected )"},
		{"unterminated block", `while (true) { f();`, "unterminated block"},
		{"nested function", `if (a) { function f() {} }`, "only allowed at top level"},
		{"duplicate function", `function f() {} function f() {}`, "already declared"},
		{"dangling operator", `x = 1 +;`, "unexpected"},
		{"missing semicolon", `f() g()`, "expected ';'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var syn *SyntaxError
			require.True(t, errors.As(err, &syn))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	deep := MaxNesting + 1
	tests := map[string]string{
		"parens":  "var x = " + strings.Repeat("(", deep) + "1" + strings.Repeat(")", deep) + ";",
		"unary":   "var x = " + strings.Repeat("!", deep) + "true;",
		"blocks":  strings.Repeat("if (true) {", deep) + strings.Repeat("}", deep),
		"else if": "if (true) {}" + strings.Repeat(" else if (true) {}", deep),
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(src)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Contains(t, se.Message, "nested deeper than")
		})
	}

	shallow := strings.Repeat("(", 50) + "1" + strings.Repeat(")", 50)
	_, err := Parse("var x = " + shallow + ";")
	assert.NoError(t, err)
}

func TestParseEmptyProgram(t *testing.T) {
	prog, err := Parse("  // nothing here\n")
	require.NoError(t, err)
	assert.Empty(t, prog.Body)
	assert.Empty(t, prog.Funcs)
}

func TestStrip(t *testing.T) {
	src := `Turtle.penColour('#ff0000', 'block_id_2');
for (var count = 0; count < 4; count++) {
  checkTimeout('block_id_3');
  Turtle.moveForward(100, 'block_id_4');
  Turtle.penUp('block_id_5');
}
`
	want := `Turtle.penColour('#ff0000');
for (var count = 0; count < 4; count++) {
  Turtle.moveForward(100);
  Turtle.penUp();
}
`
	assert.Equal(t, want, Strip(src))
}

func TestStripEmpty(t *testing.T) {
	assert.Equal(t, "", Strip(""))
	assert.Equal(t, "", Strip("checkTimeout('block_id_1');\n"))
}
