package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokNumber
	TokString
	TokKeyword
	TokPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokIdent:
		return "identifier"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokKeyword:
		return "keyword"
	case TokPunct:
		return "punctuation"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

var keywords = map[string]bool{
	"var":       true,
	"let":       true,
	"if":        true,
	"else":      true,
	"while":     true,
	"for":       true,
	"function":  true,
	"return":    true,
	"break":     true,
	"continue":  true,
	"true":      true,
	"false":     true,
	"null":      true,
	"undefined": true,
}

// Multi-character operators, longest first so "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=",
	"+", "-", "*", "/", "%", "<", ">", "=", "!",
	"(", ")", "{", "}", ",", ";", ".",
}

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is one lexical token.
type Token struct {
	Kind TokenKind
	Text string  // raw text; for strings, the unquoted value
	Num  float64 // value for TokNumber
	Pos  Pos
}

// SyntaxError reports malformed program source.
type SyntaxError struct {
	Pos     Pos
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

// lexer converts source text to tokens in a single pass.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

// Tokenize splits source into tokens, ending with a TokEOF token.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) pos() Pos { return Pos{Line: lx.line, Col: lx.col} }

func (lx *lexer) peekByte(ahead int) byte {
	if lx.off+ahead >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+ahead]
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.off < len(lx.src); i++ {
		if lx.src[lx.off] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.off++
	}
}

// skipSpace skips whitespace and comments.
func (lx *lexer) skipSpace() error {
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.advance(1)
		case c == '/' && lx.peekByte(1) == '/':
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.peekByte(1) == '*':
			start := lx.pos()
			lx.advance(2)
			end := strings.Index(lx.src[lx.off:], "*/")
			if end < 0 {
				return &SyntaxError{Pos: start, Message: "unterminated comment"}
			}
			lx.advance(end + 2)
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipSpace(); err != nil {
		return Token{}, err
	}
	start := lx.pos()
	if lx.off >= len(lx.src) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}

	c := lx.src[lx.off]
	switch {
	case isIdentStart(c):
		end := lx.off
		for end < len(lx.src) && isIdentPart(lx.src[end]) {
			end++
		}
		text := lx.src[lx.off:end]
		lx.advance(end - lx.off)
		if keywords[text] {
			return Token{Kind: TokKeyword, Text: text, Pos: start}, nil
		}
		return Token{Kind: TokIdent, Text: text, Pos: start}, nil

	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		return lx.number(start)

	case c == '\'' || c == '"':
		return lx.str(start, c)
	}

	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.off:], op) {
			lx.advance(len(op))
			return Token{Kind: TokPunct, Text: op, Pos: start}, nil
		}
	}
	return Token{}, &SyntaxError{Pos: start, Message: fmt.Sprintf("unexpected character %q", c)}
}

func (lx *lexer) number(start Pos) (Token, error) {
	end := lx.off
	for end < len(lx.src) && isDigit(lx.src[end]) {
		end++
	}
	if end < len(lx.src) && lx.src[end] == '.' {
		end++
		for end < len(lx.src) && isDigit(lx.src[end]) {
			end++
		}
	}
	if end < len(lx.src) && (lx.src[end] == 'e' || lx.src[end] == 'E') {
		exp := end + 1
		if exp < len(lx.src) && (lx.src[exp] == '+' || lx.src[exp] == '-') {
			exp++
		}
		if exp < len(lx.src) && isDigit(lx.src[exp]) {
			end = exp
			for end < len(lx.src) && isDigit(lx.src[end]) {
				end++
			}
		}
	}
	text := lx.src[lx.off:end]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, &SyntaxError{Pos: start, Message: fmt.Sprintf("invalid number %q", text)}
	}
	lx.advance(end - lx.off)
	return Token{Kind: TokNumber, Text: text, Num: n, Pos: start}, nil
}

func (lx *lexer) str(start Pos, quote byte) (Token, error) {
	lx.advance(1)
	var b strings.Builder
	for {
		if lx.off >= len(lx.src) || lx.src[lx.off] == '\n' {
			return Token{}, &SyntaxError{Pos: start, Message: "unterminated string"}
		}
		c := lx.src[lx.off]
		if c == quote {
			lx.advance(1)
			return Token{Kind: TokString, Text: b.String(), Pos: start}, nil
		}
		if c == '\\' {
			esc := lx.peekByte(1)
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				return Token{}, &SyntaxError{Pos: lx.pos(), Message: fmt.Sprintf("unknown escape \\%c", esc)}
			}
			lx.advance(2)
			continue
		}
		b.WriteByte(c)
		lx.advance(1)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
