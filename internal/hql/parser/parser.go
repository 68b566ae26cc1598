// Package parser implements the recursive-descent S-expression parser
// described in spec.md §4.2: token stream -> []sexp.SExp.
package parser

import (
	"strconv"

	"github.com/hql-lang/hql/internal/hql/diagnostics"
	"github.com/hql-lang/hql/internal/hql/lexer"
	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// ParseError reports a syntactic failure with its position and reason,
// per spec.md §4.2.
type ParseError struct {
	diagnostics.Diagnostic
}

func (e *ParseError) Error() string { return e.Diagnostic.RenderText() }

func newParseError(code diagnostics.Code, file string, pos token.Position, snippet string) *ParseError {
	d := diagnostics.New(code, diagnostics.SeverityError, file, int(pos.Line), int(pos.Column), nil).WithSnippet(snippet)
	return &ParseError{Diagnostic: d}
}

// Parser consumes a token stream and produces top-level S-expression forms.
type Parser struct {
	path   string
	toks   []token.Token
	lines  []string
	idx    int
	fileID token.FileID
}

// ParseString lexes and parses src in one step.
func ParseString(file token.FileID, path, src string) ([]sexp.SExp, error) {
	toks, err := lexer.New(file, path, src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := New(file, path, src, toks)
	return p.ParseProgram()
}

// New creates a Parser over an already-lexed token stream. src is kept
// only to render snippet lines in diagnostics.
func New(file token.FileID, path, src string, toks []token.Token) *Parser {
	return &Parser{path: path, toks: toks, fileID: file, lines: splitLines(src)}
}

func splitLines(src string) []string {
	lines := []string{""}
	start := 0
	for i, r := range src {
		if r == '\n' {
			lines = append(lines, src[start:i])
			start = i + 1
		}
	}
	lines = append(lines, src[start:])
	return lines[1:]
}

func (p *Parser) snippet(line uint32) string {
	idx := int(line) - 1
	if idx < 0 || idx >= len(p.lines) {
		return ""
	}
	return p.lines[idx]
}

func (p *Parser) peek() token.Token {
	if p.idx >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.idx]
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if p.idx < len(p.toks) {
		p.idx++
	}
	return t
}

// ParseProgram parses every top-level form until EOF.
func (p *Parser) ParseProgram() ([]sexp.SExp, error) {
	var forms []sexp.SExp
	for p.peek().Kind != token.EOF {
		form, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// parseExpr parses a single form, per spec.md §4.2.
func (p *Parser) parseExpr() (sexp.SExp, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.LParen:
		return p.parseList()
	case token.String:
		p.advance()
		return sexp.Str(tok.Text, tok.Pos), nil
	case token.Number:
		p.advance()
		n, err := parseFloat(tok.Text)
		if err != nil {
			return sexp.SExp{}, err
		}
		return sexp.Num(n, tok.Pos), nil
	case token.True:
		p.advance()
		return sexp.Bool(true, tok.Pos), nil
	case token.False:
		p.advance()
		return sexp.Bool(false, tok.Pos), nil
	case token.Nil:
		p.advance()
		return sexp.Nil(tok.Pos), nil
	case token.Symbol:
		p.advance()
		return sexp.Symbol(tok.Text, tok.Pos), nil
	case token.Quote:
		p.advance()
		return p.wrapReader("quote")
	case token.Quasiquote:
		p.advance()
		return p.wrapReader("quasiquote")
	case token.Unquote:
		p.advance()
		return p.wrapReader("unquote")
	case token.UnquoteSplicing:
		p.advance()
		return p.wrapReader("unquote-splicing")
	case token.HashLBracket:
		return p.parseSetLiteral()
	case token.RParen:
		return sexp.SExp{}, newParseError(diagnostics.CodeParseUnexpectedRP, p.path, tok.Pos, p.snippet(tok.Pos.Line))
	default:
		return sexp.SExp{}, newParseError(diagnostics.CodeParseUnexpectedEOF, p.path, tok.Pos, p.snippet(tok.Pos.Line))
	}
}

// wrapReader desugars a reader macro ('x, `x, ,x, ,@x) into (sym x) at
// parse time, so every later stage only ever sees ordinary lists.
func (p *Parser) wrapReader(sym string) (sexp.SExp, error) {
	pos := p.peek().Pos
	inner, err := p.parseExpr()
	if err != nil {
		return sexp.SExp{}, err
	}
	return sexp.List([]sexp.SExp{sexp.Symbol(sym, pos), inner}, pos), nil
}

func (p *Parser) parseList() (sexp.SExp, error) {
	open := p.advance() // consume '('
	var elems []sexp.SExp
	for {
		tok := p.peek()
		if tok.Kind == token.EOF {
			return sexp.SExp{}, newParseError(diagnostics.CodeParseUnclosedList, p.path, open.Pos, p.snippet(open.Pos.Line))
		}
		if tok.Kind == token.RParen {
			p.advance()
			return sexp.List(elems, open.Pos), nil
		}
		elem, err := p.parseExpr()
		if err != nil {
			return sexp.SExp{}, err
		}
		elems = append(elems, elem)
	}
}

// setLiteralHead marks a parsed #[...] set literal for the syntax
// transformer (internal/hql/syntax), which rewrites it into
// (new Set (list ...)). Chosen to never collide with a user-written
// symbol, since HQL symbols never contain '/'.
const setLiteralHead = "hql/set-literal"

// parseSetLiteral parses the `#[...]` set-literal sugar into a marker
// list for the syntax transformer to lower, per spec.md's restored
// dropped-distillation surface sugar.
func (p *Parser) parseSetLiteral() (sexp.SExp, error) {
	open := p.advance() // consume '#['
	elems := []sexp.SExp{sexp.Symbol(setLiteralHead, open.Pos)}
	for {
		tok := p.peek()
		if tok.Kind == token.EOF {
			return sexp.SExp{}, newParseError(diagnostics.CodeParseUnclosedList, p.path, open.Pos, p.snippet(open.Pos.Line))
		}
		if tok.Kind == token.RParen {
			p.advance()
			return sexp.List(elems, open.Pos), nil
		}
		elem, err := p.parseExpr()
		if err != nil {
			return sexp.SExp{}, err
		}
		elems = append(elems, elem)
	}
}

func parseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
