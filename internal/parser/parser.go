package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/lexer"
	"github.com/funvibe/talescript/internal/token"
)

// reservedLabel matches names of the form __name__.
var reservedLabel = regexp.MustCompile(`^__.+__$`)

// IsReservedLabel reports whether name is reserved for generated code.
func IsReservedLabel(name string) bool {
	return reservedLabel.MatchString(name)
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	file   string
	errors diagnostics.List

	curToken  token.Token
	peekToken token.Token

	// open labels indexed by depth; the last one receives statements
	labels    []*ast.Label
	lastActor string

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
	depth          int
}

func New(l *lexer.Lexer, file string) *Parser {
	p := &Parser{l: l, file: file}
	p.registerExpressionFns()

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses one script held in memory. sourceName is used in diagnostics.
func Parse(text, sourceName string) (*ast.ScriptFile, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	p := New(lexer.New(text), sourceName)
	sf := p.ParseScriptFile()
	return sf, p.Errors().Err()
}

// ParseFile reads and parses a script from disk. The result is the same as
// calling Parse with the file contents and path.
func ParseFile(path string) (*ast.ScriptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		de := diagnostics.NewError(diagnostics.ErrP008, token.Token{}, "cannot read source").Wrap(err)
		de.File = path
		return nil, diagnostics.List{de}
	}
	return Parse(string(data), path)
}

// Errors returns the diagnostics collected so far, with the file name set.
func (p *Parser) Errors() diagnostics.List {
	p.errors.SetFile(p.file)
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) atLineEnd() bool {
	return p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.EOF)
}

// skipLine drops the rest of the current line after an error.
func (p *Parser) skipLine() {
	for !p.atLineEnd() {
		p.nextToken()
	}
}

func (p *Parser) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, diagnostics.Errorf(code, tok, format, args...))
}

// expectCur reports an error unless the current token has type t.
func (p *Parser) expectCur(t token.TokenType, what string) bool {
	if p.curTokenIs(t) {
		return true
	}
	p.errorf(diagnostics.ErrP001, p.curToken, "expected %s, got %s", what, describe(p.curToken))
	return false
}

func (p *Parser) currentLabel() *ast.Label {
	if len(p.labels) == 0 {
		return nil
	}
	return p.labels[len(p.labels)-1]
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.NEWLINE:
		return "end of line"
	case token.EOF:
		return "end of file"
	}
	return fmt.Sprintf("%q", tok.Lexeme)
}
