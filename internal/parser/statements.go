package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/token"
)

// ParseScriptFile parses the whole token stream. Errors are collected and the
// offending line is skipped, so one call reports every problem in the file.
func (p *Parser) ParseScriptFile() *ast.ScriptFile {
	sf := &ast.ScriptFile{File: p.file}

	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.NEWLINE:
			p.nextToken()
			continue
		case token.LABEL:
			p.parseLabel(sf)
		case token.WORD_DEF:
			p.parseWordDef(sf)
		case token.HOST_BLOCK:
			p.parseHostBlock(sf)
		case token.CALL, token.JUMP:
			p.addStatement(p.parseTransfer())
		case token.VARIABLE, token.GLOBAL_VARIABLE:
			p.addStatement(p.parseAssignment())
		case token.IDENT, token.COLON, token.TEXT:
			p.addStatement(p.parseDialogue())
		case token.ILLEGAL:
			p.illegal(p.curToken)
			p.skipLine()
		default:
			p.errorf(diagnostics.ErrP001, p.curToken, "unexpected %s at start of line", describe(p.curToken))
			p.skipLine()
		}

		if !p.atLineEnd() {
			p.errorf(diagnostics.ErrP001, p.curToken, "unexpected %s", describe(p.curToken))
			p.skipLine()
		}
	}

	return sf
}

func (p *Parser) illegal(tok token.Token) {
	switch tok.Literal {
	case "unterminated host block", "unterminated string":
		p.errorf(diagnostics.ErrP007, tok, "%s", tok.Literal)
	default:
		p.errorf(diagnostics.ErrP001, tok, "illegal character %q", tok.Lexeme)
	}
}

func (p *Parser) addStatement(stmt ast.Statement) {
	if stmt == nil {
		return
	}
	label := p.currentLabel()
	if label == nil {
		p.errorf(diagnostics.ErrP003, stmt.GetToken(), "statement outside of a label")
		return
	}
	label.Statements = append(label.Statements, stmt)
}

// parseLabel handles `＊name ＆key：value`; the number of sigils is the depth.
func (p *Parser) parseLabel(sf *ast.ScriptFile) {
	tok := p.curToken
	depth, _ := strconv.Atoi(tok.Literal)
	depth--
	p.nextToken()

	if !p.expectCur(token.IDENT, "label name") {
		p.skipLine()
		return
	}
	nameTok := p.curToken
	name := nameTok.Literal
	if IsReservedLabel(name) {
		p.errorf(diagnostics.ErrP002, nameTok, "reserved label name %q: names of the form __name__ are reserved", name)
		p.skipLine()
		return
	}
	p.nextToken()

	attrs, ok := p.parseAttributes()
	if !ok {
		p.skipLine()
		return
	}

	label := &ast.Label{Token: tok, Name: name, Depth: depth, Attributes: attrs}
	if depth == 0 {
		sf.Items = append(sf.Items, label)
		p.labels = []*ast.Label{label}
	} else {
		if len(p.labels) < depth {
			p.errorf(diagnostics.ErrP004, nameTok, "local label %q has no enclosing label at depth %d", name, depth)
			p.skipLine()
			return
		}
		parent := p.labels[depth-1]
		parent.LocalLabels = append(parent.LocalLabels, label)
		p.labels = append(p.labels[:depth], label)
	}
	p.lastActor = ""
}

// parseAttributes reads `＆key` and `＆key：value` pairs.
func (p *Parser) parseAttributes() ([]*ast.Attribute, bool) {
	var attrs []*ast.Attribute
	for p.curTokenIs(token.AMP) {
		tok := p.curToken
		p.nextToken()
		if !p.expectCur(token.IDENT, "attribute name after '＆'") {
			return nil, false
		}
		attr := &ast.Attribute{Token: tok, Key: p.curToken.Literal}
		p.nextToken()
		if p.curTokenIs(token.COLON) {
			p.nextToken()
			switch p.curToken.Type {
			case token.IDENT, token.NUMBER, token.STRING:
				attr.Value = p.curToken.Literal
			default:
				p.errorf(diagnostics.ErrP001, p.curToken, "expected value for attribute %q, got %s", attr.Key, describe(p.curToken))
				return nil, false
			}
			p.nextToken()
		}
		attrs = append(attrs, attr)
	}
	return attrs, true
}

// parseWordDef handles `＠name：value value`. Definitions at column 1 (or
// before any label) are global, indented ones belong to the open label.
func (p *Parser) parseWordDef(sf *ast.ScriptFile) {
	tok := p.curToken
	p.nextToken()
	if !p.expectCur(token.IDENT, "word name") {
		p.skipLine()
		return
	}
	wd := &ast.WordDef{Token: tok, Name: p.curToken.Literal}
	p.nextToken()
	if !p.expectCur(token.COLON, "'：' after word name") {
		p.skipLine()
		return
	}
	p.nextToken()
	if p.curTokenIs(token.TEXT) {
		wd.Values = strings.Fields(p.curToken.Literal)
		p.nextToken()
	}
	if len(wd.Values) == 0 {
		p.errorf(diagnostics.ErrP001, tok, "word %q has no values", wd.Name)
		return
	}

	label := p.currentLabel()
	if tok.Column == 1 || label == nil {
		sf.Items = append(sf.Items, wd)
		return
	}
	label.LocalWords = append(label.LocalWords, wd)
}

func (p *Parser) parseHostBlock(sf *ast.ScriptFile) {
	tok := p.curToken
	hb := &ast.HostBlock{Token: tok, Lang: tok.Lexeme, Code: tok.Literal}
	p.nextToken()

	label := p.currentLabel()
	if tok.Column == 1 || label == nil {
		sf.Items = append(sf.Items, hb)
		return
	}
	label.Statements = append(label.Statements, hb)
}

// parseDialogue handles `actor：text` and the `：text` continuation form.
func (p *Parser) parseDialogue() ast.Statement {
	tok := p.curToken
	stmt := &ast.DialogueStatement{Token: tok}

	if p.curTokenIs(token.TEXT) {
		p.errorf(diagnostics.ErrP005, tok, "expected '：' between actor and text in %q", strings.TrimSpace(tok.Literal))
		p.nextToken()
		return nil
	}
	if p.curTokenIs(token.IDENT) {
		stmt.Actor = p.curToken.Literal
		if stmt.Actor == "" || strings.ContainsFunc(stmt.Actor, unicode.IsSpace) {
			p.errorf(diagnostics.ErrP005, tok, "invalid actor name %q", stmt.Actor)
			p.skipLine()
			return nil
		}
		p.nextToken()
	}
	if !p.expectCur(token.COLON, "'：'") {
		p.skipLine()
		return nil
	}
	p.nextToken()

	raw := ""
	if p.curTokenIs(token.TEXT) {
		raw = p.curToken.Literal
		p.nextToken()
	}

	if stmt.Actor == "" {
		if p.lastActor == "" {
			p.errorf(diagnostics.ErrP005, tok, "continuation line without a previous actor")
			return nil
		}
		stmt.Actor = p.lastActor
		stmt.Continued = true
	}
	p.lastActor = stmt.Actor
	stmt.Text = parseText(raw)
	return stmt
}

// parseAssignment handles `＄name＝expr` and `＄＊name＝expr`.
func (p *Parser) parseAssignment() ast.Statement {
	tok := p.curToken
	target := &ast.Variable{Token: tok, Name: tok.Literal, Global: tok.Type == token.GLOBAL_VARIABLE}
	if _, isArg := target.ArgIndex(); isArg {
		p.errorf(diagnostics.ErrP006, tok, "cannot assign to argument %s", target)
		p.skipLine()
		return nil
	}
	p.nextToken()
	if !p.expectCur(token.ASSIGN, "'＝' after variable") {
		p.skipLine()
		return nil
	}
	p.nextToken()
	if p.atLineEnd() {
		p.errorf(diagnostics.ErrP006, p.curToken, "missing expression after '＝'")
		return nil
	}
	value := p.parseExpression(LOWEST)
	if value == nil {
		p.skipLine()
		return nil
	}
	p.nextToken()
	return &ast.AssignStatement{Token: tok, Target: target, Value: value}
}

// parseTransfer handles jump `？name（args）＆filter` and call `＞name（args）＆filter`.
func (p *Parser) parseTransfer() ast.Statement {
	tok := p.curToken
	p.nextToken()
	if !p.expectCur(token.IDENT, "label name") {
		p.skipLine()
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	var args []ast.Expression
	if p.curTokenIs(token.LPAREN) {
		var ok bool
		if args, ok = p.parseArguments(); !ok {
			p.skipLine()
			return nil
		}
	}
	filters, ok := p.parseAttributes()
	if !ok {
		p.skipLine()
		return nil
	}

	if tok.Type == token.JUMP {
		return &ast.JumpStatement{Token: tok, Label: name, Filters: filters, Args: args}
	}
	return &ast.CallStatement{Token: tok, Label: name, Filters: filters, Args: args}
}

func (p *Parser) parseArguments() ([]ast.Expression, bool) {
	args := []ast.Expression{}
	p.nextToken() // consume '('
	for !p.curTokenIs(token.RPAREN) {
		if p.atLineEnd() {
			p.errorf(diagnostics.ErrP001, p.curToken, "expected ')' to close argument list")
			return nil, false
		}
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil, false
		}
		args = append(args, exp)
		p.nextToken()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken() // consume ')'
	return args, true
}
