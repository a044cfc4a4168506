package parser

import (
	"strconv"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/token"
)

const (
	_ int = iota
	LOWEST
	EQUALS      // ==
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or !X
)

// maxExpressionDepth bounds recursion on pathological input.
const maxExpressionDepth = 200

var precedences = map[token.TokenType]int{
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GTE:      LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.PERCENT:  PRODUCT,
}

func (p *Parser) registerExpressionFns() {
	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.NUMBER:          p.parseNumberLiteral,
		token.STRING:          p.parseStringLiteral,
		token.TRUE:            p.parseBoolean,
		token.FALSE:           p.parseBoolean,
		token.VARIABLE:        p.parseVariable,
		token.GLOBAL_VARIABLE: p.parseVariable,
		token.WORD_REF:        p.parseWordRef,
		token.IDENT:           p.parseBareString,
		token.MINUS:           p.parsePrefixExpression,
		token.BANG:            p.parsePrefixExpression,
		token.LPAREN:          p.parseGroupedExpression,
	}

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for tt := range precedences {
		p.infixParseFns[tt] = p.parseInfixExpression
	}
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

// parseExpression is a Pratt parser. On return curToken is the last token of
// the expression.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxExpressionDepth {
		p.errorf(diagnostics.ErrP006, p.curToken, "expression nested too deeply")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		if p.curTokenIs(token.ILLEGAL) {
			p.illegal(p.curToken)
		} else {
			p.errorf(diagnostics.ErrP006, p.curToken, "unexpected %s in expression", describe(p.curToken))
		}
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(diagnostics.ErrP006, p.curToken, "could not parse %q as number", p.curToken.Literal)
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

// parseBareString accepts an unquoted word as a string, so `（花子、3）` works.
func (p *Parser) parseBareString() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseVariable() ast.Expression {
	return &ast.Variable{
		Token:  p.curToken,
		Name:   p.curToken.Literal,
		Global: p.curTokenIs(token.GLOBAL_VARIABLE),
	}
}

func (p *Parser) parseWordRef() ast.Expression {
	return &ast.WordRef{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	if p.atLineEnd() {
		p.errorf(diagnostics.ErrP006, p.curToken, "missing operand after %q", expression.Operator)
		return nil
	}
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.peekTokenIs(token.RPAREN) {
		p.errorf(diagnostics.ErrP006, p.peekToken, "expected ')', got %s", describe(p.peekToken))
		return nil
	}
	p.nextToken()
	return exp
}
