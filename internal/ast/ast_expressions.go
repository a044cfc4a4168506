package ast

import (
	"strconv"

	"github.com/funvibe/talescript/internal/token"
)

// Expression is a Node that produces a value.
type Expression interface {
	Node
	expressionNode()
	String() string
}

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()       {}
func (nl *NumberLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NumberLiteral) GetToken() token.Token { return nl.Token }
func (nl *NumberLiteral) String() string        { return strconv.FormatFloat(nl.Value, 'g', -1, 64) }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }
func (sl *StringLiteral) String() string        { return strconv.Quote(sl.Value) }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()       {}
func (bl *BooleanLiteral) TokenLiteral() string  { return bl.Token.Lexeme }
func (bl *BooleanLiteral) GetToken() token.Token { return bl.Token }
func (bl *BooleanLiteral) String() string        { return strconv.FormatBool(bl.Value) }

// Variable references a label-local variable, a global variable (＄＊name)
// or a positional argument (＄1, ＄2 ...).
type Variable struct {
	Token  token.Token
	Name   string
	Global bool
}

func (v *Variable) expressionNode()       {}
func (v *Variable) TokenLiteral() string  { return v.Token.Lexeme }
func (v *Variable) GetToken() token.Token { return v.Token }
func (v *Variable) String() string {
	if v.Global {
		return "$*" + v.Name
	}
	return "$" + v.Name
}

// ArgIndex returns the 1-based argument position for ＄1-style names.
func (v *Variable) ArgIndex() (int, bool) {
	if v.Global {
		return 0, false
	}
	n, err := strconv.Atoi(v.Name)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// WordRef picks one value of a word definition at run time.
type WordRef struct {
	Token token.Token
	Name  string
}

func (wr *WordRef) expressionNode()       {}
func (wr *WordRef) TokenLiteral() string  { return wr.Token.Lexeme }
func (wr *WordRef) GetToken() token.Token { return wr.Token }
func (wr *WordRef) String() string        { return "@" + wr.Name }

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}
