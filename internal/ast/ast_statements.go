package ast

import (
	"strings"

	"github.com/funvibe/talescript/internal/token"
)

// SegmentKind tells how a piece of dialogue text is produced at run time.
type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentWord                // ＠name
	SegmentVariable            // ＄name
	SegmentGlobalVariable      // ＄＊name
)

type Segment struct {
	Kind  SegmentKind
	Value string // literal text, or the referenced name
}

// Text is dialogue text split into literal and reference segments.
// Inline control codes are part of literal segments.
type Text struct {
	Raw      string
	Segments []Segment
}

// IsLiteral reports whether the text has no run-time references.
func (t *Text) IsLiteral() bool {
	for _, s := range t.Segments {
		if s.Kind != SegmentLiteral {
			return false
		}
	}
	return true
}

func (t *Text) String() string {
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteString(s.Value)
	}
	return b.String()
}

// DialogueStatement is `actor：text`. Continued is set for `：text` lines that
// inherit the previous actor.
type DialogueStatement struct {
	Token     token.Token
	Actor     string
	Text      *Text
	Continued bool
}

func (ds *DialogueStatement) statementNode()       {}
func (ds *DialogueStatement) TokenLiteral() string { return ds.Token.Lexeme }
func (ds *DialogueStatement) GetToken() token.Token {
	if ds == nil {
		return token.Token{}
	}
	return ds.Token
}

// AssignStatement is `＄name＝expr`.
type AssignStatement struct {
	Token  token.Token
	Target *Variable
	Value  Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Lexeme }
func (as *AssignStatement) GetToken() token.Token {
	if as == nil {
		return token.Token{}
	}
	return as.Token
}

// JumpStatement transfers control to another label and never returns.
// ？name（args） ＆filter
type JumpStatement struct {
	Token   token.Token
	Label   string
	Filters []*Attribute
	Args    []Expression
}

func (js *JumpStatement) statementNode()       {}
func (js *JumpStatement) TokenLiteral() string { return js.Token.Lexeme }
func (js *JumpStatement) GetToken() token.Token {
	if js == nil {
		return token.Token{}
	}
	return js.Token
}

// CallStatement runs another label and continues afterwards.
// ＞name（args） ＆filter
type CallStatement struct {
	Token   token.Token
	Label   string
	Filters []*Attribute
	Args    []Expression
}

func (cs *CallStatement) statementNode()       {}
func (cs *CallStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *CallStatement) GetToken() token.Token {
	if cs == nil {
		return token.Token{}
	}
	return cs.Token
}

type MarkerKind int

const (
	// MarkerEnter opens a label body; it records the running label for diagnostics.
	MarkerEnter MarkerKind = iota
)

// MarkerStatement is generated by the compiler, never written in source.
type MarkerStatement struct {
	Token token.Token
	Kind  MarkerKind
}

func (ms *MarkerStatement) statementNode()       {}
func (ms *MarkerStatement) TokenLiteral() string { return "" }
func (ms *MarkerStatement) GetToken() token.Token {
	if ms == nil {
		return token.Token{}
	}
	return ms.Token
}
