package ast

import (
	"github.com/funvibe/talescript/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that can appear in a label body.
type Statement interface {
	Node
	statementNode()
}

// Item is a Node that can appear at file scope.
type Item interface {
	Node
	itemNode()
}

// ScriptFile is the root node of one parsed source file.
type ScriptFile struct {
	File  string
	Items []Item // global word definitions, global labels and file-scope host blocks, in document order
}

func (sf *ScriptFile) TokenLiteral() string {
	if len(sf.Items) > 0 {
		return sf.Items[0].TokenLiteral()
	}
	return ""
}

func (sf *ScriptFile) GetToken() token.Token {
	if sf == nil || len(sf.Items) == 0 {
		return token.Token{}
	}
	return sf.Items[0].GetToken()
}

// Labels returns the global labels of the file in document order.
func (sf *ScriptFile) Labels() []*Label {
	var out []*Label
	for _, it := range sf.Items {
		if l, ok := it.(*Label); ok {
			out = append(out, l)
		}
	}
	return out
}

// Words returns the global word definitions of the file in document order.
func (sf *ScriptFile) Words() []*WordDef {
	var out []*WordDef
	for _, it := range sf.Items {
		if w, ok := it.(*WordDef); ok {
			out = append(out, w)
		}
	}
	return out
}

// Blocks returns the file-scope host blocks in document order.
func (sf *ScriptFile) Blocks() []*HostBlock {
	var out []*HostBlock
	for _, it := range sf.Items {
		if b, ok := it.(*HostBlock); ok {
			out = append(out, b)
		}
	}
	return out
}

// Attribute is a `＆key：value` pair on a label header, or a filter on a
// jump/call. Value is empty for the bare `＆key` form.
type Attribute struct {
	Token token.Token
	Key   string
	Value string
}

// Label is a named scene. Depth 0 is a global label; local labels nest one
// level deeper than their parent.
type Label struct {
	Token       token.Token // The LABEL token
	Name        string
	Depth       int
	Attributes  []*Attribute
	Statements  []Statement
	LocalLabels []*Label
	LocalWords  []*WordDef
}

func (l *Label) itemNode()            {}
func (l *Label) TokenLiteral() string { return l.Token.Lexeme }
func (l *Label) GetToken() token.Token {
	if l == nil {
		return token.Token{}
	}
	return l.Token
}

// WordDef is a substitution dictionary entry.
// ＠name：value value ...
type WordDef struct {
	Token  token.Token
	Name   string
	Values []string
}

func (wd *WordDef) itemNode()            {}
func (wd *WordDef) TokenLiteral() string { return wd.Token.Lexeme }
func (wd *WordDef) GetToken() token.Token {
	if wd == nil {
		return token.Token{}
	}
	return wd.Token
}

// HostBlock is an opaque block of target-language source, carried verbatim.
type HostBlock struct {
	Token token.Token
	Lang  string
	Code  string
}

func (hb *HostBlock) itemNode()            {}
func (hb *HostBlock) statementNode()       {}
func (hb *HostBlock) TokenLiteral() string { return hb.Token.Lexeme }
func (hb *HostBlock) GetToken() token.Token {
	if hb == nil {
		return token.Token{}
	}
	return hb.Token
}
