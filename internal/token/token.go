package token

import "fmt"

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"
	NEWLINE TokenType = "NEWLINE"

	// Line-leading sigils
	LABEL      TokenType = "LABEL"      // ＊ / * (Literal holds the depth marker, e.g. "＊＊")
	WORD_DEF   TokenType = "WORD_DEF"   // ＠ / @ at line start
	CALL       TokenType = "CALL"       // ＞ / >
	JUMP       TokenType = "JUMP"       // ？ / ?
	HOST_BLOCK TokenType = "HOST_BLOCK" // ``` fenced block, Literal holds the verbatim body

	// Identifiers and payloads
	IDENT  TokenType = "IDENT"
	TEXT   TokenType = "TEXT" // rest of a dialogue or word line
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"

	// Variables and words inside expressions
	VARIABLE        TokenType = "VARIABLE"        // ＄name
	GLOBAL_VARIABLE TokenType = "GLOBAL_VARIABLE" // ＄＊name
	WORD_REF        TokenType = "WORD_REF"        // ＠name

	// Delimiters
	COLON  TokenType = "COLON"  // ： / :
	ASSIGN TokenType = "ASSIGN" // ＝ / =
	AMP    TokenType = "AMP"    // ＆ / &
	LPAREN TokenType = "LPAREN"
	RPAREN TokenType = "RPAREN"
	COMMA  TokenType = "COMMA" // 、 / ,

	// Operators
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"
	BANG     TokenType = "!"
	EQ       TokenType = "=="
	NOT_EQ   TokenType = "!="
	LT       TokenType = "<"
	LTE      TokenType = "<="
	GT       TokenType = ">"
	GTE      TokenType = ">="

	TRUE  TokenType = "TRUE"
	FALSE TokenType = "FALSE"
)

var keywords = map[string]TokenType{
	"true":  TRUE,
	"false": FALSE,
}

// LookupIdent classifies a bare word found inside an expression.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	Type    TokenType
	Lexeme  string // source text as written
	Literal string // normalized value
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}
