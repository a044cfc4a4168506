package lexer

import (
	"testing"

	"github.com/funvibe/talescript/internal/token"
)

func types(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func assertTypes(t *testing.T, input string, want ...token.TokenType) []token.Token {
	t.Helper()
	toks := Tokenize(input)
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("Tokenize(%q) = %v, want %v", input, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize(%q)[%d] = %s, want %s (all: %v)", input, i, got[i], want[i], got)
		}
	}
	return toks
}

func TestLabelAndDialogue(t *testing.T) {
	toks := assertTypes(t, "＊test\n　actor：hello",
		token.LABEL, token.IDENT, token.NEWLINE,
		token.IDENT, token.COLON, token.TEXT, token.EOF)

	if toks[0].Literal != "1" {
		t.Errorf("label depth = %q, want 1", toks[0].Literal)
	}
	if toks[1].Literal != "test" {
		t.Errorf("label name = %q", toks[1].Literal)
	}
	if toks[3].Literal != "actor" || toks[3].Line != 2 || toks[3].Column != 2 {
		t.Errorf("actor token = %+v", toks[3])
	}
	if toks[5].Literal != "hello" {
		t.Errorf("text = %q", toks[5].Literal)
	}
}

func TestLocalLabelDepth(t *testing.T) {
	toks := assertTypes(t, "**inner &mood:happy",
		token.LABEL, token.IDENT, token.AMP, token.IDENT, token.COLON, token.IDENT, token.EOF)
	if toks[0].Literal != "2" {
		t.Errorf("depth = %q, want 2", toks[0].Literal)
	}
}

func TestWordDefinition(t *testing.T) {
	toks := assertTypes(t, "＠季節：春　夏 秋",
		token.WORD_DEF, token.IDENT, token.COLON, token.TEXT, token.EOF)
	if toks[1].Literal != "季節" {
		t.Errorf("word name = %q", toks[1].Literal)
	}
	if toks[3].Literal != "春　夏 秋" {
		t.Errorf("values = %q", toks[3].Literal)
	}
}

func TestAssignmentExpression(t *testing.T) {
	toks := assertTypes(t, "　＄count＝＄＊total + 2 * (3 - 1) >= 4",
		token.VARIABLE, token.ASSIGN, token.GLOBAL_VARIABLE, token.PLUS, token.NUMBER,
		token.ASTERISK, token.LPAREN, token.NUMBER, token.MINUS, token.NUMBER, token.RPAREN,
		token.GTE, token.NUMBER, token.EOF)
	if toks[0].Literal != "count" || toks[2].Literal != "total" {
		t.Errorf("variables = %q, %q", toks[0].Literal, toks[2].Literal)
	}
	if toks[11].Literal != ">=" {
		t.Errorf("operator literal = %q", toks[11].Literal)
	}
}

func TestCallWithArgumentsAndFilters(t *testing.T) {
	assertTypes(t, "　＞会話（1、\"x\"） ＆天気：雨",
		token.CALL, token.IDENT, token.LPAREN, token.NUMBER, token.COMMA, token.STRING, token.RPAREN,
		token.AMP, token.IDENT, token.COLON, token.IDENT, token.EOF)
}

func TestJump(t *testing.T) {
	assertTypes(t, "  ?end", token.JUMP, token.IDENT, token.EOF)
}

func TestContinuationLine(t *testing.T) {
	assertTypes(t, "　：more", token.COLON, token.TEXT, token.EOF)
}

func TestCommentsAndBlankLines(t *testing.T) {
	assertTypes(t, "＃ comment\n\n# another", token.NEWLINE, token.NEWLINE, token.EOF)
}

func TestHostBlockIsVerbatim(t *testing.T) {
	input := "　```lua\n  local x = \"＊not a label\"\r\n\tx = x .. '：'\n　```\n"
	toks := assertTypes(t, input, token.HOST_BLOCK, token.NEWLINE, token.EOF)
	want := "  local x = \"＊not a label\"\r\n\tx = x .. '：'\n"
	if toks[0].Literal != want {
		t.Errorf("body = %q, want %q", toks[0].Literal, want)
	}
	if toks[0].Lexeme != "lua" {
		t.Errorf("lang = %q", toks[0].Lexeme)
	}
}

func TestUnterminatedHostBlock(t *testing.T) {
	toks := assertTypes(t, "```\nprint(1)\n", token.ILLEGAL, token.EOF)
	if toks[0].Literal != "unterminated host block" {
		t.Errorf("literal = %q", toks[0].Literal)
	}
}

func TestIdentifiersAreNFC(t *testing.T) {
	// "が" written as か + combining dakuten
	toks := assertTypes(t, "＊が", token.LABEL, token.IDENT, token.EOF)
	if toks[1].Literal != "が" {
		t.Errorf("literal = %q, want NFC form", toks[1].Literal)
	}
	if toks[1].Lexeme != "が" {
		t.Errorf("lexeme should keep source form, got %q", toks[1].Lexeme)
	}
}

func TestCRLF(t *testing.T) {
	toks := assertTypes(t, "*a\r\n a:b\r\n",
		token.LABEL, token.IDENT, token.NEWLINE, token.IDENT, token.COLON, token.TEXT, token.NEWLINE, token.EOF)
	if toks[5].Literal != "b" {
		t.Errorf("text = %q", toks[5].Literal)
	}
}
