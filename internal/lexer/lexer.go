package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/talescript/internal/token"
	"golang.org/x/text/unicode/norm"
)

// Lexer is line oriented: the first rune of every line (after indentation)
// decides how the rest of the line is tokenized. Each call to lexLine fills
// the pending queue with the tokens of one source line.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	pending []token.Token
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// Tokenize runs the lexer to completion. The returned slice always ends with EOF.
func Tokenize(input string) []token.Token {
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	for len(l.pending) == 0 {
		l.lexLine()
	}
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok
}

func (l *Lexer) lexLine() {
	l.skipSpaces()
	line, col := l.line, l.column

	switch {
	case l.atEOF():
		l.emit(token.EOF, "", "", line, col)
		return
	case l.atEOL():
		// blank line
	case isCommentSigil(l.ch):
		l.skipToEOL()
	case strings.HasPrefix(l.input[l.position:], "```"):
		l.lexHostBlock(line, col)
	case isLabelSigil(l.ch):
		start := l.position
		depth := 0
		for isLabelSigil(l.ch) {
			depth++
			l.readChar()
		}
		l.emit(token.LABEL, l.input[start:l.position], strconv.Itoa(depth), line, col)
		l.lexHeader()
	case isWordSigil(l.ch):
		l.emitRune(token.WORD_DEF)
		l.lexWordDef()
	case isVarSigil(l.ch):
		l.lexExpression()
	case isCallSigil(l.ch):
		l.emitRune(token.CALL)
		l.lexHeader()
	case isJumpSigil(l.ch):
		l.emitRune(token.JUMP)
		l.lexHeader()
	default:
		l.lexDialogue()
	}

	l.finishLine()
}

func (l *Lexer) finishLine() {
	if l.ch == '\r' && l.peekChar() == '\n' {
		l.readChar()
	}
	if l.ch == '\n' {
		l.emit(token.NEWLINE, "\n", "\n", l.line, l.column)
		l.readChar()
	}
}

// lexHeader tokenizes the rest of a label, call or jump line:
// name, attribute/filter pairs and a parenthesized argument list.
func (l *Lexer) lexHeader() {
	for {
		l.skipSpaces()
		if l.atEOL() {
			return
		}
		switch {
		case isColon(l.ch):
			l.emitRune(token.COLON)
		case isAmp(l.ch):
			l.emitRune(token.AMP)
		case isLParen(l.ch):
			l.emitRune(token.LPAREN)
			l.lexArguments()
		case isRParen(l.ch):
			l.emitRune(token.RPAREN)
		default:
			if !l.lexName(token.IDENT, isHeaderIdentRune) {
				l.emitRune(token.ILLEGAL)
			}
		}
	}
}

// lexArguments tokenizes expressions up to the matching closing paren.
func (l *Lexer) lexArguments() {
	depth := 1
	for depth > 0 {
		l.skipSpaces()
		if l.atEOL() {
			return
		}
		switch {
		case isLParen(l.ch):
			depth++
			l.emitRune(token.LPAREN)
		case isRParen(l.ch):
			depth--
			l.emitRune(token.RPAREN)
		default:
			l.lexExpressionToken()
		}
	}
}

func (l *Lexer) lexExpression() {
	for {
		l.skipSpaces()
		if l.atEOL() {
			return
		}
		switch {
		case isLParen(l.ch):
			l.emitRune(token.LPAREN)
		case isRParen(l.ch):
			l.emitRune(token.RPAREN)
		default:
			l.lexExpressionToken()
		}
	}
}

func (l *Lexer) lexExpressionToken() {
	line, col := l.line, l.column

	switch {
	case isDigit(l.ch):
		start := l.position
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' && isDigit(l.peekChar()) {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		lit := l.input[start:l.position]
		l.emit(token.NUMBER, lit, lit, line, col)
	case l.ch == '"' || l.ch == '「':
		l.lexString(line, col)
	case isVarSigil(l.ch):
		start := l.position
		l.readChar()
		typ := token.VARIABLE
		if isLabelSigil(l.ch) {
			typ = token.GLOBAL_VARIABLE
			l.readChar()
		}
		l.lexSigilName(typ, start, line, col)
	case isWordSigil(l.ch):
		start := l.position
		l.readChar()
		l.lexSigilName(token.WORD_REF, start, line, col)
	case isComma(l.ch):
		l.emitRune(token.COMMA)
	case isColon(l.ch):
		l.emitRune(token.COLON)
	case isAmp(l.ch):
		l.emitRune(token.AMP)
	case l.ch == '+' || l.ch == '＋':
		l.emitOperator(token.PLUS, "+")
	case l.ch == '-' || l.ch == '－':
		l.emitOperator(token.MINUS, "-")
	case isLabelSigil(l.ch):
		l.emitOperator(token.ASTERISK, "*")
	case l.ch == '/' || l.ch == '／':
		l.emitOperator(token.SLASH, "/")
	case l.ch == '%' || l.ch == '％':
		l.emitOperator(token.PERCENT, "%")
	case isAssign(l.ch):
		if isAssign(l.peekChar()) {
			l.emitTwoRuneOperator(token.EQ, "==")
		} else {
			l.emitOperator(token.ASSIGN, "=")
		}
	case l.ch == '!' || l.ch == '！':
		if isAssign(l.peekChar()) {
			l.emitTwoRuneOperator(token.NOT_EQ, "!=")
		} else {
			l.emitOperator(token.BANG, "!")
		}
	case l.ch == '<' || l.ch == '＜':
		if isAssign(l.peekChar()) {
			l.emitTwoRuneOperator(token.LTE, "<=")
		} else {
			l.emitOperator(token.LT, "<")
		}
	case isCallSigil(l.ch):
		if isAssign(l.peekChar()) {
			l.emitTwoRuneOperator(token.GTE, ">=")
		} else {
			l.emitOperator(token.GT, ">")
		}
	default:
		start := l.position
		for !l.atEOL() && isExprIdentRune(l.ch) {
			l.readChar()
		}
		if l.position == start {
			l.emitRune(token.ILLEGAL)
			return
		}
		raw := l.input[start:l.position]
		lit := normalize(raw)
		l.emit(token.LookupIdent(lit), raw, lit, line, col)
	}
}

func (l *Lexer) lexSigilName(typ token.TokenType, start, line, col int) {
	nameStart := l.position
	for !l.atEOL() && isExprIdentRune(l.ch) {
		l.readChar()
	}
	name := l.input[nameStart:l.position]
	if name == "" {
		l.emit(token.ILLEGAL, l.input[start:l.position], "missing name after sigil", line, col)
		return
	}
	l.emit(typ, l.input[start:l.position], normalize(name), line, col)
}

func (l *Lexer) lexString(line, col int) {
	start := l.position
	closing := '"'
	if l.ch == '「' {
		closing = '」'
	}
	l.readChar()
	var b strings.Builder
	for {
		if l.atEOL() {
			l.emit(token.ILLEGAL, l.input[start:l.position], "unterminated string", line, col)
			return
		}
		if l.ch == closing {
			l.readChar()
			break
		}
		if l.ch == '\\' && closing == '"' {
			l.readChar()
			if l.atEOL() {
				continue
			}
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	l.emit(token.STRING, l.input[start:l.position], b.String(), line, col)
}

// lexWordDef handles `＠name：value value ...`.
func (l *Lexer) lexWordDef() {
	l.skipSpaces()
	if l.atEOL() {
		return
	}
	l.lexName(token.IDENT, isHeaderIdentRune)
	l.skipSpaces()
	if !isColon(l.ch) {
		if !l.atEOL() {
			line, col := l.line, l.column
			rest := l.restOfLine()
			l.emit(token.ILLEGAL, rest, rest, line, col)
		}
		return
	}
	l.emitRune(token.COLON)
	line, col := l.line, l.column
	rest := l.restOfLine()
	l.emit(token.TEXT, rest, rest, line, col)
}

// lexDialogue splits `actor：text` at the first colon. A line without a colon
// is emitted as a single TEXT token and rejected by the parser.
func (l *Lexer) lexDialogue() {
	line, col := l.line, l.column
	end := strings.IndexByte(l.input[l.position:], '\n')
	if end < 0 {
		end = len(l.input) - l.position
	}
	segment := l.input[l.position : l.position+end]
	idx := strings.IndexAny(segment, "：:")
	if idx < 0 {
		rest := l.restOfLine()
		l.emit(token.TEXT, rest, rest, line, col)
		return
	}
	if idx > 0 {
		raw := segment[:idx]
		l.advanceTo(l.position + idx)
		l.emit(token.IDENT, raw, normalize(strings.TrimSpace(raw)), line, col)
	}
	l.emitRune(token.COLON)
	line, col = l.line, l.column
	rest := l.restOfLine()
	l.emit(token.TEXT, rest, rest, line, col)
}

// lexHostBlock reads a ``` fenced block. The body between the fence lines is
// kept byte for byte.
func (l *Lexer) lexHostBlock(line, col int) {
	start := l.position
	l.skipToEOL()
	lang := strings.TrimSpace(strings.TrimPrefix(l.input[start:l.position], "```"))
	if !l.consumeNewline() {
		l.emit(token.ILLEGAL, "```", "unterminated host block", line, col)
		return
	}
	bodyStart := l.position
	for {
		lineStart := l.position
		l.skipToEOL()
		if strings.TrimSpace(l.input[lineStart:l.position]) == "```" {
			l.emit(token.HOST_BLOCK, lang, l.input[bodyStart:lineStart], line, col)
			return
		}
		if !l.consumeNewline() {
			l.emit(token.ILLEGAL, "```", "unterminated host block", line, col)
			return
		}
	}
}

func (l *Lexer) lexName(typ token.TokenType, accept func(rune) bool) bool {
	line, col := l.line, l.column
	start := l.position
	for !l.atEOL() && accept(l.ch) {
		l.readChar()
	}
	if l.position == start {
		return false
	}
	raw := l.input[start:l.position]
	l.emit(typ, raw, normalize(raw), line, col)
	return true
}

func (l *Lexer) consumeNewline() bool {
	if l.ch == '\r' && l.peekChar() == '\n' {
		l.readChar()
	}
	if l.ch != '\n' {
		return false
	}
	l.readChar()
	return true
}

func (l *Lexer) restOfLine() string {
	start := l.position
	l.skipToEOL()
	return l.input[start:l.position]
}

func (l *Lexer) advanceTo(pos int) {
	for l.position < pos && !l.atEOF() {
		l.readChar()
	}
}

func (l *Lexer) skipToEOL() {
	for !l.atEOL() {
		l.readChar()
	}
}

func (l *Lexer) skipSpaces() {
	for l.ch != '\n' && !l.atEOL() && isSpace(l.ch) {
		l.readChar()
	}
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) atEOL() bool {
	return l.atEOF() || l.ch == '\n' || (l.ch == '\r' && l.peekChar() == '\n')
}

func (l *Lexer) emit(typ token.TokenType, lexeme, literal string, line, col int) {
	l.pending = append(l.pending, token.Token{Type: typ, Lexeme: lexeme, Literal: literal, Line: line, Column: col})
}

func (l *Lexer) emitRune(typ token.TokenType) {
	s := string(l.ch)
	l.emit(typ, s, s, l.line, l.column)
	l.readChar()
}

func (l *Lexer) emitOperator(typ token.TokenType, literal string) {
	l.emit(typ, string(l.ch), literal, l.line, l.column)
	l.readChar()
}

func (l *Lexer) emitTwoRuneOperator(typ token.TokenType, literal string) {
	line, col := l.line, l.column
	lexeme := string(l.ch) + string(l.peekChar())
	l.readChar()
	l.readChar()
	l.emit(typ, lexeme, literal, line, col)
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

func isSpace(ch rune) bool { return unicode.IsSpace(ch) }

func isDigit(ch rune) bool { return '0' <= ch && ch <= '9' }

func isLabelSigil(ch rune) bool   { return ch == '＊' || ch == '*' }
func isWordSigil(ch rune) bool    { return ch == '＠' || ch == '@' }
func isVarSigil(ch rune) bool     { return ch == '＄' || ch == '$' }
func isCallSigil(ch rune) bool    { return ch == '＞' || ch == '>' }
func isJumpSigil(ch rune) bool    { return ch == '？' || ch == '?' }
func isCommentSigil(ch rune) bool { return ch == '＃' || ch == '#' }
func isColon(ch rune) bool        { return ch == '：' || ch == ':' }
func isAssign(ch rune) bool       { return ch == '＝' || ch == '=' }
func isAmp(ch rune) bool          { return ch == '＆' || ch == '&' }
func isLParen(ch rune) bool       { return ch == '（' || ch == '(' }
func isRParen(ch rune) bool       { return ch == '）' || ch == ')' }
func isComma(ch rune) bool        { return ch == '、' || ch == ',' || ch == '，' }

func isHeaderIdentRune(ch rune) bool {
	return !isSpace(ch) && !isColon(ch) && !isAmp(ch) && !isLParen(ch) && !isRParen(ch) && !isAssign(ch)
}

func isExprIdentRune(ch rune) bool {
	if isSpace(ch) || isColon(ch) || isAmp(ch) || isLParen(ch) || isRParen(ch) || isAssign(ch) || isComma(ch) {
		return false
	}
	if isLabelSigil(ch) || isWordSigil(ch) || isVarSigil(ch) || isCallSigil(ch) {
		return false
	}
	switch ch {
	case '+', '＋', '-', '－', '/', '／', '%', '％', '!', '！', '<', '＜', '"', '「', '」':
		return false
	}
	return true
}
