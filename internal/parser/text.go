package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/talescript/internal/ast"
	"golang.org/x/text/unicode/norm"
)

// parseText splits dialogue text into literal and reference segments.
// Only the full-width sigils start a reference inside text; ASCII `@` and `$`
// are ordinary characters there. `＠＠` and `＄＄` produce the sigil itself,
// `＠｛name｝` and `＄｛name｝` delimit a name explicitly.
//
// An undelimited word reference takes every name rune that follows; the
// transpiler later cuts it down to the longest defined word.
func parseText(raw string) *ast.Text {
	t := &ast.Text{Raw: raw}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.Segments = append(t.Segments, ast.Segment{Kind: ast.SegmentLiteral, Value: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); {
		r, w := utf8.DecodeRuneInString(raw[i:])
		if r != '＠' && r != '＄' {
			lit.WriteRune(r)
			i += w
			continue
		}

		rest := raw[i+w:]
		if next, nw := utf8.DecodeRuneInString(rest); next == r {
			lit.WriteRune(r)
			i += w + nw
			continue
		}

		kind := ast.SegmentWord
		if r == '＄' {
			kind = ast.SegmentVariable
			if next, nw := utf8.DecodeRuneInString(rest); next == '＊' {
				kind = ast.SegmentGlobalVariable
				rest = rest[nw:]
			}
		}

		name, n := scanTextName(rest)
		if name == "" {
			lit.WriteRune(r)
			i += w
			continue
		}
		flush()
		t.Segments = append(t.Segments, ast.Segment{Kind: kind, Value: norm.NFC.String(name)})
		i = len(raw) - len(rest) + n
	}
	flush()
	return t
}

// scanTextName reads a reference name at the start of s and returns it with
// the number of bytes consumed.
func scanTextName(s string) (string, int) {
	if strings.HasPrefix(s, "｛") {
		end := strings.Index(s, "｝")
		if end < 0 {
			return "", 0
		}
		name := s[len("｛"):end]
		return strings.TrimSpace(name), end + len("｝")
	}
	n := 0
	for n < len(s) {
		r, w := utf8.DecodeRuneInString(s[n:])
		if !isTextNameRune(r) {
			break
		}
		n += w
	}
	return s[:n], n
}

func isTextNameRune(r rune) bool {
	if r == '＠' || r == '＄' || r == '\\' {
		return false
	}
	if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
		return r == '_'
	}
	return unicode.IsPrint(r)
}
