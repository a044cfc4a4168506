// Package diagnostics defines the coded errors reported by every stage of the
// script pipeline. Codes are prefixed by the stage that produced them:
// P for parsing, T for transpiling and R for building or running generated code.
package diagnostics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/talescript/internal/token"
)

type ErrorCode string

// Parse errors
const (
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // reserved label name
	ErrP003 ErrorCode = "P003" // statement outside of a label
	ErrP004 ErrorCode = "P004" // local label without parent
	ErrP005 ErrorCode = "P005" // malformed dialogue line
	ErrP006 ErrorCode = "P006" // malformed expression
	ErrP007 ErrorCode = "P007" // unterminated host block or string
	ErrP008 ErrorCode = "P008" // unreadable source
)

// Transpile errors
const (
	ErrT001 ErrorCode = "T001" // duplicate label path
	ErrT002 ErrorCode = "T002" // unresolved word reference
	ErrT003 ErrorCode = "T003" // ambiguous actor alias
	ErrT004 ErrorCode = "T004" // registry sealed / misuse
	ErrT005 ErrorCode = "T005" // illegal construct combination
)

// Runtime errors
const (
	ErrR001 ErrorCode = "R001" // error raised by the host VM
	ErrR002 ErrorCode = "R002" // yielded value is not a script event
	ErrR003 ErrorCode = "R003" // generated code failed to build
)

// Kind sentinels. DiagnosticError unwraps to exactly one of them.
var (
	ErrParse     = errors.New("parse error")
	ErrTranspile = errors.New("transpile error")
	ErrRuntime   = errors.New("runtime error")
)

type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	File    string
	Label   string // label path, when known
	Message string
	Cause   error
}

func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

func Errorf(code ErrorCode, tok token.Token, format string, args ...any) *DiagnosticError {
	return NewError(code, tok, fmt.Sprintf(format, args...))
}

// Wrap attaches an underlying cause, keeping it reachable through errors.Is/As.
func (e *DiagnosticError) Wrap(cause error) *DiagnosticError {
	e.Cause = cause
	return e
}

// Kind returns the sentinel for the stage that produced the error.
func (e *DiagnosticError) Kind() error {
	switch {
	case strings.HasPrefix(string(e.Code), "P"):
		return ErrParse
	case strings.HasPrefix(string(e.Code), "T"):
		return ErrTranspile
	default:
		return ErrRuntime
	}
}

func (e *DiagnosticError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Token.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Token.Line, e.Token.Column)
		}
		b.WriteString(": ")
	} else if e.Token.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", e.Token.Line, e.Token.Column)
	}
	fmt.Fprintf(&b, "%s [%s]", e.Kind(), e.Code)
	if e.Label != "" {
		fmt.Fprintf(&b, " in %s", e.Label)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DiagnosticError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind(), e.Cause}
	}
	return []error{e.Kind()}
}

// List aggregates the diagnostics of one stage.
type List []*DiagnosticError

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func (l List) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns nil for an empty list so callers can return it directly.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// SetFile fills in the file of every diagnostic that does not carry one yet.
func (l List) SetFile(file string) {
	for _, e := range l {
		if e.File == "" {
			e.File = file
		}
	}
}
