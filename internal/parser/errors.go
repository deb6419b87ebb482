package parser

import "fmt"

// Code identifies which member of the spec's compile-time error taxonomy
// (§4.1/§6) an *Error represents. The root package maps each Code to its
// exported sentinel error.
type Code uint8

const (
	CodeEmptyPattern Code = iota
	CodeUnexpectedEndOfPattern
	CodeUnexpectedCharacter
	CodeInvalidEscapeSequence
	CodeInvalidCharacterClass
	CodeInvalidQuantifier
	CodeNestingTooDeep
)

func (c Code) String() string {
	switch c {
	case CodeEmptyPattern:
		return "EmptyPattern"
	case CodeUnexpectedEndOfPattern:
		return "UnexpectedEndOfPattern"
	case CodeUnexpectedCharacter:
		return "UnexpectedCharacter"
	case CodeInvalidEscapeSequence:
		return "InvalidEscapeSequence"
	case CodeInvalidCharacterClass:
		return "InvalidCharacterClass"
	case CodeInvalidQuantifier:
		return "InvalidQuantifier"
	case CodeNestingTooDeep:
		return "NestingTooDeep"
	default:
		return "Unknown"
	}
}

// Error is the parser's internal error type; it carries the byte offset
// where the problem was detected, per spec §4.1 ("Each error carries the
// byte offset where it was detected").
type Error struct {
	Code    Code
	Offset  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Code, e.Offset, e.Message)
}

func newError(code Code, offset int, format string, args ...any) *Error {
	return &Error{Code: code, Offset: offset, Message: fmt.Sprintf(format, args...)}
}
