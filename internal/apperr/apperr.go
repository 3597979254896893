package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures so the operator surface can react uniformly.
type Kind int

const (
	Unknown Kind = iota
	Connection
	RateLimited
	Parse
	Validation
	NotFound
	Conflict
	NoData
)

func (k Kind) String() string {
	switch k {
	case Connection:
		return "connection"
	case RateLimited:
		return "rate_limited"
	case Parse:
		return "parse"
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case NoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// FieldError names the input field and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies an underlying error. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalid builds a validation error pointing at one field.
func Invalid(op, field, rule, msg string) error {
	return &Error{Kind: Validation, Op: op, Msg: msg, Fields: []FieldError{{Field: field, Rule: rule}}}
}

// KindOf reports the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldsOf returns field details of a validation error, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
