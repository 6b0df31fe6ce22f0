package sqlm

import (
	"errors"

	"github.com/jjeffery/kv"
)

// Kind identifies the category of an error raised by this package.
type Kind int

// Kinds of error. All of these are detected before any command
// is sent to the database.
const (
	InvalidArgument      Kind = iota + 1 // malformed sort, missing column, mismatched values
	UnsupportedMapping                   // generated key requested for a composite primary key
	MissingKeyMapping                    // relation or key-based operation without key columns
	NoColumnsToWrite                     // insert or update would have an empty column list
	NoDefaultConstructor                 // model type cannot be instantiated
	UnsupportedProvider                  // no dialect registered for the provider name
	DuplicateClause                      // clause set twice on a fluent query
)

var kindText = map[Kind]string{
	InvalidArgument:      "invalid argument",
	UnsupportedMapping:   "unsupported mapping",
	MissingKeyMapping:    "missing key mapping",
	NoColumnsToWrite:     "no columns to write",
	NoDefaultConstructor: "no default constructor",
	UnsupportedProvider:  "unsupported provider",
	DuplicateClause:      "duplicate clause",
}

func (k Kind) String() string {
	if text, ok := kindText[k]; ok {
		return text
	}
	return "unknown"
}

// Sentinel errors for use with errors.Is.
var (
	ErrInvalidArgument      = &Error{Kind: InvalidArgument}
	ErrUnsupportedMapping   = &Error{Kind: UnsupportedMapping}
	ErrMissingKeyMapping    = &Error{Kind: MissingKeyMapping}
	ErrNoColumnsToWrite     = &Error{Kind: NoColumnsToWrite}
	ErrNoDefaultConstructor = &Error{Kind: NoDefaultConstructor}
	ErrUnsupportedProvider  = &Error{Kind: UnsupportedProvider}
	ErrDuplicateClause      = &Error{Kind: DuplicateClause}
)

// Error is the error type returned when a statement cannot be built.
// It carries a message and key/value pairs describing the context.
type Error struct {
	Kind    Kind
	Msg     string
	Keyvals kv.List
}

func newError(kind Kind, msg string, keyvals ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Msg:     msg,
		Keyvals: kv.List(keyvals),
	}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if len(e.Keyvals) == 0 {
		return msg
	}
	return msg + " " + e.Keyvals.String()
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrNoColumnsToWrite) works for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsKind reports whether err, or any error it wraps, is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
