package query

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error returned by the engine matches one of these with
// errors.Is.
var (
	ErrSpawnFailure      = errors.New("process could not be started")
	ErrNonZeroExit       = errors.New("process exited with non-zero code")
	ErrMatchedErrorLine  = errors.New("error output matched a known failure")
	ErrCoercion          = errors.New("output could not be converted")
	ErrUnsupportedShape  = errors.New("unsupported result shape")
	ErrUnknownQuery      = errors.New("unknown query")
	ErrInvalidDescriptor = errors.New("invalid query descriptor")
)

// Error is a classified query failure carrying the invocation context.
type Error struct {
	// Kind is one of the package failure sentinels.
	Kind error

	Query    string
	Command  string
	ExitCode int
	Stdout   []string
	Stderr   []string

	// Message is the user-facing description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Query != "" {
		b.WriteString(e.Query)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	default:
		b.WriteString("query failed")
	}
	if errors.Is(e.Kind, ErrNonZeroExit) {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

var kindNames = []struct {
	kind error
	name string
}{
	{ErrSpawnFailure, "spawn_failure"},
	{ErrNonZeroExit, "non_zero_exit"},
	{ErrMatchedErrorLine, "matched_error_line"},
	{ErrCoercion, "coercion"},
	{ErrUnsupportedShape, "unsupported_shape"},
	{ErrUnknownQuery, "unknown_query"},
	{ErrInvalidDescriptor, "invalid_descriptor"},
}

// KindName returns a stable label for the failure kind of err, or "other".
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "other"
}
