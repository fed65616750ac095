// Package query defines the declarative data model shared by the query engine:
// descriptors, arguments, invocation outcomes, parse specifications, and the
// error taxonomy.
package query

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Default descriptor values.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultStreamGrace = 250 * time.Millisecond
)

// Platform identifies the operating-system family a template list targets.
type Platform string

// Supported platforms.
const (
	PlatformUnix    Platform = "unix"
	PlatformWindows Platform = "windows"
)

// CurrentPlatform returns the platform of the running process.
func CurrentPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformUnix
}

// ReturnKind is the declared shape of a query result.
type ReturnKind string

// Return kinds. Void, ExitCode and Succeeded are decided by the exit code
// alone; the others are produced from output text.
const (
	ReturnVoid      ReturnKind = "void"
	ReturnExitCode  ReturnKind = "exit_code"
	ReturnSucceeded ReturnKind = "succeeded"
	ReturnString    ReturnKind = "string"
	ReturnInt       ReturnKind = "int"
	ReturnFloat     ReturnKind = "float"
	ReturnBool      ReturnKind = "bool"
	ReturnLines     ReturnKind = "lines"
	ReturnLineSet   ReturnKind = "line_set"
	ReturnRecord    ReturnKind = "record"
	ReturnRecords   ReturnKind = "records"
	ReturnJSON      ReturnKind = "json"
)

// ExitStatusOnly reports whether the kind is derived from the exit code only.
func (k ReturnKind) ExitStatusOnly() bool {
	switch k {
	case ReturnVoid, ReturnExitCode, ReturnSucceeded:
		return true
	default:
		return false
	}
}

// Scalar reports whether the kind is a single value coerced from text.
func (k ReturnKind) Scalar() bool {
	switch k {
	case ReturnString, ReturnInt, ReturnFloat, ReturnBool:
		return true
	default:
		return false
	}
}

// Commands holds the command templates for each platform. A single template
// runs through the platform shell; several templates form an argv.
type Commands struct {
	Unix    []string `yaml:"unix" mapstructure:"unix"`
	Windows []string `yaml:"windows" mapstructure:"windows"`
}

// For returns the non-empty templates for the given platform.
func (c Commands) For(p Platform) []string {
	src := c.Unix
	if p == PlatformWindows {
		src = c.Windows
	}
	out := make([]string, 0, len(src))
	for _, t := range src {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// Rule maps an exact stderr line to a user-facing message.
type Rule struct {
	Trigger string `yaml:"trigger" validate:"required"`
	Message string `yaml:"message" validate:"required"`
}

// ErrorPolicy overrides how a failed invocation is reported.
type ErrorPolicy struct {
	Rules []Rule `yaml:"rules" validate:"dive"`

	// DefaultMessage is reported for a non-zero exit with no stderr output.
	DefaultMessage string `yaml:"default_message"`

	// SuppressLog disables logging of the failure.
	SuppressLog bool `yaml:"suppress_log"`

	// HardFail raises the failure instead of returning an absent result.
	HardFail bool `yaml:"hard_fail"`
}

// Descriptor declares one named external operation.
type Descriptor struct {
	Name        string `validate:"required"`
	Description string

	// Commands are used for process queries; URL for HTTP queries.
	Commands Commands
	URL      string

	// Timeout bounds the process run or HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration `validate:"gte=0"`

	// CacheTTL enables result caching when positive.
	CacheTTL time.Duration `validate:"gte=0"`

	// Dir is an optional working-directory template.
	Dir string

	Returns ReturnKind `validate:"omitempty,oneof=void exit_code succeeded string int float bool lines line_set record records json"`
	Parse   *ParseSpec

	IgnoreOnError bool
	ValueOnError  string

	// ValueOnDisable is returned when no template exists for the active
	// platform or when the engine runs offline.
	ValueOnDisable any

	RedirectErrorsToInputs bool
	PrintOutput            bool
	Errors                 *ErrorPolicy

	// StreamGrace is how long output readers may keep draining after the
	// process exits. Zero means DefaultStreamGrace.
	StreamGrace time.Duration `validate:"gte=0"`

	// Mapping names a registered transformation applied to HTTP results.
	Mapping string
}

// IsHTTP reports whether the descriptor performs an HTTP request.
func (d *Descriptor) IsHTTP() bool {
	return d.URL != ""
}

// Arg is a single call argument. Unnamed arguments fill generic placeholders
// in order; named arguments fill their matching ":name" placeholder.
type Arg struct {
	Name  string
	Value any
}

// Named returns a named argument.
func Named(name string, value any) Arg {
	return Arg{Name: name, Value: value}
}

// Positional returns an unnamed argument.
func Positional(value any) Arg {
	return Arg{Value: value}
}

// String returns the textual form used for substitution.
func (a Arg) String() string {
	if a.Value == nil {
		return ""
	}
	return fmt.Sprintf("%v", a.Value)
}

// Outcome is the raw result of one invocation.
type Outcome struct {
	Command  string
	ExitCode int
	Stdout   []string
	Stderr   []string
	Duration time.Duration

	// Err is set when the process or request could not run to completion.
	Err error
}

// HasErrors reports whether the invocation produced any error output.
func (o *Outcome) HasErrors() bool {
	return len(o.Stderr) > 0 || o.Err != nil
}

// ProgressSink receives live output lines while a process runs.
type ProgressSink interface {
	Progress(pct float64, msg string, isError bool)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(pct float64, msg string, isError bool)

// Progress calls f.
func (f ProgressFunc) Progress(pct float64, msg string, isError bool) {
	f(pct, msg, isError)
}
