// Package classify decides whether an invocation outcome is a success, a
// substituted value, or one of the query failure kinds.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/slogger"
)

// Decision is the classifier verdict for a non-failing outcome.
type Decision struct {
	// Final is set when Value is the complete result and no parsing is needed.
	Final bool
	Value any

	// Fallback holds the declared substitute for an ignored failure.
	Fallback *string

	// Lines is the text handed to the parser.
	Lines []string
}

// Classify applies the failure rules in order: exit-status returns, known
// error lines, non-zero exit, then output selection. command is the resolved
// command string reported with every error.
func Classify(ctx context.Context, d *query.Descriptor, command string, out *query.Outcome) (*Decision, error) {
	logger := slogger.L(ctx).With("query", d.Name, "command", command)

	if d.Returns.ExitStatusOnly() {
		return &Decision{Final: true, Value: exitValue(d.Returns, out.ExitCode)}, nil
	}

	if d.Errors != nil {
		if msg, ok := matchRule(d.Errors.Rules, out.Stderr); ok {
			return nil, newError(d, command, out, query.ErrMatchedErrorLine, msg)
		}
	}

	if out.ExitCode != 0 && !d.RedirectErrorsToInputs {
		return nonZero(logger, d, command, out)
	}

	lines := out.Stdout
	if d.RedirectErrorsToInputs {
		lines = make([]string, 0, len(out.Stdout)+len(out.Stderr))
		lines = append(lines, out.Stdout...)
		lines = append(lines, out.Stderr...)
	} else if leftover := nonEmpty(out.Stderr); len(leftover) > 0 {
		logger.Warn("query produced error output", "lines", strings.Join(leftover, "; "))
	}
	return &Decision{Lines: lines}, nil
}

func nonZero(logger *slog.Logger, d *query.Descriptor, command string, out *query.Outcome) (*Decision, error) {
	kind := query.ErrNonZeroExit
	if out.Err != nil {
		kind = query.ErrSpawnFailure
	}

	if p := d.Errors; p != nil {
		msg := p.DefaultMessage
		if len(out.Stderr) > 0 {
			msg = strings.Join(out.Stderr, "; ")
		}
		if !p.SuppressLog {
			logger.Error("query failed", "exit_code", out.ExitCode, "error", msg)
		}
		if p.HardFail {
			return nil, newError(d, command, out, kind, msg)
		}
		return substitute(d), nil
	}

	logger.Error("query failed", "exit_code", out.ExitCode, "stderr", strings.Join(out.Stderr, "; "))
	if !d.IgnoreOnError {
		return nil, newError(d, command, out, kind, "")
	}
	return substitute(d), nil
}

// substitute returns the declared ValueOnError, or an absent result.
func substitute(d *query.Descriptor) *Decision {
	if d.IgnoreOnError && d.ValueOnError != "" {
		v := d.ValueOnError
		return &Decision{Fallback: &v}
	}
	return &Decision{Final: true}
}

func matchRule(rules []query.Rule, stderr []string) (string, bool) {
	for _, r := range rules {
		for _, line := range stderr {
			if line == r.Trigger {
				return r.Message, true
			}
		}
	}
	return "", false
}

func exitValue(k query.ReturnKind, code int) any {
	switch k {
	case query.ReturnExitCode:
		return code
	case query.ReturnSucceeded:
		return code == 0
	default:
		return nil
	}
}

func nonEmpty(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func newError(d *query.Descriptor, command string, out *query.Outcome, kind error, msg string) *query.Error {
	if msg == "" && out.Err != nil {
		msg = fmt.Sprintf("%s: %v", kind, out.Err)
	}
	return &query.Error{
		Kind:     kind,
		Query:    d.Name,
		Command:  command,
		ExitCode: out.ExitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Message:  msg,
		Err:      out.Err,
	}
}
