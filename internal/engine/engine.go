// Package engine dispatches query calls: it resolves templates, consults the
// result cache, invokes the process or HTTP request, classifies the outcome,
// and parses the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homiodev/homio-hquery/internal/cache"
	"github.com/homiodev/homio-hquery/internal/classify"
	"github.com/homiodev/homio-hquery/internal/env"
	"github.com/homiodev/homio-hquery/internal/exec"
	"github.com/homiodev/homio-hquery/internal/parse"
	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/slogger"
	"github.com/homiodev/homio-hquery/internal/template"
)

// Observer is notified about calls and invocations.
type Observer interface {
	CallStarted(name string)
	CallFinished(name string, cached bool, d time.Duration, err error)
	Invoked(name, transport string, exitCode int, d time.Duration)
}

// Mapping transforms a parsed result.
type Mapping func(v any) (any, error)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Executor exec.Executor
	HTTP     *exec.HTTPClient
	Cache    *cache.Cache
	Parser   *parse.Parser
	Lookup   env.Lookup
	Tokens   map[string]string
	Platform query.Platform
	Observer Observer
	Mappings map[string]Mapping

	DefaultTimeout time.Duration
	StreamGrace    time.Duration
	StopTimeout    time.Duration

	// Offline makes every call return the descriptor's ValueOnDisable.
	Offline bool

	// NoCache ignores descriptor cache TTLs.
	NoCache bool
}

// Engine executes descriptors. It is safe for concurrent use.
type Engine struct {
	executor exec.Executor
	http     *exec.HTTPClient
	cache    *cache.Cache
	parser   *parse.Parser
	resolver *template.Resolver
	platform query.Platform
	observer Observer
	mappings map[string]Mapping

	defaultTimeout time.Duration
	streamGrace    time.Duration
	stopTimeout    time.Duration
	offline        bool
	noCache        bool
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		executor:       opts.Executor,
		http:           opts.HTTP,
		cache:          opts.Cache,
		parser:         opts.Parser,
		platform:       opts.Platform,
		observer:       opts.Observer,
		mappings:       DefaultMappings(),
		defaultTimeout: opts.DefaultTimeout,
		streamGrace:    opts.StreamGrace,
		stopTimeout:    opts.StopTimeout,
		offline:        opts.Offline,
		noCache:        opts.NoCache,
	}
	if e.executor == nil {
		e.executor = exec.New()
	}
	if e.http == nil {
		e.http = exec.NewHTTPClient(nil)
	}
	if e.cache == nil {
		e.cache = cache.New()
	}
	if e.platform == "" {
		e.platform = exec.Platform()
	}
	if e.parser == nil {
		e.parser = parse.New(e.platform)
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = query.DefaultTimeout
	}
	if e.streamGrace <= 0 {
		e.streamGrace = query.DefaultStreamGrace
	}
	for name, m := range opts.Mappings {
		e.mappings[name] = m
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = env.OS()
	}
	e.resolver = template.New(lookup, opts.Tokens)
	return e
}

// Parser returns the parser, for registering custom handlers.
func (e *Engine) Parser() *parse.Parser { return e.parser }

// Cache returns the result cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Platform returns the platform whose templates are executed.
func (e *Engine) Platform() query.Platform { return e.platform }

// Resolve returns the resolved command parts for d, or nil when d has no
// template for the active platform.
func (e *Engine) Resolve(d *query.Descriptor, args []query.Arg) []string {
	if d.IsHTTP() {
		return []string{e.resolver.Resolve(d.URL, args)}
	}
	tmpls := d.Commands.For(e.platform)
	if len(tmpls) == 0 {
		return nil
	}
	return e.resolver.ResolveAll(tmpls, args)
}

// Display returns the command string of d as shown in logs, progress
// messages and errors. Secret values are masked.
func (e *Engine) Display(d *query.Descriptor, args []query.Arg) string {
	if d.IsHTTP() {
		return e.resolver.Display(d.URL, args)
	}
	return template.Key(e.resolver.DisplayAll(d.Commands.For(e.platform), args))
}

// Execute runs one call of d.
func (e *Engine) Execute(ctx context.Context, d *query.Descriptor, args []query.Arg, opts ...CallOption) (any, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	logger := slogger.L(ctx).With("call_id", uuid.NewString(), "query", d.Name)
	ctx = slogger.WithLogger(ctx, logger)

	start := time.Now()
	e.observer.CallStarted(d.Name)
	v, cached, err := e.execute(ctx, d, args, &co)
	e.observer.CallFinished(d.Name, cached, time.Since(start), err)

	if err != nil {
		logger.Debug("call failed", "error", err, "duration", time.Since(start))
	} else {
		logger.Debug("call finished", "cached", cached, "duration", time.Since(start))
	}
	return v, err
}

func (e *Engine) execute(ctx context.Context, d *query.Descriptor, args []query.Arg, co *callOptions) (any, bool, error) {
	if e.offline {
		return d.ValueOnDisable, false, nil
	}

	parts := e.Resolve(d, args)
	if len(parts) == 0 {
		slogger.L(ctx).Debug("no command for platform", "platform", e.platform)
		return d.ValueOnDisable, false, nil
	}
	key := template.Key(parts)
	command := e.Display(d, args)
	ctx = slogger.WithLogger(ctx, slogger.L(ctx).With("command", command))

	timeout := e.timeout(d, co)
	ttl := d.CacheTTL
	if e.noCache {
		ttl = 0
	}
	out, hit := e.cache.GetOrCompute(key, ttl, func() *query.Outcome {
		if d.IsHTTP() {
			return e.fetch(ctx, d, parts[0], command, timeout)
		}
		return e.run(ctx, d, parts, command, args, timeout, co.progress)
	})

	dec, err := classify.Classify(ctx, d, command, out)
	if err != nil {
		return nil, hit, err
	}
	if dec.Final {
		return dec.Value, hit, nil
	}

	var v any
	if dec.Fallback != nil {
		v, err = e.parser.Fallback(*dec.Fallback, d.Returns)
	} else {
		v, err = e.parser.Parse(dec.Lines, d.Returns, d.Parse)
	}
	if err == nil && d.Mapping != "" {
		v, err = e.mapResult(d.Mapping, v)
	}
	if err != nil {
		return nil, hit, parseError(d, command, out, err)
	}
	return v, hit, nil
}

func (e *Engine) mapResult(name string, v any) (any, error) {
	m, ok := e.mappings[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mapping %q", query.ErrUnsupportedShape, name)
	}
	return m(v)
}

func (e *Engine) timeout(d *query.Descriptor, co *callOptions) time.Duration {
	switch {
	case co.timeout > 0:
		return co.timeout
	case d.Timeout > 0:
		return d.Timeout
	default:
		return e.defaultTimeout
	}
}

func parseError(d *query.Descriptor, command string, out *query.Outcome, err error) error {
	kind := query.ErrUnsupportedShape
	if errors.Is(err, query.ErrCoercion) {
		kind = query.ErrCoercion
	}
	return &query.Error{
		Kind:     kind,
		Query:    d.Name,
		Command:  command,
		ExitCode: out.ExitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Message:  err.Error(),
		Err:      err,
	}
}

// DefaultMappings returns the built-in result mappings.
func DefaultMappings() map[string]Mapping {
	return map[string]Mapping{
		"trim": func(v any) (any, error) {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s), nil
			}
			return v, nil
		},
		"trim_end": func(v any) (any, error) {
			if s, ok := v.(string); ok {
				return strings.TrimRight(s, " \t\r\n"), nil
			}
			return v, nil
		},
		"lower": func(v any) (any, error) {
			if s, ok := v.(string); ok {
				return strings.ToLower(s), nil
			}
			return v, nil
		},
	}
}

type nopObserver struct{}

func (nopObserver) CallStarted(string)                              {}
func (nopObserver) CallFinished(string, bool, time.Duration, error) {}
func (nopObserver) Invoked(string, string, int, time.Duration)      {}
