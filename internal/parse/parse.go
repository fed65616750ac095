// Package parse turns captured output lines into typed query results.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/homiodev/homio-hquery/internal/query"
)

// Record is a parsed composite value keyed by field name.
type Record map[string]any

// Handler is a custom extractor. Field is nil when the handler produces the
// whole result rather than one record field.
type Handler func(lines []string, field *query.Field) (any, error)

// Parser runs the parsing pipeline. It is safe for concurrent use.
type Parser struct {
	platform query.Platform

	mu       sync.RWMutex
	handlers map[string]Handler

	regexps sync.Map // pattern -> *regexp.Regexp
}

// New creates a parser that picks custom handlers for platform.
func New(platform query.Platform) *Parser {
	return &Parser{
		platform: platform,
		handlers: make(map[string]Handler),
	}
}

// Register adds a named custom handler, replacing any previous one.
func (p *Parser) Register(name string, h Handler) {
	p.mu.Lock()
	p.handlers[name] = h
	p.mu.Unlock()
}

// Parse converts lines into a value of the declared return kind. Lines are
// trimmed first. A nil spec means scalar or collection parsing.
func (p *Parser) Parse(lines []string, returns query.ReturnKind, spec *query.ParseSpec) (any, error) {
	lines = trimAll(lines)

	kind := query.SpecScalar
	if spec != nil {
		kind = spec.Kind
	}

	switch kind {
	case query.SpecScalar:
		return p.plain(lines, returns)
	case query.SpecBuckets:
		return p.buckets(lines, spec)
	case query.SpecRecord:
		if spec.Schema == nil {
			return nil, fmt.Errorf("%w: record spec without schema", query.ErrUnsupportedShape)
		}
		return p.record(lines, spec.Schema)
	case query.SpecLine:
		if spec.Extract == nil {
			return nil, fmt.Errorf("%w: line spec without extractor", query.ErrUnsupportedShape)
		}
		ft, ok := fieldType(returns)
		if !ok {
			return nil, fmt.Errorf("%w: line spec cannot produce %q", query.ErrUnsupportedShape, returns)
		}
		v, _, err := p.extract(lines, spec.Extract, ft)
		return v, err
	case query.SpecFlag:
		if spec.Extract == nil {
			return nil, fmt.Errorf("%w: flag spec without extractor", query.ErrUnsupportedShape)
		}
		v, _ := p.flag(lines, spec.Extract)
		return v, nil
	case query.SpecCustom:
		if spec.Extract == nil {
			return nil, fmt.Errorf("%w: custom spec without extractor", query.ErrUnsupportedShape)
		}
		return p.custom(lines, spec.Extract, nil)
	default:
		return nil, fmt.Errorf("%w: parse kind %q", query.ErrUnsupportedShape, kind)
	}
}

// Fallback converts a declared substitute value to the return kind.
func (p *Parser) Fallback(value string, returns query.ReturnKind) (any, error) {
	switch {
	case returns.Scalar():
		ft, _ := fieldType(returns)
		return Coerce(value, ft)
	case returns == query.ReturnLines || returns == query.ReturnLineSet:
		return []string{value}, nil
	default:
		return value, nil
	}
}

func (p *Parser) plain(lines []string, returns query.ReturnKind) (any, error) {
	switch returns {
	case "", query.ReturnString, query.ReturnInt, query.ReturnFloat, query.ReturnBool:
		ft, _ := fieldType(returns)
		return Coerce(strings.Join(lines, ""), ft)
	case query.ReturnLines:
		if lines == nil {
			return []string{}, nil
		}
		return lines, nil
	case query.ReturnLineSet:
		return dedupe(lines), nil
	case query.ReturnJSON:
		text := strings.Join(lines, "\n")
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %w", query.ErrCoercion, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q needs a parse spec", query.ErrUnsupportedShape, returns)
	}
}

func (p *Parser) buckets(lines []string, spec *query.ParseSpec) (any, error) {
	if spec.Schema == nil {
		return nil, fmt.Errorf("%w: buckets without schema", query.ErrUnsupportedShape)
	}
	boundary, err := p.anchored(spec.Boundary)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0)
	for _, bucket := range Buckets(lines, boundary) {
		v, err := p.record(bucket, spec.Schema)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Buckets groups lines into segments. A line fully matching boundary opens a
// new segment and belongs to it; lines before the first boundary are dropped.
func Buckets(lines []string, boundary *regexp.Regexp) [][]string {
	var buckets [][]string
	for _, line := range lines {
		if boundary.MatchString(line) {
			buckets = append(buckets, []string{line})
			continue
		}
		if n := len(buckets); n > 0 {
			buckets[n-1] = append(buckets[n-1], line)
		}
	}
	return buckets
}

func (p *Parser) custom(lines []string, ex *query.Extractor, field *query.Field) (any, error) {
	name := ex.Handler(p.platform)
	p.mu.RLock()
	h, ok := p.handlers[name]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no handler %q for %s", query.ErrUnsupportedShape, name, p.platform)
	}
	return h(lines, field)
}

// anchored compiles pattern so it must match a whole line.
func (p *Parser) anchored(pattern string) (*regexp.Regexp, error) {
	if re, ok := p.regexps.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", query.ErrUnsupportedShape, pattern, err)
	}
	p.regexps.Store(pattern, re)
	return re, nil
}

func fieldType(k query.ReturnKind) (query.FieldType, bool) {
	switch k {
	case "", query.ReturnString:
		return query.FieldString, true
	case query.ReturnInt:
		return query.FieldInt, true
	case query.ReturnFloat:
		return query.FieldFloat, true
	case query.ReturnBool:
		return query.FieldBool, true
	default:
		return "", false
	}
}

func trimAll(lines []string) []string {
	if lines == nil {
		return nil
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
