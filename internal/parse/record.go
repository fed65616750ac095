package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/homiodev/homio-hquery/internal/query"
)

// record parses lines into one Record. When no field extracts a value the
// joined text or the raw lines are returned instead.
func (p *Parser) record(lines []string, schema *query.Schema) (any, error) {
	rec := make(Record, len(schema.Fields))
	matched := false

	if schema.Split != "" {
		ok, err := p.columns(lines, schema, rec)
		if err != nil {
			return nil, err
		}
		matched = matched || ok
	}

	for i := range schema.Fields {
		f := &schema.Fields[i]
		var (
			v   any
			ok  bool
			err error
		)
		switch f.Extract.Kind {
		case query.ExtractColumn:
			continue
		case query.ExtractLine:
			v, ok, err = p.extract(lines, &f.Extract, f.Type)
		case query.ExtractLines:
			v, ok, err = p.firstOf(lines, f.Extract.Alternatives, f.Type)
		case query.ExtractFlag:
			var set bool
			v, set = p.flag(lines, &f.Extract)
			if set {
				rec[f.Name] = v
			}
			ok = p.flagMatched(lines, &f.Extract)
			if ok {
				matched = true
			}
			continue
		case query.ExtractCustom:
			v, err = p.custom(lines, &f.Extract, f)
			ok = v != nil
		default:
			err = fmt.Errorf("%w: field %s has extractor %q", query.ErrUnsupportedShape, f.Name, f.Extract.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if ok {
			rec[f.Name] = v
			matched = true
		}
	}

	if !matched {
		if schema.AcceptsText {
			return strings.Join(lines, ""), nil
		}
		return lines, nil
	}
	return rec, nil
}

// columns assigns indexed column fields from every line split by the
// schema's split pattern. Later lines overwrite earlier ones.
func (p *Parser) columns(lines []string, schema *query.Schema, rec Record) (bool, error) {
	re, err := regexp.Compile(schema.Split)
	if err != nil {
		return false, fmt.Errorf("%w: split %q: %w", query.ErrUnsupportedShape, schema.Split, err)
	}
	matched := false
	for _, line := range lines {
		cols := re.Split(line, -1)
		for i := range schema.Fields {
			f := &schema.Fields[i]
			if f.Extract.Kind != query.ExtractColumn {
				continue
			}
			idx := f.Extract.Index
			if idx < 0 || idx >= len(cols) {
				continue
			}
			v, err := Coerce(strings.TrimSpace(cols[idx]), f.Type)
			if err != nil {
				return false, fmt.Errorf("field %s: %w", f.Name, err)
			}
			rec[f.Name] = v
			matched = true
		}
	}
	return matched, nil
}

// extract finds the first line fully matching the pattern and coerces the
// configured group with double quotes removed.
func (p *Parser) extract(lines []string, ex *query.Extractor, ft query.FieldType) (any, bool, error) {
	raw, ok, err := p.find(lines, ex)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := Coerce(strings.ReplaceAll(raw, `"`, ""), ft)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (p *Parser) firstOf(lines []string, alternatives []query.Extractor, ft query.FieldType) (any, bool, error) {
	for i := range alternatives {
		v, ok, err := p.extract(lines, &alternatives[i], ft)
		if err != nil {
			return nil, false, err
		}
		if ok && v != nil {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// flag returns !Inverse when some line's capture equals When. Without such a
// line it returns Inverse if When is set, and is unset otherwise.
func (p *Parser) flag(lines []string, ex *query.Extractor) (any, bool) {
	re, err := p.anchored(ex.Pattern)
	if err != nil {
		return nil, false
	}
	g := ex.GroupIndex()
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m != nil && g < len(m) && m[g] == ex.When {
			return !ex.Inverse, true
		}
	}
	if ex.When != "" {
		return ex.Inverse, true
	}
	return nil, false
}

func (p *Parser) flagMatched(lines []string, ex *query.Extractor) bool {
	_, ok, err := p.find(lines, ex)
	return err == nil && ok
}

func (p *Parser) find(lines []string, ex *query.Extractor) (string, bool, error) {
	re, err := p.anchored(ex.Pattern)
	if err != nil {
		return "", false, err
	}
	g := ex.GroupIndex()
	if g > re.NumSubexp() {
		return "", false, fmt.Errorf("%w: pattern %q has no group %d", query.ErrUnsupportedShape, ex.Pattern, g)
	}
	for _, line := range lines {
		// An optional group that took no part in the match is skipped.
		if m := re.FindStringSubmatchIndex(line); m != nil && m[2*g] >= 0 {
			return line[m[2*g]:m[2*g+1]], true, nil
		}
	}
	return "", false, nil
}

// Coerce converts text to the field type. An empty type means string.
func Coerce(text string, ft query.FieldType) (any, error) {
	switch ft {
	case "", query.FieldString:
		return text, nil
	case query.FieldInt:
		v, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", query.ErrCoercion, text)
		}
		return v, nil
	case query.FieldFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", query.ErrCoercion, text)
		}
		return v, nil
	case query.FieldBool:
		return parseBool(text)
	default:
		return nil, fmt.Errorf("%w: field type %q", query.ErrUnsupportedShape, ft)
	}
}

func parseBool(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not a boolean", query.ErrCoercion, text)
	}
}
