// Package catalog loads query descriptors from YAML catalog files.
//
// A catalog file declares reusable record schemas and a list of queries:
//
//	version: 1
//	schemas:
//	  network:
//	    fields:
//	      - name: ssid
//	        pattern: 'ESSID:(.*)'
//	queries:
//	  - name: wifi-scan
//	    unix: iwlist :iface scan
//	    returns: records
//	    parse:
//	      kind: buckets
//	      boundary: '.*Cell \d\d.*'
//	      schema: network
package catalog

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/homiodev/homio-hquery/internal/query"
)

// Version is the catalog file format version.
const Version = 1

// Sentinel errors for catalog operations.
var (
	ErrNotFound           = errors.New("query not found")
	ErrDuplicate          = errors.New("query defined twice")
	ErrUnknownSchema      = errors.New("unknown schema")
	ErrUnsupportedVersion = errors.New("unsupported catalog version")
	ErrLockTimeout        = errors.New("failed to acquire catalog lock")
)

// File is the on-disk catalog format.
type File struct {
	Version int               `yaml:"version"`
	Schemas map[string]Schema `yaml:"schemas,omitempty"`
	Queries []Query           `yaml:"queries"`
}

// Query is one query definition.
type Query struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Unix        Strings  `yaml:"unix,omitempty"`
	Windows     Strings  `yaml:"windows,omitempty"`
	URL         string   `yaml:"url,omitempty"`
	Dir         string   `yaml:"dir,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	CacheTTL    Duration `yaml:"cache_ttl,omitempty"`
	StreamGrace Duration `yaml:"stream_grace,omitempty"`
	Returns     string   `yaml:"returns,omitempty"`
	Parse       *Parse   `yaml:"parse,omitempty"`
	Mapping     string   `yaml:"mapping,omitempty"`

	IgnoreOnError  bool    `yaml:"ignore_on_error,omitempty"`
	ValueOnError   string  `yaml:"value_on_error,omitempty"`
	ValueOnDisable any     `yaml:"value_on_disable,omitempty"`
	RedirectErrors bool    `yaml:"redirect_errors,omitempty"`
	PrintOutput    bool    `yaml:"print_output,omitempty"`
	Errors         *Errors `yaml:"errors,omitempty"`
}

// Parse is the parse section of a query.
type Parse struct {
	Kind     string     `yaml:"kind"`
	Boundary string     `yaml:"boundary,omitempty"`
	Schema   *SchemaRef `yaml:"schema,omitempty"`
	Extract  *Extractor `yaml:"extract,omitempty"`
}

// Schema is a record layout.
type Schema struct {
	Fields      []Field `yaml:"fields"`
	Split       string  `yaml:"split,omitempty"`
	AcceptsText bool    `yaml:"accepts_text,omitempty"`
}

// SchemaRef is either the name of a shared schema or an inline schema.
type SchemaRef struct {
	Name   string
	Inline *Schema
}

// Field is one record field.
type Field struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type,omitempty"`
	Extractor `yaml:",inline"`
}

// Extractor selects a value from output lines. An empty kind is inferred:
// custom when a handler is set, flag when "when" is set, line otherwise.
type Extractor struct {
	Kind         string      `yaml:"kind,omitempty"`
	Pattern      string      `yaml:"pattern,omitempty"`
	Group        *int        `yaml:"group,omitempty"`
	Alternatives []Extractor `yaml:"alternatives,omitempty"`
	When         string      `yaml:"when,omitempty"`
	Inverse      bool        `yaml:"inverse,omitempty"`
	Handler      *Handler    `yaml:"handler,omitempty"`
	Index        int         `yaml:"index,omitempty"`
}

// Handler names a custom parse handler per platform.
type Handler struct {
	Unix    string `yaml:"unix,omitempty"`
	Windows string `yaml:"windows,omitempty"`
}

// Errors is the error policy of a query.
type Errors struct {
	Rules          []Rule `yaml:"rules,omitempty"`
	DefaultMessage string `yaml:"default_message,omitempty"`
	SuppressLog    bool   `yaml:"suppress_log,omitempty"`
	HardFail       bool   `yaml:"hard_fail,omitempty"`
}

// Rule maps an exact error line to a message.
type Rule struct {
	Trigger string `yaml:"trigger"`
	Message string `yaml:"message"`
}

// Strings accepts either a single string or a list.
type Strings []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = Strings{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Strings) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// Duration accepts integer seconds or a Go duration string.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		return nil
	}
	if secs, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *SchemaRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Name = node.Value
		return nil
	}
	r.Inline = &Schema{}
	return node.Decode(r.Inline)
}

// MarshalYAML implements yaml.Marshaler.
func (r SchemaRef) MarshalYAML() (any, error) {
	if r.Inline != nil {
		return r.Inline, nil
	}
	return r.Name, nil
}

// Catalog is a decoded catalog file.
type Catalog struct {
	// Source names where the catalog came from.
	Source      string
	Descriptors []query.Descriptor
}

// Find returns the descriptor named name.
func (c *Catalog) Find(name string) (query.Descriptor, error) {
	for _, d := range c.Descriptors {
		if d.Name == name {
			return d, nil
		}
	}
	return query.Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Names returns the sorted query names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Descriptors))
	for _, d := range c.Descriptors {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Decode reads a catalog file. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{Version: Version}, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if f.Version == 0 {
		f.Version = Version
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	return &f, nil
}

// Load decodes a catalog from r and converts it to descriptors.
func Load(r io.Reader, source string) (*Catalog, error) {
	f, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	descs, err := f.Descriptors()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &Catalog{Source: source, Descriptors: descs}, nil
}

// Descriptors converts every query of the file.
func (f *File) Descriptors() ([]query.Descriptor, error) {
	seen := make(map[string]bool, len(f.Queries))
	descs := make([]query.Descriptor, 0, len(f.Queries))
	for i := range f.Queries {
		q := &f.Queries[i]
		if seen[q.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, q.Name)
		}
		seen[q.Name] = true

		d, err := f.descriptor(q)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Name, err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func (f *File) descriptor(q *Query) (query.Descriptor, error) {
	d := query.Descriptor{
		Name:        q.Name,
		Description: q.Description,
		Commands: query.Commands{
			Unix:    q.Unix,
			Windows: q.Windows,
		},
		URL:                    q.URL,
		Dir:                    q.Dir,
		Timeout:                time.Duration(q.Timeout),
		CacheTTL:               time.Duration(q.CacheTTL),
		StreamGrace:            time.Duration(q.StreamGrace),
		Returns:                query.ReturnKind(q.Returns),
		Mapping:                q.Mapping,
		IgnoreOnError:          q.IgnoreOnError,
		ValueOnError:           q.ValueOnError,
		ValueOnDisable:         q.ValueOnDisable,
		RedirectErrorsToInputs: q.RedirectErrors,
		PrintOutput:            q.PrintOutput,
	}

	if q.Errors != nil {
		policy := &query.ErrorPolicy{
			DefaultMessage: q.Errors.DefaultMessage,
			SuppressLog:    q.Errors.SuppressLog,
			HardFail:       q.Errors.HardFail,
		}
		for _, r := range q.Errors.Rules {
			policy.Rules = append(policy.Rules, query.Rule{Trigger: r.Trigger, Message: r.Message})
		}
		d.Errors = policy
	}

	if q.Parse != nil {
		spec, err := f.parseSpec(q.Parse)
		if err != nil {
			return query.Descriptor{}, err
		}
		d.Parse = spec
	}
	return d, nil
}

func (f *File) parseSpec(p *Parse) (*query.ParseSpec, error) {
	spec := &query.ParseSpec{
		Kind:     query.SpecKind(p.Kind),
		Boundary: p.Boundary,
	}

	if p.Schema != nil {
		s := p.Schema.Inline
		name := p.Schema.Name
		if s == nil {
			shared, ok := f.Schemas[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
			}
			s = &shared
		}
		spec.Schema = s.schema(name)
	}

	if p.Extract != nil {
		ex := p.Extract.extractor(defaultKind(spec.Kind))
		spec.Extract = &ex
	}
	return spec, nil
}

func (s *Schema) schema(name string) *query.Schema {
	out := &query.Schema{
		Name:        name,
		Split:       s.Split,
		AcceptsText: s.AcceptsText,
	}
	for _, fld := range s.Fields {
		out.Fields = append(out.Fields, query.Field{
			Name:    fld.Name,
			Type:    query.FieldType(fld.Type),
			Extract: fld.Extractor.extractor(""),
		})
	}
	return out
}

func (e *Extractor) extractor(fallback query.ExtractKind) query.Extractor {
	kind := query.ExtractKind(e.Kind)
	if kind == "" {
		kind = e.inferKind(fallback)
	}
	ex := query.Extractor{
		Kind:    kind,
		Pattern: e.Pattern,
		Group:   e.Group,
		When:    e.When,
		Inverse: e.Inverse,
		Index:   e.Index,
	}
	if e.Handler != nil {
		ex.Unix = e.Handler.Unix
		ex.Windows = e.Handler.Windows
	}
	for i := range e.Alternatives {
		ex.Alternatives = append(ex.Alternatives, e.Alternatives[i].extractor(query.ExtractLine))
	}
	return ex
}

func (e *Extractor) inferKind(fallback query.ExtractKind) query.ExtractKind {
	switch {
	case fallback != "":
		return fallback
	case e.Handler != nil:
		return query.ExtractCustom
	case e.When != "":
		return query.ExtractFlag
	case len(e.Alternatives) > 0:
		return query.ExtractLines
	default:
		return query.ExtractLine
	}
}

func defaultKind(k query.SpecKind) query.ExtractKind {
	switch k {
	case query.SpecFlag:
		return query.ExtractFlag
	case query.SpecCustom:
		return query.ExtractCustom
	default:
		return ""
	}
}

// Merge flattens catalogs in order. A later definition of a name replaces an
// earlier one, so user catalogs can override built-in queries.
func Merge(catalogs ...*Catalog) []query.Descriptor {
	index := make(map[string]int)
	var out []query.Descriptor
	for _, c := range catalogs {
		if c == nil {
			continue
		}
		for _, d := range c.Descriptors {
			if i, ok := index[d.Name]; ok {
				out[i] = d
				continue
			}
			index[d.Name] = len(out)
			out = append(out, d)
		}
	}
	return out
}
