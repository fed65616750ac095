package query

// SpecKind selects the parsing strategy for a descriptor.
type SpecKind string

// Parse strategies.
const (
	// SpecScalar coerces the joined output to the return kind.
	SpecScalar SpecKind = "scalar"
	// SpecBuckets splits output on a boundary line and parses each bucket
	// into a record.
	SpecBuckets SpecKind = "buckets"
	// SpecRecord parses the whole output into one record.
	SpecRecord SpecKind = "record"
	// SpecLine extracts a single value with a line extractor.
	SpecLine SpecKind = "line"
	// SpecFlag extracts a boolean flag.
	SpecFlag SpecKind = "flag"
	// SpecCustom delegates to a registered handler.
	SpecCustom SpecKind = "custom"
)

// ParseSpec describes how output lines become a typed result.
type ParseSpec struct {
	Kind SpecKind `validate:"required,oneof=scalar buckets record line flag custom"`

	// Boundary is the full-line regex opening a new bucket.
	Boundary string `validate:"required_if=Kind buckets"`

	// Schema is the record layout for buckets and record specs.
	Schema *Schema

	// Extract is used by line, flag and custom specs.
	Extract *Extractor
}

// ExtractKind selects how a single value is pulled from output lines.
type ExtractKind string

// Extractor kinds.
const (
	ExtractLine   ExtractKind = "line"
	ExtractLines  ExtractKind = "lines"
	ExtractFlag   ExtractKind = "flag"
	ExtractCustom ExtractKind = "custom"
	ExtractColumn ExtractKind = "column"
)

// Extractor pulls one value from output lines.
type Extractor struct {
	Kind ExtractKind `validate:"required,oneof=line lines flag custom column"`

	// Pattern must match a whole line.
	Pattern string

	// Group is the capture group to read. Nil means group 1.
	Group *int

	// Alternatives are tried in order by lines extractors.
	Alternatives []Extractor

	// When and Inverse configure flag extractors.
	When    string
	Inverse bool

	// Unix and Windows name the custom handler per platform.
	Unix    string
	Windows string

	// Index is the column read by column extractors.
	Index int `validate:"gte=0"`
}

// GroupIndex returns the capture group to read.
func (e *Extractor) GroupIndex() int {
	if e.Group == nil {
		return 1
	}
	return *e.Group
}

// Handler returns the custom handler name for the platform.
func (e *Extractor) Handler(p Platform) string {
	if p == PlatformWindows {
		return e.Windows
	}
	return e.Unix
}

// FieldType is the primitive type a field value is coerced to.
type FieldType string

// Field types.
const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
)

// Field is one named value in a record.
type Field struct {
	Name    string    `validate:"required"`
	Type    FieldType `validate:"omitempty,oneof=string int float bool"`
	Extract Extractor
}

// Schema is the declarative record layout.
type Schema struct {
	Name   string
	Fields []Field `validate:"dive"`

	// Split is a regex splitting each line into columns for column fields.
	Split string

	// AcceptsText makes a record with no matched field fall back to the
	// joined output text instead of the raw lines.
	AcceptsText bool
}
