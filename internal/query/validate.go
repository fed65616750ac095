package query

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the descriptor for structural errors. All regular
// expressions are compiled so bad patterns fail at registration time.
func (d *Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, d.Name, err)
	}
	if d.URL == "" && len(d.Commands.Unix) == 0 && len(d.Commands.Windows) == 0 {
		return fmt.Errorf("%w: %s: no command templates or url", ErrInvalidDescriptor, d.Name)
	}
	if d.Parse != nil {
		if err := d.Parse.validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, d.Name, err)
		}
	}
	if err := d.checkShape(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, d.Name, err)
	}
	if d.Errors != nil {
		if err := validate.Struct(d.Errors); err != nil {
			return fmt.Errorf("%w: %s: error policy: %w", ErrInvalidDescriptor, d.Name, err)
		}
	}
	return nil
}

func (d *Descriptor) checkShape() error {
	if d.Parse == nil {
		if d.Returns == ReturnRecord || d.Returns == ReturnRecords {
			return fmt.Errorf("%w: %s requires a parse schema", ErrUnsupportedShape, d.Returns)
		}
		return nil
	}
	switch d.Parse.Kind {
	case SpecBuckets:
		if d.Returns != ReturnRecords {
			return fmt.Errorf("%w: buckets require records return, got %q", ErrUnsupportedShape, d.Returns)
		}
	case SpecRecord:
		if d.Returns != ReturnRecord {
			return fmt.Errorf("%w: record spec requires record return, got %q", ErrUnsupportedShape, d.Returns)
		}
	case SpecFlag:
		if d.Returns != ReturnBool {
			return fmt.Errorf("%w: flag spec requires bool return, got %q", ErrUnsupportedShape, d.Returns)
		}
	case SpecLine:
		if !d.Returns.Scalar() {
			return fmt.Errorf("%w: line spec requires a scalar return, got %q", ErrUnsupportedShape, d.Returns)
		}
	}
	return nil
}

func (s *ParseSpec) validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.Boundary != "" {
		if _, err := regexp.Compile(s.Boundary); err != nil {
			return fmt.Errorf("boundary: %w", err)
		}
	}
	switch s.Kind {
	case SpecBuckets, SpecRecord:
		if s.Schema == nil {
			return errors.New("schema is required")
		}
		return s.Schema.validate()
	case SpecLine, SpecFlag, SpecCustom:
		if s.Extract == nil {
			return errors.New("extractor is required")
		}
		return s.Extract.validate()
	}
	return nil
}

func (s *Schema) validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.Split != "" {
		if _, err := regexp.Compile(s.Split); err != nil {
			return fmt.Errorf("schema %s split: %w", s.Name, err)
		}
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Extract.Kind == ExtractColumn && s.Split == "" {
			return fmt.Errorf("field %s: column extractor needs a split pattern", f.Name)
		}
		if err := f.Extract.validate(); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func (e *Extractor) validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	switch e.Kind {
	case ExtractLine, ExtractFlag:
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
		if g := e.GroupIndex(); g < 0 || g > re.NumSubexp() {
			return fmt.Errorf("pattern %q has no group %d", e.Pattern, g)
		}
	case ExtractLines:
		if len(e.Alternatives) == 0 {
			return errors.New("lines extractor needs alternatives")
		}
		for i := range e.Alternatives {
			if e.Alternatives[i].Kind != ExtractLine {
				return errors.New("lines alternatives must be line extractors")
			}
			if err := e.Alternatives[i].validate(); err != nil {
				return err
			}
		}
	case ExtractCustom:
		if e.Unix == "" && e.Windows == "" {
			return errors.New("custom extractor needs a handler name")
		}
	}
	return nil
}
