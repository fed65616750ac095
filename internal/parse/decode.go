package parse

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode copies a parsed value (a Record, a slice of records, or a scalar)
// into out, which must be a pointer. Field names match the "hquery" struct
// tag or, case-insensitively, the struct field name.
func Decode(value, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "hquery",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
