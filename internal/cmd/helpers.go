package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/template"
)

// parseArgs turns command-line words into call arguments. A word of the form
// name=value is a named argument; anything else is positional.
func parseArgs(words []string) []query.Arg {
	args := make([]query.Arg, 0, len(words))
	for _, w := range words {
		name, value, ok := strings.Cut(w, "=")
		if ok && isPlaceholderName(name) {
			args = append(args, query.Named(name, value))
			continue
		}
		args = append(args, query.Positional(w))
	}
	return args
}

func isPlaceholderName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c == '_' || c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// boundPlaceholders reports which placeholders of d already have a value.
// Positional arguments bind the leftover placeholders in order.
func boundPlaceholders(d *query.Descriptor, args []query.Arg) (names []string, bound map[string]bool) {
	tmpls := append([]string{d.URL, d.Dir}, d.Commands.Unix...)
	tmpls = append(tmpls, d.Commands.Windows...)
	names = template.Placeholders(tmpls...)

	bound = make(map[string]bool)
	positional := 0
	for _, a := range args {
		if a.Name != "" {
			bound[a.Name] = true
		} else {
			positional++
		}
	}
	for _, n := range names {
		if positional == 0 {
			break
		}
		if !bound[n] {
			bound[n] = true
			positional--
		}
	}
	return names, bound
}

// writeValue prints a query result. Scalars and lines are printed as plain
// text, composite values as YAML, and everything as JSON when asJSON is set.
func writeValue(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return nil
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, val)
		return err
	case []string:
		for _, line := range val {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case int, float64, bool:
		_, err := fmt.Fprintln(w, val)
		return err
	default:
		out, err := yaml.Marshal(val)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		_, err = w.Write(out)
		return err
	}
}
