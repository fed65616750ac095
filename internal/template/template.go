// Package template resolves command templates into concrete command strings.
//
// A template may contain argument placeholders (":name"), environment tokens
// ("${KEY}" or "${KEY:default}") and opaque tokens such as "$INSTALL" that
// the host supplies. Placeholders that no argument fills are left verbatim.
package template

import (
	"regexp"
	"sort"
	"strings"

	"github.com/homiodev/homio-hquery/internal/env"
	"github.com/homiodev/homio-hquery/internal/query"
)

// KeySeparator joins resolved command parts into a cache key.
const KeySeparator = ", "

// Mask stands in for secret values in display strings.
const Mask = "***"

var (
	envToken    = regexp.MustCompile(`\$\{[^}]*\}`)
	placeholder = regexp.MustCompile(`:[A-Za-z_][A-Za-z0-9_]*`)
)

// Resolver expands templates using an environment lookup and a fixed
// token table.
type Resolver struct {
	lookup  env.Lookup
	display env.Lookup
	tokens  map[string]string
	order  []string
}

// New creates a resolver. A nil lookup resolves every environment token to
// its default.
func New(lookup env.Lookup, tokens map[string]string) *Resolver {
	order := make([]string, 0, len(tokens))
	for k := range tokens {
		order = append(order, k)
	}
	// Longest first so "$UPDATE" expands before a "$UP" prefix could.
	sort.Slice(order, func(i, j int) bool {
		if len(order[i]) != len(order[j]) {
			return len(order[i]) > len(order[j])
		}
		return order[i] < order[j]
	})
	return &Resolver{lookup: lookup, display: masked(lookup), tokens: tokens, order: order}
}

// masked wraps lookup so that found secret keys yield Mask.
func masked(lookup env.Lookup) env.Lookup {
	if lookup == nil {
		return nil
	}
	return func(key string) (string, bool) {
		v, ok := lookup(key)
		if ok && strings.HasPrefix(key, env.SecretPrefix) {
			return Mask, true
		}
		return v, ok
	}
}

// Resolve substitutes args, then environment tokens, then opaque tokens.
func (r *Resolver) Resolve(tmpl string, args []query.Arg) string {
	return r.resolve(tmpl, args, r.lookup)
}

// Display resolves tmpl like Resolve but masks values of secret keys. The
// result is for logs and messages only.
func (r *Resolver) Display(tmpl string, args []query.Arg) string {
	return r.resolve(tmpl, args, r.display)
}

// ResolveAll resolves each template in order.
func (r *Resolver) ResolveAll(tmpls []string, args []query.Arg) []string {
	return resolveAll(tmpls, args, r.Resolve)
}

// DisplayAll is ResolveAll with secret values masked.
func (r *Resolver) DisplayAll(tmpls []string, args []query.Arg) []string {
	return resolveAll(tmpls, args, r.Display)
}

func (r *Resolver) resolve(tmpl string, args []query.Arg, lookup env.Lookup) string {
	out := ReplaceArgs(tmpl, args)
	out = ExpandEnv(out, lookup)
	return r.expandTokens(out)
}

func resolveAll(tmpls []string, args []query.Arg, resolve func(string, []query.Arg) string) []string {
	parts := make([]string, 0, len(tmpls))
	for _, t := range tmpls {
		parts = append(parts, resolve(t, args))
	}
	return parts
}

func (r *Resolver) expandTokens(s string) string {
	for _, k := range r.order {
		s = strings.ReplaceAll(s, k, r.tokens[k])
	}
	return s
}

// ReplaceArgs fills placeholders from args. A named argument replaces every
// ":name" occurrence; an unnamed one fills the first remaining placeholder.
// A named value is not rescanned for its own placeholder.
func ReplaceArgs(tmpl string, args []query.Arg) string {
	out := tmpl
	for _, a := range args {
		if a.Name != "" {
			out = replaceNamed(out, a.Name, a.String())
			continue
		}
		if loc := findPlaceholder(out, 0, ""); loc != nil {
			out = out[:loc[0]] + a.String() + out[loc[1]:]
		}
	}
	return out
}

func replaceNamed(s, name, value string) string {
	var b strings.Builder
	from := 0
	for {
		loc := findPlaceholder(s, from, name)
		if loc == nil {
			b.WriteString(s[from:])
			return b.String()
		}
		b.WriteString(s[from:loc[0]])
		b.WriteString(value)
		from = loc[1]
	}
}

// findPlaceholder returns the position of the first placeholder at or after
// from, matching name when it is not empty. Placeholders inside ${...}
// tokens, POSIX bracket classes such as [:digit:], and those glued to a
// preceding word character are skipped.
func findPlaceholder(s string, from int, name string) []int {
	spans := envToken.FindAllStringIndex(s, -1)
	for _, loc := range placeholder.FindAllStringIndex(s[from:], -1) {
		start, end := loc[0]+from, loc[1]+from
		if name != "" && s[start+1:end] != name {
			continue
		}
		if start > 0 && isWordByte(s[start-1]) {
			continue
		}
		if inside(spans, start) || isBracketClass(s, start, end) {
			continue
		}
		return []int{start, end}
	}
	return nil
}

func inside(spans [][]int, pos int) bool {
	for _, sp := range spans {
		if pos >= sp[0] && pos < sp[1] {
			return true
		}
	}
	return false
}

func isBracketClass(s string, start, end int) bool {
	return start > 0 && s[start-1] == '[' && strings.HasPrefix(s[end:], ":]")
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// ExpandEnv replaces ${KEY} and ${KEY:default} tokens. Missing keys without a
// default become the empty string.
func ExpandEnv(s string, lookup env.Lookup) string {
	return envToken.ReplaceAllStringFunc(s, func(tok string) string {
		body := tok[2 : len(tok)-1]
		key, def, _ := strings.Cut(body, ":")
		if lookup != nil {
			if v, ok := lookup(key); ok {
				return v
			}
		}
		return def
	})
}

// Placeholders lists the distinct named placeholders in templates, in order
// of first appearance.
func Placeholders(tmpls ...string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range tmpls {
		from := 0
		for {
			loc := findPlaceholder(t, from, "")
			if loc == nil {
				break
			}
			name := t[loc[0]+1 : loc[1]]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			from = loc[1]
		}
	}
	return names
}

// Key joins resolved command parts into the cache key.
func Key(parts []string) string {
	return strings.Join(parts, KeySeparator)
}
