// Package env provides the key lookups used to expand ${name} tokens in
// command templates.
package env

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"github.com/spf13/viper"
)

// SecretPrefix marks keys resolved from the OS keyring.
const SecretPrefix = "secret."

// Lookup returns the value for key and whether it was found.
type Lookup func(key string) (string, bool)

// OS looks keys up in the process environment.
func OS() Lookup {
	return os.LookupEnv
}

// FromMap looks keys up in a fixed map.
func FromMap(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// FromViper looks keys up under prefix in a viper instance. Viper keys are
// case-insensitive.
func FromViper(v *viper.Viper, prefix string) Lookup {
	return func(key string) (string, bool) {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if !v.IsSet(full) {
			return "", false
		}
		return v.GetString(full), true
	}
}

// FromKeyring resolves keys starting with SecretPrefix from the keyring.
// Other keys are never found.
func FromKeyring(kr keyring.Keyring) Lookup {
	return func(key string) (string, bool) {
		name, ok := strings.CutPrefix(key, SecretPrefix)
		if !ok || name == "" {
			return "", false
		}
		item, err := kr.Get(name)
		if err != nil {
			return "", false
		}
		return string(item.Data), true
	}
}

// Chain returns the first value found by lookups, in order.
func Chain(lookups ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// ErrKeyringUnavailable is returned when no keyring backend can be opened.
var ErrKeyringUnavailable = errors.New("keyring unavailable")

// OpenKeyring opens the system keyring for service.
func OpenKeyring(service string) (keyring.Keyring, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName: service,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyringUnavailable, err)
	}
	return kr, nil
}
