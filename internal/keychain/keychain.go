// Package keychain stores the secrets that command templates read as
// ${secret.NAME}, using the system keyring.
package keychain

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ErrNotFound is returned when a secret is not in the keyring.
var ErrNotFound = errors.New("secret not found in keyring")

// Keychain provides secure secret storage.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/keychain.go . Keychain
type Keychain interface {
	// Set stores a secret, replacing any previous value.
	Set(name, secret string) error

	// Get retrieves a secret.
	// Returns ErrNotFound if the secret does not exist.
	Get(name string) (string, error)

	// Delete removes a secret.
	// Returns nil if the secret does not exist.
	Delete(name string) error
}

type keychain struct {
	ring    keyring.Keyring
	service string
}

// New opens the keyring for service.
func New(service string) (Keychain, error) {
	ring, err := keyring.Open(keyring.Config{ServiceName: service})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return Wrap(ring, service), nil
}

// Wrap adapts an open keyring.
func Wrap(ring keyring.Keyring, service string) Keychain {
	return &keychain{ring: ring, service: service}
}

func (k *keychain) Set(name, secret string) error {
	return k.ring.Set(keyring.Item{
		Key:   name,
		Data:  []byte(secret),
		Label: k.service + " - " + name,
	})
}

func (k *keychain) Get(name string) (string, error) {
	item, err := k.ring.Get(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (k *keychain) Delete(name string) error {
	err := k.ring.Remove(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
