package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/homiodev/homio-hquery/internal/query"
)

const (
	lockTimeout = 5 * time.Second
	fileMode    = 0644
	dirMode     = 0755
)

// Editor reads and changes the query definitions of a user catalog.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/editor.go . Editor
type Editor interface {
	// Path returns the catalog file path.
	Path() string

	// Queries returns the raw query definitions.
	Queries(ctx context.Context) ([]Query, error)

	// Add appends q. Returns ErrDuplicate if a query with the same name
	// exists.
	Add(ctx context.Context, q Query) error

	// Remove deletes the query named name.
	// Returns ErrNotFound if no such query exists.
	Remove(ctx context.Context, name string) error
}

var _ Editor = (*Store)(nil)

// Store edits a user catalog file. Access is serialized with a file lock so
// concurrent hquery processes see whole files.
type Store struct {
	path string
	mu   sync.RWMutex
}

// NewStore creates a store for the catalog file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the catalog file path.
func (s *Store) Path() string { return s.path }

// Read loads the catalog. A missing file is an error.
func (s *Store) Read(ctx context.Context) (*Catalog, error) {
	var cat *Catalog
	err := s.withSharedLock(ctx, func(f *File) error {
		descs, err := f.Descriptors()
		if err != nil {
			return fmt.Errorf("%s: %w", s.path, err)
		}
		cat = &Catalog{Source: s.path, Descriptors: descs}
		return nil
	})
	return cat, err
}

// Queries returns the raw query definitions.
func (s *Store) Queries(ctx context.Context) ([]Query, error) {
	var out []Query
	err := s.withSharedLock(ctx, func(f *File) error {
		out = append(out, f.Queries...)
		return nil
	})
	return out, err
}

// Add appends q, creating the file when needed. The query must be valid.
func (s *Store) Add(ctx context.Context, q Query) error {
	return s.withExclusiveLock(ctx, func(f *File) error {
		for _, existing := range f.Queries {
			if existing.Name == q.Name {
				return fmt.Errorf("%w: %s", ErrDuplicate, q.Name)
			}
		}

		d, err := f.descriptor(&q)
		if err != nil {
			return fmt.Errorf("query %q: %w", q.Name, err)
		}
		if d.Returns == "" {
			d.Returns = query.ReturnString
		}
		if err := d.Validate(); err != nil {
			return err
		}

		f.Queries = append(f.Queries, q)
		return nil
	})
}

// Remove deletes the query named name.
func (s *Store) Remove(ctx context.Context, name string) error {
	return s.withExclusiveLock(ctx, func(f *File) error {
		for i := range f.Queries {
			if f.Queries[i].Name == name {
				f.Queries = append(f.Queries[:i], f.Queries[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	})
}

// withSharedLock executes fn with a shared (read) lock.
func (s *Store) withSharedLock(ctx context.Context, fn func(*File) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.openLocked(ctx, false)
	if err != nil {
		return err
	}
	defer s.unlockAndClose(file)

	f, err := Decode(file)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	return fn(f)
}

// withExclusiveLock executes fn with an exclusive (write) lock.
// Changes made by fn are persisted to disk.
func (s *Store) withExclusiveLock(ctx context.Context, fn func(*File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	file, err := s.openLocked(ctx, true)
	if err != nil {
		return err
	}
	defer s.unlockAndClose(file)

	f, err := Decode(file)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.save(f)
}

// openLocked opens the catalog file and locks it. Writers replace the file
// by rename, so the lock is retaken when the path moved to a new file while
// waiting.
func (s *Store) openLocked(ctx context.Context, exclusive bool) (*os.File, error) {
	for {
		var (
			file *os.File
			err  error
		)
		if exclusive {
			file, err = os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, fileMode)
		} else {
			file, err = os.Open(s.path)
		}
		if err != nil {
			return nil, fmt.Errorf("open catalog file: %w", err)
		}

		if err := acquireLock(ctx, file, exclusive); err != nil {
			file.Close()
			return nil, err
		}

		held, err := file.Stat()
		if err != nil {
			s.unlockAndClose(file)
			return nil, fmt.Errorf("stat catalog file: %w", err)
		}
		current, err := os.Stat(s.path)
		if err == nil && os.SameFile(held, current) {
			return file, nil
		}
		s.unlockAndClose(file)
		if err != nil && !(exclusive && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("stat catalog file: %w", err)
		}
	}
}

func (s *Store) unlockAndClose(file *os.File) {
	unlock(file)
	file.Close()
}

// acquireLock retries a non-blocking lock until lockTimeout.
func acquireLock(ctx context.Context, file *os.File, exclusive bool) error {
	deadline := time.Now().Add(lockTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		locked, err := tryLock(file, exclusive)
		if err != nil {
			return fmt.Errorf("acquire file lock: %w", err)
		}
		if locked {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// save writes the catalog to disk atomically.
func (s *Store) save(f *File) error {
	f.Version = Version

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "catalog-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, &buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, fileMode); err != nil {
		return fmt.Errorf("chmod catalog file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename catalog file: %w", err)
	}

	tmpPath = ""
	return nil
}
