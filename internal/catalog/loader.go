package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns the catalogs shipped with hquery.
func Builtin() ([]*Catalog, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin catalogs: %w", err)
	}

	var out []*Catalog
	for _, e := range entries {
		name := path.Join("builtin", e.Name())
		f, err := builtinFS.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open builtin catalog: %w", err)
		}
		cat, err := Load(f, name)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

// LoadFile loads one catalog file under a shared lock.
func LoadFile(ctx context.Context, path string) (*Catalog, error) {
	return NewStore(path).Read(ctx)
}

// LoadPaths loads catalogs from files and directories. Directories are
// searched for *.yaml and *.yml files, sorted by name.
func LoadPaths(ctx context.Context, paths []string) ([]*Catalog, error) {
	var out []*Catalog
	for _, p := range paths {
		files, err := expand(p)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			cat, err := LoadFile(ctx, file)
			if err != nil {
				return nil, err
			}
			out = append(out, cat)
		}
	}
	return out, nil
}

func expand(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat catalog path: %w", err)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isCatalogFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(p, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isCatalogFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
