// Package cmd implements the hquery CLI commands using Cobra.
// It provides commands for running catalog queries, watching their values,
// and managing catalogs and configuration.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/homiodev/homio-hquery/internal/cache"
	"github.com/homiodev/homio-hquery/internal/catalog"
	"github.com/homiodev/homio-hquery/internal/config"
	"github.com/homiodev/homio-hquery/internal/engine"
	"github.com/homiodev/homio-hquery/internal/env"
	"github.com/homiodev/homio-hquery/internal/metrics"
	"github.com/homiodev/homio-hquery/internal/slogger"
	"github.com/homiodev/homio-hquery/internal/template"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader gives access to the raw configuration and template variables.
var configLoader *config.Loader

var rootCmd = &cobra.Command{
	Use:   "hquery",
	Short: "Run declarative system queries",
	Long: `hquery runs named queries declared in YAML catalogs.

Each query wraps an OS command or an HTTP request and declares how its
output is parsed: a string, a number, a list of lines, or typed records.
Results are cached per resolved command for the query's cache TTL.

Built-in queries cover system facts, networking, and package management.
Your own queries live in ~/.config/hquery/queries.yaml.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringSlice("catalog", nil, "additional catalog file or directory (repeatable)")
	rootCmd.PersistentFlags().Bool("offline", false, "return disabled values without running commands")
	rootCmd.PersistentFlags().Bool("no-builtin", false, "do not load the built-in catalog")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config validation failed: %v\n", err)
	}

	appConfig = cfg
	configLoader = loader
}

// setup builds the engine and registry and stores them in the command context.
func setup(cmd *cobra.Command, _ []string) error {
	if appConfig == nil || configLoader == nil {
		return errors.New("configuration not loaded")
	}
	cfg := appConfig

	verbosity, err := cmd.Flags().GetCount("verbose")
	if err != nil {
		return fmt.Errorf("get verbose flag: %w", err)
	}
	verbosity = max(verbosity, cfg.Log.Verbosity)

	logger := slogger.New(slogger.Config{
		Verbosity:  verbosity,
		Timestamps: cmd.Name() == "watch",
	})
	ctx := slogger.WithLogger(cmd.Context(), logger)

	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Engine.Offline = true
	}
	if noBuiltin, _ := cmd.Flags().GetBool("no-builtin"); noBuiltin {
		cfg.Catalog.Builtin = false
	}
	extra, err := cmd.Flags().GetStringSlice("catalog")
	if err != nil {
		return fmt.Errorf("get catalog flag: %w", err)
	}

	m := metrics.New(metrics.Config{
		Enabled:   cfg.Metrics.Enabled || cmd.Flags().Changed("metrics-addr"),
		Namespace: cfg.Metrics.Namespace,
	})

	eng, err := newEngine(ctx, cfg, configLoader, m)
	if err != nil {
		return err
	}
	reg := engine.NewRegistry(eng)

	paths := catalogPaths(cfg, extra)
	if err := loadCatalogs(ctx, reg, cfg.Catalog.Builtin, paths); err != nil {
		return err
	}
	logger.Debug("catalogs loaded", "paths", paths, "queries", reg.Len())

	ctx = WithConfig(ctx, cfg)
	ctx = WithLoader(ctx, configLoader)
	ctx = WithRegistry(ctx, reg)
	ctx = WithMetrics(ctx, m)
	cmd.SetContext(ctx)

	return nil
}

// newEngine wires the cache, variable lookup, and package tokens into an engine.
func newEngine(ctx context.Context, cfg *config.Config, loader *config.Loader, m *metrics.Metrics) (*engine.Engine, error) {
	policy, err := cache.ParsePolicy(cfg.Cache.StorePolicy)
	if err != nil {
		return nil, err
	}

	lookups := []env.Lookup{env.OS(), env.FromViper(loader.Viper(), "vars")}
	if cfg.Secrets.Enabled {
		kr, err := env.OpenKeyring(cfg.Secrets.Service)
		if err != nil {
			slogger.L(ctx).Warn("secrets disabled", "error", err)
		} else {
			lookups = append(lookups, env.FromKeyring(kr))
		}
	}

	return engine.New(engine.Options{
		Cache:          cache.New(cache.WithPolicy(policy), cache.WithObserver(m)),
		Lookup:         env.Chain(lookups...),
		Tokens:         template.PackageTokens(cfg.Packages.Manager),
		Observer:       m,
		DefaultTimeout: cfg.Engine.DefaultTimeout,
		StreamGrace:    cfg.Engine.StreamGrace,
		StopTimeout:    cfg.Engine.StopTimeout,
		Offline:        cfg.Engine.Offline,
		NoCache:        !cfg.Cache.Enabled,
	}), nil
}

// catalogPath is a catalog location and whether it may be absent.
type catalogPath struct {
	path     string
	optional bool
}

// catalogPaths lists configured catalogs, which may be missing, followed by
// the ones given on the command line, which must exist.
func catalogPaths(cfg *config.Config, extra []string) []catalogPath {
	var out []catalogPath
	for _, p := range cfg.Catalog.Paths {
		out = append(out, catalogPath{path: p, optional: true})
	}
	for _, p := range extra {
		out = append(out, catalogPath{path: p})
	}
	return out
}

// loadCatalogs replaces the registry contents with the merged catalogs.
// Later catalogs override earlier ones by query name.
func loadCatalogs(ctx context.Context, reg *engine.Registry, builtin bool, paths []catalogPath) error {
	var cats []*catalog.Catalog
	if builtin {
		b, err := catalog.Builtin()
		if err != nil {
			return err
		}
		cats = append(cats, b...)
	}

	for _, p := range paths {
		loaded, err := catalog.LoadPaths(ctx, []string{p.path})
		if err != nil {
			if p.optional && errors.Is(err, fs.ErrNotExist) {
				slogger.L(ctx).Debug("catalog not found", "path", p.path)
				continue
			}
			return fmt.Errorf("load catalog: %w", err)
		}
		cats = append(cats, loaded...)
	}

	if err := reg.Replace(catalog.Merge(cats...)); err != nil {
		return fmt.Errorf("register queries: %w", err)
	}
	return nil
}

// watchablePaths returns the catalog paths whose directory exists.
func watchablePaths(paths []catalogPath) []string {
	var out []string
	for _, p := range paths {
		dir := p.path
		if info, err := os.Stat(p.path); err != nil || !info.IsDir() {
			dir = filepath.Dir(p.path)
		}
		if _, err := os.Stat(dir); err == nil {
			out = append(out, p.path)
		}
	}
	return out
}

func requireRegistry(ctx context.Context) (*engine.Registry, error) {
	reg := RegistryFromContext(ctx)
	if reg == nil {
		return nil, errors.New("query registry not initialized")
	}
	return reg, nil
}
