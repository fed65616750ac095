// Package config provides configuration management for hquery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultConfigDir   = ".config/hquery"
	DefaultConfigFile  = "config.yaml"
	DefaultCatalogFile = "queries.yaml"
	DefaultService     = "hquery"
	EnvPrefix          = "HQUERY"
)

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey   = errors.New("invalid configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")
	ErrNoEditor     = errors.New("$EDITOR environment variable not set")
)

// validStorePolicies contains the allowed cache store policies (unexported).
var validStorePolicies = map[string]bool{
	"without_errors": true,
	"success_only":   true,
}

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

// validate is the shared validator instance.
var validate = validator.New()

// Config represents the full hquery configuration.
type Config struct {
	Engine   EngineConfig      `mapstructure:"engine" yaml:"engine"`
	Cache    CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Catalog  CatalogConfig     `mapstructure:"catalog" yaml:"catalog"`
	Packages PackagesConfig    `mapstructure:"packages" yaml:"packages"`
	Secrets  SecretsConfig     `mapstructure:"secrets" yaml:"secrets"`
	Metrics  MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Log      LogConfig         `mapstructure:"log" yaml:"log"`
	Vars     map[string]string `mapstructure:"vars" yaml:"vars"`
}

// EngineConfig holds query execution defaults.
type EngineConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout" validate:"gt=0"`
	StreamGrace    time.Duration `mapstructure:"stream_grace" yaml:"stream_grace" validate:"gte=0"`
	StopTimeout    time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout" validate:"gt=0"`
	Offline        bool          `mapstructure:"offline" yaml:"offline"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	StorePolicy string `mapstructure:"store_policy" yaml:"store_policy" validate:"oneof=without_errors success_only"`
}

// CatalogConfig selects the query catalogs to load.
type CatalogConfig struct {
	Builtin bool     `mapstructure:"builtin" yaml:"builtin"`
	Paths   []string `mapstructure:"paths" yaml:"paths"`
}

// PackagesConfig configures package-manager template tokens.
type PackagesConfig struct {
	Manager string `mapstructure:"manager" yaml:"manager" validate:"omitempty,excludesall= "`
}

// SecretsConfig configures keyring lookups for ${secret.*} tokens.
type SecretsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Service string `mapstructure:"service" yaml:"service" validate:"required_if=Enabled true"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Addr      string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Verbosity int `mapstructure:"verbosity" yaml:"verbosity" validate:"gte=0,lte=2"`
}

// Validate checks the configuration for errors using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// UserCatalog returns the catalog file new queries are written to.
func (c *Config) UserCatalog() string {
	if len(c.Catalog.Paths) == 0 {
		return ""
	}
	return c.Catalog.Paths[0]
}

// Loader provides configuration loading and saving.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a new configuration loader for the default path.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return NewLoaderAt(filepath.Join(home, DefaultConfigDir, DefaultConfigFile), home), nil
}

// NewLoaderAt creates a loader for an explicit file path.
func NewLoaderAt(configPath, home string) *Loader {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("engine.offline", "HQUERY_OFFLINE")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("packages.manager", "HQUERY_PACKAGE_MANAGER")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("log.verbosity", "HQUERY_VERBOSITY")

	l := &Loader{
		v:       v,
		path:    configPath,
		homeDir: home,
	}

	// Set defaults before any config reading
	l.setDefaults()

	return l
}

// setDefaults sets all default configuration values using Viper.
func (l *Loader) setDefaults() {
	l.v.SetDefault("engine.default_timeout", "60s")
	l.v.SetDefault("engine.stream_grace", "250ms")
	l.v.SetDefault("engine.stop_timeout", "5s")
	l.v.SetDefault("engine.offline", false)
	l.v.SetDefault("cache.enabled", true)
	l.v.SetDefault("cache.store_policy", "without_errors")
	l.v.SetDefault("catalog.builtin", true)
	l.v.SetDefault("catalog.paths", []string{"~/" + DefaultConfigDir + "/" + DefaultCatalogFile})
	l.v.SetDefault("packages.manager", "")
	l.v.SetDefault("secrets.enabled", false)
	l.v.SetDefault("secrets.service", DefaultService)
	l.v.SetDefault("metrics.enabled", false)
	l.v.SetDefault("metrics.namespace", "hquery")
	l.v.SetDefault("metrics.addr", "")
	l.v.SetDefault("log.verbosity", 0)
	l.v.SetDefault("vars", map[string]string{})
}

// Load reads the configuration file, creating defaults if it doesn't exist.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for i, p := range cfg.Catalog.Paths {
		cfg.Catalog.Paths[i] = l.expandPath(p)
	}

	return &cfg, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Viper returns the underlying viper instance, used for variable lookups.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Get returns a configuration value by dot-notation key.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set sets a configuration value by dot-notation key.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := validateValue(key, value); err != nil {
		return err
	}

	l.v.Set(key, value)
	return l.v.WriteConfig()
}

// validateValue checks a raw value for keys with a constrained format.
func validateValue(key, value string) error {
	switch key {
	case "engine.default_timeout", "engine.stream_grace", "engine.stop_timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration like 30s", ErrInvalidValue, key)
		}
	case "engine.offline", "cache.enabled", "catalog.builtin", "secrets.enabled", "metrics.enabled":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
	case "cache.store_policy":
		if !validStorePolicies[value] {
			return fmt.Errorf("%w: %s (valid: without_errors, success_only)", ErrInvalidValue, value)
		}
	case "log.verbosity":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 2 {
			return fmt.Errorf("%w: %s must be 0, 1 or 2", ErrInvalidValue, key)
		}
	}
	return nil
}

// createDefault writes the default configuration file using Viper.
func (l *Loader) createDefault() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	// Check for exact match in derived valid keys
	if validKeys[key] {
		return nil
	}

	// vars.<name> addresses a single template variable
	if name, ok := strings.CutPrefix(key, "vars."); ok && name != "" && !strings.Contains(name, ".") {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// Keys returns every settable key in sorted order. Section keys such as
// "engine" are omitted; template variables are set as vars.<name>.
func Keys() []string {
	var keys []string
	for k := range validKeys {
		if !hasChildren(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func hasChildren(key string) bool {
	for k := range validKeys {
		if strings.HasPrefix(k, key+".") {
			return true
		}
	}
	return false
}

// buildValidKeys builds the set of valid keys from Config struct using reflection.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

// addKeysFromType recursively adds keys from a struct type.
func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		keys[key] = true

		// Recurse into nested structs (but not maps)
		if field.Type.Kind() == reflect.Struct {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
