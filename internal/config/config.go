// Package config loads budgetsync settings.
//
// Sources, later overriding earlier: built-in defaults, an optional YAML
// file, BUDGETSYNC_-prefixed environment variables, then explicit
// overrides (command-line flags).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "BUDGETSYNC_"

// sections are the nested config blocks. An environment variable whose
// name starts with a section maps into it: BUDGETSYNC_UPLOAD_PATH_STYLE
// becomes upload.path_style.
var sections = []string{"log", "upload", "sheet", "broadcast"}

// Config is the full set of settings.
type Config struct {
	DataDir   string    `koanf:"data_dir"`
	Log       Log       `koanf:"log"`
	Upload    Upload    `koanf:"upload"`
	Sheet     Sheet     `koanf:"sheet"`
	Broadcast Broadcast `koanf:"broadcast"`
}

// Log configures the default slog handler.
type Log struct {
	Level  string `koanf:"level"`  // debug|info|warn|error
	Format string `koanf:"format"` // text|json
}

// Upload configures remote copies of budget files.
type Upload struct {
	Enabled   bool   `koanf:"enabled"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`
	Prefix    string `koanf:"prefix"`
}

// Sheet configures the computed budget cache.
type Sheet struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// Broadcast configures change notifications to clients.
type Broadcast struct {
	SendTimeout time.Duration `koanf:"send_timeout"`
	Buffer      int           `koanf:"buffer"`
}

// Default returns working settings.
func Default() Config {
	return Config{
		DataDir: "budgets",
		Log:     Log{Level: "info", Format: "text"},
		Upload:  Upload{Region: "us-east-1"},
		Sheet:   Sheet{CacheTTL: 10 * time.Minute},
		Broadcast: Broadcast{
			SendTimeout: 2 * time.Second,
			Buffer:      64,
		},
	}
}

// Validate rejects settings the program cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if c.Upload.Enabled && c.Upload.Bucket == "" {
		errs = append(errs, errors.New("upload.bucket is required when upload is enabled"))
	}
	if c.Sheet.CacheTTL <= 0 {
		errs = append(errs, errors.New("sheet.cache_ttl must be positive"))
	}
	if c.Broadcast.SendTimeout <= 0 {
		errs = append(errs, errors.New("broadcast.send_timeout must be positive"))
	}
	if c.Broadcast.Buffer < 0 {
		errs = append(errs, errors.New("broadcast.buffer must not be negative"))
	}
	return errors.Join(errs...)
}

// Loader reads configuration from its sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfigFile sets the YAML file to read. Empty means none.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithEnvPrefix replaces EnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithOverrides applies dotted keys after every other source.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: EnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source over the defaults and validates the result.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if len(l.overrides) > 0 {
		if err := l.k.Load(mapProvider(l.overrides), nil); err != nil {
			return cfg, fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := l.k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps BUDGETSYNC_UPLOAD_BUCKET to upload.bucket and
// BUDGETSYNC_DATA_DIR to data_dir.
func (l *Loader) envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(s, sec+"_"); ok {
			return sec + "." + rest
		}
	}
	return s
}

// mapProvider is a koanf provider over an in-memory map.
type mapProvider map[string]any

// ReadBytes is not supported; koanf uses Read.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider has no byte form")
}

// Read returns the map with dotted keys expanded into nested maps.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
