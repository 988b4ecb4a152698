// Package config loads twlint configuration.
//
// Sources are merged with increasing precedence: built-in defaults,
// .twlint.toml (the nearest one walking up from the working directory, or
// an explicit path), TWLINT_* environment variables, and CLI flags that were
// explicitly set. The merged result is validated against an embedded JSON
// schema before it is decoded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// FileName is the name of the configuration file searched for.
const FileName = ".twlint.toml"

// EnvPrefix is the prefix of environment variables read as configuration.
const EnvPrefix = "TWLINT_"

// ErrInvalid is wrapped by errors reporting an invalid configuration.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete twlint configuration.
type Config struct {
	// Patterns are the default file patterns checked when no arguments are given.
	Patterns []string `koanf:"patterns"`

	// Ignore are patterns excluded from checking.
	Ignore []string `koanf:"ignore"`

	// Concurrency is the number of files processed at once.
	Concurrency int `koanf:"concurrency"`

	// Format is the output format: text, json or sarif.
	Format string `koanf:"format"`

	// LogLevel is the logrus level name.
	LogLevel string `koanf:"log-level"`

	// Progress is auto, on or off.
	Progress string `koanf:"progress"`

	Fix    FixConfig    `koanf:"fix"`
	Engine EngineConfig `koanf:"engine"`

	// File is the configuration file that was loaded, if any.
	File string `koanf:"-"`
}

// FixConfig controls the fix-convergence loop.
type FixConfig struct {
	Enabled       bool `koanf:"enabled"`
	MaxIterations int  `koanf:"max-iterations"`
}

// EngineConfig controls how the Tailwind language service is run.
type EngineConfig struct {
	// Command starts the language server speaking LSP on stdio.
	Command string `koanf:"command"`

	// Profile is auto, v3 or v4.
	Profile string `koanf:"profile"`

	// DiagnosticsTimeout bounds the wait for diagnostics of one document.
	DiagnosticsTimeout time.Duration `koanf:"diagnostics-timeout"`

	// Settings are merged over the profile's tailwindCSS settings.
	Settings map[string]any `koanf:"settings"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Patterns: []string{
			"**/*.{html,vue,svelte,astro,jsx,tsx,js,ts,mdx,php}",
		},
		Ignore:      []string{},
		Concurrency: 10,
		Format:      "text",
		LogLevel:    "warn",
		Progress:    ProgressAuto,
		Fix: FixConfig{
			Enabled:       false,
			MaxIterations: 100,
		},
		Engine: EngineConfig{
			Command:            "tailwindcss-language-server --stdio",
			Profile:            "auto",
			DiagnosticsTimeout: 5 * time.Second,
			Settings:           map[string]any{},
		},
	}
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// Dir is where the upward search for FileName starts ("" = working directory).
	Dir string

	// File is an explicit configuration file; it must exist.
	File string

	// Flags holds explicitly-set CLI flags keyed by configuration key
	// (e.g. "fix.max-iterations").
	Flags map[string]any

	// Environ replaces os.Environ when set.
	Environ func() []string
}

// Load builds the configuration from all sources.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path, err := resolveFile(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: loading %s: %v", ErrInvalid, path, err)
		}
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}
	if opts.Environ != nil {
		envOpt.EnvironFunc = opts.Environ
	}
	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(opts.Flags) > 0 {
		if err := k.Load(confmap.Provider(opts.Flags, "."), nil); err != nil {
			return nil, fmt.Errorf("loading command flags: %w", err)
		}
	}

	if err := validate(k.Raw()); err != nil {
		source := path
		if source == "" {
			source = "configuration"
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, source, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.File = path
	if cfg.Engine.Settings == nil {
		cfg.Engine.Settings = map[string]any{}
	}
	return cfg, nil
}

// resolveFile returns the configuration file to load, or "" if there is none.
func resolveFile(opts LoadOptions) (string, error) {
	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return "", fmt.Errorf("%w: config file %s: %v", ErrInvalid, opts.File, err)
		}
		return opts.File, nil
	}

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	return Discover(dir), nil
}

// Discover returns the nearest FileName in dir or one of its parents, or "".
func Discover(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// envKeys maps environment variable suffixes to configuration keys.
var envKeys = map[string]string{
	"PATTERNS":                   "patterns",
	"IGNORE":                     "ignore",
	"CONCURRENCY":                "concurrency",
	"FORMAT":                     "format",
	"LOG_LEVEL":                  "log-level",
	"PROGRESS":                   "progress",
	"FIX_ENABLED":                "fix.enabled",
	"FIX_MAX_ITERATIONS":         "fix.max-iterations",
	"ENGINE_COMMAND":             "engine.command",
	"ENGINE_PROFILE":             "engine.profile",
	"ENGINE_DIAGNOSTICS_TIMEOUT": "engine.diagnostics-timeout",
}

// transformEnv maps TWLINT_FIX_MAX_ITERATIONS to fix.max-iterations.
// Unknown variables are ignored; list values are comma-separated.
func transformEnv(k, v string) (string, any) {
	key, ok := envKeys[strings.TrimPrefix(k, EnvPrefix)]
	if !ok {
		return "", nil
	}
	switch key {
	case "patterns", "ignore":
		return key, splitList(v)
	case "concurrency", "fix.max-iterations":
		var n int
		if _, err := fmt.Sscan(v, &n); err != nil {
			return key, v
		}
		return key, n
	case "fix.enabled":
		return key, v == "1" || strings.EqualFold(v, "true")
	default:
		return key, v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
