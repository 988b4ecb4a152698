package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv() []string { return nil }

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(LoadOptions{Dir: t.TempDir(), Environ: noEnv})
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Patterns, cfg.Patterns)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "auto", cfg.Progress)
	assert.False(t, cfg.Fix.Enabled)
	assert.Equal(t, 100, cfg.Fix.MaxIterations)
	assert.Equal(t, "tailwindcss-language-server --stdio", cfg.Engine.Command)
	assert.Equal(t, "auto", cfg.Engine.Profile)
	assert.Equal(t, 5*time.Second, cfg.Engine.DiagnosticsTimeout)
	assert.NotNil(t, cfg.Engine.Settings)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
concurrency = 4
format = "json"
ignore = ["legacy/**"]

[fix]
enabled = true
max-iterations = 20

[engine]
profile = "v4"
diagnostics-timeout = "750ms"

[engine.settings.lint]
cssConflict = "error"
`)

	cfg, err := Load(LoadOptions{Dir: dir, Environ: noEnv})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"legacy/**"}, cfg.Ignore)
	assert.True(t, cfg.Fix.Enabled)
	assert.Equal(t, 20, cfg.Fix.MaxIterations)
	assert.Equal(t, "v4", cfg.Engine.Profile)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.DiagnosticsTimeout)
	assert.Equal(t, map[string]any{"lint": map[string]any{"cssConflict": "error"}}, cfg.Engine.Settings)

	// Unset keys keep their defaults.
	assert.Equal(t, "tailwindcss-language-server --stdio", cfg.Engine.Command)
}

func TestLoadDiscoversParentFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeConfig(t, root, "concurrency = 3\n")
	nested := filepath.Join(root, "src", "components")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Load(LoadOptions{Dir: nested, Environ: noEnv})
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestLoadPrecedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
concurrency = 4
format = "json"

[fix]
max-iterations = 20
`)

	cfg, err := Load(LoadOptions{
		Dir: dir,
		Environ: func() []string {
			return []string{
				"TWLINT_CONCURRENCY=6",
				"TWLINT_FIX_MAX_ITERATIONS=30",
				"TWLINT_PATTERNS=src/**/*.vue, app/**/*.tsx",
				"TWLINT_UNKNOWN_THING=1",
				"HOME=/tmp",
			}
		},
		Flags: map[string]any{
			"fix.max-iterations": 40,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Format, "file overrides defaults")
	assert.Equal(t, 6, cfg.Concurrency, "env overrides file")
	assert.Equal(t, 40, cfg.Fix.MaxIterations, "flags override env")
	assert.Equal(t, []string{"src/**/*.vue", "app/**/*.tsx"}, cfg.Patterns)
}

func TestLoadExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("format = \"sarif\"\n"), 0o644))

	cfg, err := Load(LoadOptions{Dir: t.TempDir(), File: path, Environ: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "sarif", cfg.Format)
	assert.Equal(t, path, cfg.File)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "colour = true\n"},
		{name: "unknown nested key", content: "[fix]\nretries = 2\n"},
		{name: "bad format", content: "format = \"xml\"\n"},
		{name: "zero concurrency", content: "concurrency = 0\n"},
		{name: "bad profile", content: "[engine]\nprofile = \"v2\"\n"},
		{name: "bad timeout", content: "[engine]\ndiagnostics-timeout = \"soon\"\n"},
		{name: "malformed toml", content: "format = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := Load(LoadOptions{Dir: dir, Environ: noEnv})
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(LoadOptions{
		File:    filepath.Join(t.TempDir(), "nope.toml"),
		Environ: noEnv,
	})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadInvalidFlag(t *testing.T) {
	t.Parallel()

	_, err := Load(LoadOptions{
		Dir:     t.TempDir(),
		Environ: noEnv,
		Flags:   map[string]any{"format": "yaml"},
	})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	assert.Empty(t, Discover(root))

	path := writeConfig(t, root, "")
	assert.Equal(t, path, Discover(root))

	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	assert.Equal(t, path, Discover(sub))
}

func TestTransformEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key       string
		value     string
		wantKey   string
		wantValue any
	}{
		{"TWLINT_FORMAT", "json", "format", "json"},
		{"TWLINT_LOG_LEVEL", "trace", "log-level", "trace"},
		{"TWLINT_FIX_ENABLED", "true", "fix.enabled", true},
		{"TWLINT_FIX_ENABLED", "0", "fix.enabled", false},
		{"TWLINT_FIX_MAX_ITERATIONS", "12", "fix.max-iterations", 12},
		{"TWLINT_ENGINE_DIAGNOSTICS_TIMEOUT", "2s", "engine.diagnostics-timeout", "2s"},
		{"TWLINT_IGNORE", "a/**,,b/**", "ignore", []string{"a/**", "b/**"}},
		{"TWLINT_NOPE", "x", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Parallel()
			k, v := transformEnv(tt.key, tt.value)
			assert.Equal(t, tt.wantKey, k)
			assert.Equal(t, tt.wantValue, v)
		})
	}
}

func TestProgressEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode     string
		terminal bool
		want     bool
	}{
		{mode: ProgressOn, terminal: false, want: true},
		{mode: ProgressOff, terminal: true, want: false},
		{mode: ProgressAuto, terminal: false, want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProgressEnabled(tt.mode, tt.terminal), "mode=%s terminal=%t", tt.mode, tt.terminal)
	}

	if CIName() == "" {
		assert.True(t, ProgressEnabled(ProgressAuto, true))
	} else {
		assert.False(t, ProgressEnabled(ProgressAuto, true))
	}
}
