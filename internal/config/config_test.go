package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestReadConfig_MergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{
		// comments are allowed
		outputDir: "public",
		workers: 2,
	}`)
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{workers: 4}`)

	got, err := ReadConfig[Settings](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	assert.Equal(t, "public", got.OutputDir)
	assert.Equal(t, 4, got.Workers)
}

func TestReadConfig_NotExist(t *testing.T) {
	_, err := ReadConfig[Settings](filepath.Join(t.TempDir(), "missing.json5"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "show-scraper.json5")
	writeFile(t, path, `{ruleTimeout: "30s", persistMode: "static", workers: 3}`)

	got, err := Load(path, envMap(map[string]string{
		"HEADLESS":               "false",
		"RESCUE_SCRAPING_ERRORS": "false",
		"DEBUGGER":               "true",
		"EVENTS_LIMIT":           "0",
		"PRINT_EVENTS":           "true",
		"WORKERS":                "2",
	}))
	require.NoError(t, err)

	assert.False(t, got.Headless)
	assert.False(t, got.RescueErrors)
	assert.True(t, got.Debug)
	assert.Equal(t, "debug", got.LogLevel)
	require.NotNil(t, got.EventsLimit)
	assert.Equal(t, 0, *got.EventsLimit)
	assert.True(t, got.PrintPreview)
	assert.Equal(t, 2, got.Workers)
	assert.Equal(t, 30*time.Second, got.RuleTimeout.Duration)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json5")
	writeFile(t, path, `{}`)

	got, err := Load(path, envMap(nil))
	require.NoError(t, err)
	assert.True(t, got.Headless)
	assert.True(t, got.RescueErrors)
	assert.Nil(t, got.EventsLimit)
	assert.Equal(t, PersistStatic, got.PersistMode)
	assert.Equal(t, BackendChrome, got.Browser)
}

func TestLoad_InvalidEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json5")
	writeFile(t, path, `{}`)

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad bool", map[string]string{"HEADLESS": "maybe"}},
		{"bad limit", map[string]string{"EVENTS_LIMIT": "lots"}},
		{"negative limit", map[string]string{"EVENTS_LIMIT": "-1"}},
		{"bad persist mode", map[string]string{"PERSIST_MODE": "s3"}},
		{"sql without db", map[string]string{"PERSIST_MODE": "sql"}},
		{"zero workers", map[string]string{"WORKERS": "0"}},
		{"bad browser", map[string]string{"BROWSER": "firefox"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(path, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json5"), envMap(nil))
	assert.Error(t, err)
}

func TestDuration_UnmarshalSeconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1.5`)))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)
}
