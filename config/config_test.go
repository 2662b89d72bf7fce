package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Equal(t, "Done", cfg.DoneMessageText)
	assert.Equal(t, 2, cfg.ScrollsCountForEachCapture)
	assert.Equal(t, 2, cfg.IterationsCount)
	assert.Equal(t, "https://x.com", cfg.BaseURL)
}

func TestLoad_MalformedFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("doneMessageText: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	assert.Equal(t, "Done", cfg.DoneMessageText)
	assert.Equal(t, 2, cfg.IterationsCount)
}

func TestLoad_RecognizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "doneMessageText: Handled\nscrollsCountForEachCapture: 4\niterationsCount: 3\nheadless: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	assert.Equal(t, "Handled", cfg.DoneMessageText)
	assert.Equal(t, 4, cfg.ScrollsCountForEachCapture)
	assert.Equal(t, 3, cfg.IterationsCount)
	assert.True(t, cfg.Headless)
}

func TestLoad_EnvOverridesDeploySettings(t *testing.T) {
	os.Setenv("LEDGER_DSN", "postgres://ledger")
	os.Setenv("METRICS_ADDR", ":9102")
	defer os.Unsetenv("LEDGER_DSN")
	defer os.Unsetenv("METRICS_ADDR")

	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, "postgres://ledger", cfg.LedgerDSN)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
}

func TestLoad_ZeroCountsFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scrollsCountForEachCapture: 0\niterationsCount: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	assert.Equal(t, 2, cfg.ScrollsCountForEachCapture)
	assert.Equal(t, 2, cfg.IterationsCount)
}
