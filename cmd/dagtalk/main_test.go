package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentLine(t *testing.T) {
	t.Parallel()

	t.Run("list without pattern", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "list_dags", intentLine(dagtalk.ListDagsIntent{}))
	})

	t.Run("list with pattern", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "list_dags payment_*", intentLine(dagtalk.ListDagsIntent{Pattern: "payment_*"}))
	})

	t.Run("trigger without conf", func(t *testing.T) {
		t.Parallel()
		in := dagtalk.TriggerDagIntent{DagID: "payment_report_daily"}
		assert.Equal(t, "trigger_dag payment_report_daily", intentLine(in))
	})

	t.Run("trigger conf is sorted", func(t *testing.T) {
		t.Parallel()
		in := dagtalk.TriggerDagIntent{
			DagID: "payment_report_daily",
			Conf:  map[string]string{"env": "prod", "date": "2026-08-01"},
		}
		assert.Equal(t, "trigger_dag payment_report_daily date=2026-08-01 env=prod", intentLine(in))
	})

	t.Run("run status names the run", func(t *testing.T) {
		t.Parallel()
		in := dagtalk.RunStatusIntent{DagID: "user_sync", RunID: "manual__7"}
		assert.Equal(t, "get_run_status user_sync manual__7", intentLine(in))
	})

	t.Run("dag status", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "get_dag_status user_sync", intentLine(dagtalk.DagStatusIntent{DagID: "user_sync"}))
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	level, err = parseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = parseLevel("error")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)

	_, err = parseLevel("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := newLogger(config.LogConfig{Level: "debug", Format: "text"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = newLogger(config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("airflow:\n  base_url: http://airflow.test:9090\n"), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://airflow.test:9090", cfg.Airflow.BaseURL)
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Airflow.BaseURL)
}

func TestLoadConfig_ReadsDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".dagtalk")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data := []byte("airflow:\n  base_url: http://airflow.home:8080\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600))

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://airflow.home:8080", cfg.Airflow.BaseURL)
}
