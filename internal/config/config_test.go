package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

logging:
  level: debug
  format: console

thresholds:
  offer_delta: 7.5
  tier_rank_limit: 20

calendar:
  region: us
  holidays: ["2026-10-01"]
  workdays: ["2026-10-10"]

report:
  concurrency: 8
  source: everflow

storage:
  type: "local"
  local_path: "./test-data"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	// Overridden thresholds keep their value, the rest fall back to defaults.
	assert.Equal(t, 7.5, cfg.Thresholds.OfferDelta)
	assert.Equal(t, 20, cfg.Thresholds.TierRankLimit)
	assert.Equal(t, 3.0, cfg.Thresholds.AffiliateDelta)
	assert.Equal(t, 0.8, cfg.Thresholds.DominanceRatio)
	assert.Equal(t, 100.0, cfg.Thresholds.DefaultCap)

	assert.Equal(t, "us", cfg.Calendar.Region)
	assert.Equal(t, []string{"2026-10-01"}, cfg.Calendar.Holidays)
	assert.Equal(t, 8, cfg.Report.Concurrency)
	assert.Equal(t, "everflow", cfg.Report.Source)
	assert.Equal(t, "./test-data", cfg.Storage.LocalPath)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 8080\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 32, cfg.Server.MaxUploadMB)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "none", cfg.Calendar.Region)
	assert.Equal(t, "workbook", cfg.Report.Source)
	assert.Equal(t, "https://api.eflow.team", cfg.Everflow.BaseURL)
	assert.Equal(t, 90, cfg.Everflow.TimezoneID)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "logging:\n  level: loud\n"},
		{"dominance ratio above one", "thresholds:\n  dominance_ratio: 1.5\n"},
		{"unknown source", "report:\n  source: ftp\n"},
		{"second rank limit above first", "thresholds:\n  tier_rank_limit: 2\n  tier_second_rank_limit: 5\n"},
		{"bad sender address", "notify:\n  from: not-an-address\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("OFFERDIAG_PORT", "9999")
	t.Setenv("OFFERDIAG_LOG_LEVEL", "WARN")
	t.Setenv("EVERFLOW_API_KEY", "ef-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/offerdiag")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "ef-key", cfg.Everflow.APIKey)
	assert.Equal(t, "postgres://localhost/offerdiag", cfg.Database.URL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestServerConfigGetHost(t *testing.T) {
	cfg := ServerConfig{Host: "localhost", Port: 8080}

	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	t.Setenv("SERVER_HOST", "")
	assert.Equal(t, "localhost", cfg.GetHost())
	assert.Equal(t, "localhost:8080", cfg.Addr())

	t.Setenv("SERVER_HOST", "127.0.0.1")
	assert.Equal(t, "127.0.0.1", cfg.GetHost())

	t.Setenv("ECS_CONTAINER_METADATA_URI", "http://169.254.170.2/v4")
	assert.Equal(t, "0.0.0.0", cfg.GetHost())
}

func TestCalendarLocation(t *testing.T) {
	assert.Equal(t, "UTC", CalendarConfig{}.Location().String())
	assert.Equal(t, "UTC", CalendarConfig{Timezone: "Not/AZone"}.Location().String())
	assert.Equal(t, "Asia/Shanghai", CalendarConfig{Timezone: "Asia/Shanghai"}.Location().String())
}
