package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: production
calendar:
  path: /data/calendar.csv
data:
  tick_root: /data/ticks
  daily_root: /data/daily
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "0.0.0.0", c.Server.Host)
	assert.Equal(t, []string{"*"}, c.Server.CORSOrigins)
	assert.Equal(t, 10*time.Minute, c.Server.CacheTTL)
	assert.Equal(t, 8, c.MinuteBar.Workers)
	assert.Equal(t, 3, c.MinuteBar.TopN)
	assert.Equal(t, "csv", c.MinuteBar.SaveFormat)
	assert.Equal(t, 3, c.Archive.RetryMax)
	assert.Equal(t, 500*time.Millisecond, c.Archive.RetryBackoff)
	assert.True(t, c.Sinks.File.Enabled)
	assert.Equal(t, -1, c.Sinks.Kafka.RequiredAcks)
	assert.Equal(t, "memory", c.Progress.Backend)
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	c, err := Load(writeConfig(t, minimal+`
sinks:
  file:
    enabled: false
  clickhouse:
    enabled: true
    host: ch.local
`))
	require.NoError(t, err)
	assert.False(t, c.Sinks.File.Enabled)
	assert.Equal(t, "futures", c.Sinks.ClickHouse.Database)
}

func TestLoadCORSOrigins(t *testing.T) {
	c, err := Load(writeConfig(t, minimal+`
server:
  cors_origins: [https://desk.local]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://desk.local"}, c.Server.CORSOrigins)

	c, err = Load(writeConfig(t, minimal+`
server:
  cors_origins: []
`))
	require.NoError(t, err)
	assert.Empty(t, c.Server.CORSOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing tick root", "calendar:\n  path: c.csv\ndata:\n  daily_root: d\n"},
		{"bad format", minimal + "minute_bar:\n  save_format: hdf5\n"},
		{"bad environment", "environment: qa\n" + minimal[len("\nenvironment: production\n"):]},
		{"kafka without brokers", minimal + "sinks:\n  kafka:\n    enabled: true\n"},
		{"clickhouse without host", minimal + "sinks:\n  clickhouse:\n    enabled: true\n"},
		{"no sink", minimal + "sinks:\n  file:\n    enabled: false\n"},
		{"zero workers", minimal + "minute_bar:\n  workers: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("FUTPULL_WORKERS", "2")
	t.Setenv("FUTPULL_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("FUTPULL_SAVE_FORMAT", "parquet")

	c, err := LoadWithEnv(writeConfig(t, minimal+"sinks:\n  kafka:\n    enabled: true\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.MinuteBar.Workers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Sinks.Kafka.Brokers)
	assert.Equal(t, "parquet", c.MinuteBar.SaveFormat)
	assert.Equal(t, "/data/ticks", c.Data.TickRoot, "unset variables keep file values")
}
