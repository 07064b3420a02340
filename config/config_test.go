package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "thistle", cfg.AppName)
	assert.Equal(t, 1.2, cfg.EURToUSDRate)
	assert.Equal(t, 5, cfg.TopDays)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.TaskTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EUR_TO_USD_RATE", "1.1")
	t.Setenv("DATA_DIR", "/data/DATA1")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.1, cfg.EURToUSDRate)
	assert.Equal(t, "/data/DATA1", cfg.DataDir)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero rate", key: "EUR_TO_USD_RATE", val: "0"},
		{name: "unknown driver", key: "DB_DRIVER", val: "mysql"},
		{name: "unknown log level", key: "LOG_LEVEL", val: "loud"},
		{name: "unknown otlp protocol", key: "OTEL_EXPORTER_OTLP_PROTOCOL", val: "udp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
