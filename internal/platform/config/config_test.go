package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certguard/internal/session"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, session.DefaultConfig(), cfg.SessionConfig())
	assert.Equal(t, "off", cfg.Tracing.Exporter)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadLayers(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
sessions:
  busyPolicy: supersede
  stageDelayMin: 10ms
  stageDelayMax: 20ms
kafka:
  brokers: ["file-broker:9092"]
`)
	t.Setenv("CERTGUARD_SERVER_ADDR", ":7070")
	t.Setenv("CERTGUARD_KAFKA_BROKERS", "a:9092, b:9092,a:9092")
	t.Setenv("CERTGUARD_SESSIONS_PROCESSING_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "environment overrides the file")
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Sessions.ProcessingTimeout)
	assert.Equal(t, "supersede", cfg.Sessions.BusyPolicy, "file overrides defaults")
	assert.Equal(t, 10*time.Millisecond, cfg.Sessions.StageDelayMin)
	assert.Equal(t, int64(10<<20), cfg.Sessions.MaxFileBytes, "unset values keep defaults")
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "error reading config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "server: [unterminated"))
		assert.ErrorContains(t, err, "error parsing config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeFile(t, `
sessions:
  busyPolicy: queue
tracing:
  exporter: otlp
`))
		require.Error(t, err)
		assert.ErrorContains(t, err, "busyPolicy")
		assert.ErrorContains(t, err, "otlpEndpoint")
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty mime list":      func(c *Config) { c.Sessions.AllowedMIMETypes = nil },
		"zero file limit":      func(c *Config) { c.Sessions.MaxFileBytes = 0 },
		"inverted delays":      func(c *Config) { c.Sessions.StageDelayMin = time.Second; c.Sessions.StageDelayMax = time.Millisecond },
		"zero timeout":         func(c *Config) { c.Sessions.ProcessingTimeout = 0 },
		"unknown fallback":     func(c *Config) { c.Data.Fallback = "random" },
		"unknown log format":   func(c *Config) { c.Logging.Format = "xml" },
		"sample ratio too big": func(c *Config) { c.Tracing.SampleRatio = 2 },
		"brokers without topic": func(c *Config) {
			c.Kafka.Brokers = []string{"a:9092"}
			c.Kafka.Topic = ""
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
