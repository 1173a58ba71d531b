package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"certguard/internal/events"
	"certguard/internal/extraction"
	"certguard/internal/ledger"
	"certguard/internal/session"
	liststr "certguard/pkg/platform/strings"
)

// EnvPrefix prefixes every environment override, e.g. CERTGUARD_ADDR.
const EnvPrefix = "CERTGUARD"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"             envconfig:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"  envconfig:"SHUTDOWN_TIMEOUT"`
}

// Logging selects the slog handler.
type Logging struct {
	Level  string `yaml:"level"  envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Sessions configures upload validation and the staged pipeline.
type Sessions struct {
	AllowedMIMETypes  []string      `yaml:"allowedMimeTypes"  envconfig:"ALLOWED_MIME_TYPES"`
	MaxFileBytes      int64         `yaml:"maxFileBytes"      envconfig:"MAX_FILE_BYTES"`
	StageDelayMin     time.Duration `yaml:"stageDelayMin"     envconfig:"STAGE_DELAY_MIN"`
	StageDelayMax     time.Duration `yaml:"stageDelayMax"     envconfig:"STAGE_DELAY_MAX"`
	ProcessingTimeout time.Duration `yaml:"processingTimeout" envconfig:"PROCESSING_TIMEOUT"`
	BusyPolicy        string        `yaml:"busyPolicy"        envconfig:"BUSY_POLICY"`
	TrackerRetention  int           `yaml:"trackerRetention"  envconfig:"TRACKER_RETENTION"`
	MaxScopes         int           `yaml:"maxScopes"         envconfig:"MAX_SCOPES"`
}

// Data points at the rule and seed files. Empty paths use the embedded defaults.
type Data struct {
	RulesFile      string `yaml:"rulesFile"      envconfig:"RULES_FILE"`
	SeedFile       string `yaml:"seedFile"       envconfig:"SEED_FILE"`
	Fallback       string `yaml:"fallback"       envconfig:"FALLBACK"`
	LedgerCapacity int    `yaml:"ledgerCapacity" envconfig:"LEDGER_CAPACITY"`
}

// Kafka enables outcome publishing when Brokers is non-empty.
type Kafka struct {
	Brokers []string `yaml:"brokers" envconfig:"BROKERS"`
	Topic   string   `yaml:"topic"   envconfig:"TOPIC"`
}

// Tracing selects the span exporter: off, stdout or otlp.
type Tracing struct {
	Exporter     string  `yaml:"exporter"     envconfig:"EXPORTER"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" envconfig:"OTLP_ENDPOINT"`
	SampleRatio  float64 `yaml:"sampleRatio"  envconfig:"SAMPLE_RATIO"`
}

type Config struct {
	Server   Server   `yaml:"server"   envconfig:"SERVER"`
	Logging  Logging  `yaml:"logging"  envconfig:"LOG"`
	Sessions Sessions `yaml:"sessions" envconfig:"SESSIONS"`
	Data     Data     `yaml:"data"     envconfig:"DATA"`
	Kafka    Kafka    `yaml:"kafka"    envconfig:"KAFKA"`
	Tracing  Tracing  `yaml:"tracing"  envconfig:"TRACING"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	sc := session.DefaultConfig()
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: Logging{Level: "info", Format: "json"},
		Sessions: Sessions{
			AllowedMIMETypes:  sc.AllowedMIMETypes,
			MaxFileBytes:      sc.MaxFileBytes,
			StageDelayMin:     sc.StageDelayMin,
			StageDelayMax:     sc.StageDelayMax,
			ProcessingTimeout: sc.ProcessingTimeout,
			BusyPolicy:        string(sc.Policy),
			TrackerRetention:  session.DefaultRetention,
			MaxScopes:         session.DefaultMaxScopes,
		},
		Data: Data{
			Fallback:       extraction.FallbackDegraded,
			LedgerCapacity: ledger.DefaultCapacity,
		},
		Kafka:   Kafka{Topic: events.DefaultTopic},
		Tracing: Tracing{Exporter: "off", SampleRatio: 1},
	}
}

// Load layers defaults, the optional YAML file and CERTGUARD_* environment
// overrides, in that order, then validates the result.
func Load(configFile string) (Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("error processing environment: %w", err)
	}
	cfg.Sessions.AllowedMIMETypes = liststr.CleanFoldedList(cfg.Sessions.AllowedMIMETypes)
	cfg.Kafka.Brokers = liststr.CleanList(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent values.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	s := c.Sessions
	if len(s.AllowedMIMETypes) == 0 {
		errs = append(errs, errors.New("sessions.allowedMimeTypes must not be empty"))
	}
	if s.MaxFileBytes <= 0 {
		errs = append(errs, errors.New("sessions.maxFileBytes must be positive"))
	}
	if s.StageDelayMin < 0 || s.StageDelayMax < s.StageDelayMin {
		errs = append(errs, errors.New("sessions.stageDelayMin must be >= 0 and <= stageDelayMax"))
	}
	if s.ProcessingTimeout <= 0 {
		errs = append(errs, errors.New("sessions.processingTimeout must be positive"))
	}
	switch session.Policy(s.BusyPolicy) {
	case session.PolicyReject, session.PolicySupersede:
	default:
		errs = append(errs, fmt.Errorf("sessions.busyPolicy %q must be reject or supersede", s.BusyPolicy))
	}
	switch c.Data.Fallback {
	case extraction.FallbackDegraded, extraction.FallbackSimulated:
	default:
		errs = append(errs, fmt.Errorf("data.fallback %q must be %s or %s", c.Data.Fallback, extraction.FallbackDegraded, extraction.FallbackSimulated))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or text", c.Logging.Format))
	}
	switch c.Tracing.Exporter {
	case "off", "stdout":
	case "otlp":
		if c.Tracing.OTLPEndpoint == "" {
			errs = append(errs, errors.New("tracing.otlpEndpoint is required for the otlp exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q must be off, stdout or otlp", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sampleRatio must be within [0, 1]"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// SessionConfig converts to the session manager configuration.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		AllowedMIMETypes:  c.Sessions.AllowedMIMETypes,
		MaxFileBytes:      c.Sessions.MaxFileBytes,
		StageDelayMin:     c.Sessions.StageDelayMin,
		StageDelayMax:     c.Sessions.StageDelayMax,
		ProcessingTimeout: c.Sessions.ProcessingTimeout,
		Policy:            session.Policy(c.Sessions.BusyPolicy),
	}
}
