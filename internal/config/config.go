// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqstream"
	"firestige.xyz/timedemux/internal/worker/timedemux"
)

// Port types.
const (
	PortFile    = "file"
	PortKafka   = "kafka"
	PortDiscard = "discard"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `timedemux:` root key in YAML.
type GlobalConfig struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Worker  WorkerConfig  `mapstructure:"worker" yaml:"worker"`
	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Outputs OutputsConfig `mapstructure:"outputs" yaml:"outputs"`
	Kafka   KafkaConfig   `mapstructure:"kafka" yaml:"kafka"`
	Buffer  BufferConfig  `mapstructure:"buffer" yaml:"buffer"`
}

// ─── Worker ───

// WorkerConfig selects the worker and its initial properties.
type WorkerConfig struct {
	Name         string         `mapstructure:"name" yaml:"name"`
	CopyStrategy string         `mapstructure:"copy_strategy" yaml:"copy_strategy"` // auto | fields
	Properties   map[string]any `mapstructure:"properties" yaml:"properties,omitempty"`
	PollInterval string         `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ─── Ports ───

// InputConfig configures the stream the worker reads.
type InputConfig struct {
	Type        string `mapstructure:"type" yaml:"type"`                           // file | kafka
	Path        string `mapstructure:"path" yaml:"path,omitempty"`                 // file only, empty or "-" = stdin
	Topic       string `mapstructure:"topic" yaml:"topic,omitempty"`               // kafka only
	GroupID     string `mapstructure:"group_id" yaml:"group_id,omitempty"`         // kafka only
	StartOffset string `mapstructure:"start_offset" yaml:"start_offset,omitempty"` // kafka only: earliest | latest
}

// OutputsConfig configures the two demultiplexer outputs.
type OutputsConfig struct {
	Data OutputConfig `mapstructure:"data" yaml:"data"`
	Time OutputConfig `mapstructure:"time" yaml:"time"`
}

// OutputConfig configures one output port.
type OutputConfig struct {
	Type  string `mapstructure:"type" yaml:"type"`             // file | kafka | discard
	Path  string `mapstructure:"path" yaml:"path,omitempty"`   // file only
	Topic string `mapstructure:"topic" yaml:"topic,omitempty"` // kafka only
}

// KafkaConfig is the shared connection for kafka outputs.
type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers" yaml:"brokers"`
	Compression  string   `mapstructure:"compression" yaml:"compression"` // none | gzip | snappy | lz4
	BatchSize    int      `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout string   `mapstructure:"batch_timeout" yaml:"batch_timeout"`
}

// BufferConfig bounds output buffers.
type BufferConfig struct {
	MaxMessageBytes int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `timedemux: ...`.
type configRoot struct {
	TimeDemux GlobalConfig `mapstructure:"timedemux"`
}

// Load loads configuration from file. An empty path loads defaults and
// environment overrides only.
// The YAML file uses `timedemux:` as root key; env vars use the TIMEDEMUX_
// prefix (e.g., TIMEDEMUX_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "timedemux.log.level" → env "TIMEDEMUX_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.TimeDemux

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "timedemux." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("timedemux.log.level", "info")
	v.SetDefault("timedemux.log.format", "text")
	v.SetDefault("timedemux.log.outputs.file.enabled", false)
	v.SetDefault("timedemux.log.outputs.file.path", "/var/log/timedemux/timedemux.log")
	v.SetDefault("timedemux.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("timedemux.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("timedemux.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("timedemux.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("timedemux.metrics.enabled", false)
	v.SetDefault("timedemux.metrics.listen", ":9092")
	v.SetDefault("timedemux.metrics.path", "/metrics")

	// Worker defaults
	v.SetDefault("timedemux.worker.name", timedemux.Name)
	v.SetDefault("timedemux.worker.copy_strategy", iqstream.CopyAuto)
	v.SetDefault("timedemux.worker.poll_interval", "10ms")

	// Port defaults
	v.SetDefault("timedemux.input.type", PortFile)
	v.SetDefault("timedemux.input.path", "")
	v.SetDefault("timedemux.input.topic", "")
	v.SetDefault("timedemux.input.group_id", "timedemux")
	v.SetDefault("timedemux.input.start_offset", "earliest")
	v.SetDefault("timedemux.outputs.data.type", PortDiscard)
	v.SetDefault("timedemux.outputs.data.path", "")
	v.SetDefault("timedemux.outputs.data.topic", "")
	v.SetDefault("timedemux.outputs.time.type", PortDiscard)
	v.SetDefault("timedemux.outputs.time.path", "")
	v.SetDefault("timedemux.outputs.time.topic", "")

	// Kafka defaults
	v.SetDefault("timedemux.kafka.brokers", []string{})
	v.SetDefault("timedemux.kafka.compression", "snappy")
	v.SetDefault("timedemux.kafka.batch_size", 100)
	v.SetDefault("timedemux.kafka.batch_timeout", "100ms")

	// Buffer defaults
	v.SetDefault("timedemux.buffer.max_message_bytes", 1<<20)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Worker validation ──
	if cfg.Worker.Name == "" {
		return fmt.Errorf("%w: worker.name is required", core.ErrConfigInvalid)
	}
	if cfg.Worker.CopyStrategy == "" {
		cfg.Worker.CopyStrategy = iqstream.CopyAuto
	}
	if _, err := iqstream.SyncToSampleCopier(cfg.Worker.CopyStrategy); err != nil {
		return fmt.Errorf("invalid worker.copy_strategy: %w", err)
	}
	if _, err := cfg.PollInterval(); err != nil {
		return err
	}

	// ── Input validation ──
	switch cfg.Input.Type {
	case "", PortFile:
		cfg.Input.Type = PortFile
	case PortKafka:
		if cfg.Input.Topic == "" {
			return fmt.Errorf("%w: input.topic is required for kafka input", core.ErrConfigInvalid)
		}
		if cfg.Input.GroupID == "" {
			return fmt.Errorf("%w: input.group_id is required for kafka input", core.ErrConfigInvalid)
		}
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka.brokers is required when input.type=kafka", core.ErrConfigInvalid)
		}
		if cfg.Input.StartOffset != "earliest" && cfg.Input.StartOffset != "latest" {
			return fmt.Errorf("%w: invalid input.start_offset: %s (must be earliest/latest)", core.ErrConfigInvalid, cfg.Input.StartOffset)
		}
	default:
		return fmt.Errorf("%w: unsupported input.type: %s (must be file/kafka)", core.ErrConfigInvalid, cfg.Input.Type)
	}

	// ── Output validation ──
	if err := cfg.validateOutput("data", &cfg.Outputs.Data); err != nil {
		return err
	}
	if err := cfg.validateOutput("time", &cfg.Outputs.Time); err != nil {
		return err
	}

	// ── Kafka validation ──
	switch cfg.Kafka.Compression {
	case "", "none", "gzip", "snappy", "lz4":
	default:
		return fmt.Errorf("%w: invalid kafka.compression: %s", core.ErrConfigInvalid, cfg.Kafka.Compression)
	}
	if _, err := cfg.KafkaBatchTimeout(); err != nil {
		return err
	}

	// ── Buffer validation ──
	if cfg.Buffer.MaxMessageBytes <= 0 {
		return fmt.Errorf("%w: buffer.max_message_bytes must be positive", core.ErrConfigInvalid)
	}

	return nil
}

func (cfg *GlobalConfig) validateOutput(name string, out *OutputConfig) error {
	if out.Type == "" {
		out.Type = PortDiscard
	}
	switch out.Type {
	case PortFile:
		if out.Path == "" {
			return fmt.Errorf("%w: outputs.%s.path is required for file output", core.ErrConfigInvalid, name)
		}
	case PortKafka:
		if out.Topic == "" {
			return fmt.Errorf("%w: outputs.%s.topic is required for kafka output", core.ErrConfigInvalid, name)
		}
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka.brokers is required when outputs.%s.type=kafka", core.ErrConfigInvalid, name)
		}
	case PortDiscard:
	default:
		return fmt.Errorf("%w: unsupported outputs.%s.type: %s (must be file/kafka/discard)", core.ErrConfigInvalid, name, out.Type)
	}
	return nil
}

// PollInterval parses worker.poll_interval.
func (cfg *GlobalConfig) PollInterval() (time.Duration, error) {
	return parseDuration("worker.poll_interval", cfg.Worker.PollInterval)
}

// KafkaBatchTimeout parses kafka.batch_timeout.
func (cfg *GlobalConfig) KafkaBatchTimeout() (time.Duration, error) {
	return parseDuration("kafka.batch_timeout", cfg.Kafka.BatchTimeout)
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %w", core.ErrConfigInvalid, key, err)
	}
	return d, nil
}

// WorkerProperties returns the initial properties handed to the worker's
// Init: the configured property map plus copy_strategy for the time demux.
func (cfg *GlobalConfig) WorkerProperties() map[string]any {
	props := make(map[string]any, len(cfg.Worker.Properties)+1)
	for k, v := range cfg.Worker.Properties {
		props[k] = v
	}
	if cfg.Worker.Name == timedemux.Name {
		if _, ok := props[timedemux.PropCopyStrategy]; !ok {
			props[timedemux.PropCopyStrategy] = cfg.Worker.CopyStrategy
		}
	}
	return props
}
