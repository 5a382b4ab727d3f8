package config

import (
	"time"

	"github.com/rileyhilliard/vigil/internal/telemetry"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete vigil.yaml configuration file.
type Config struct {
	Version  int                     `yaml:"version" mapstructure:"version"`
	Provider ProviderConfig          `yaml:"provider" mapstructure:"provider"`
	Streams  map[string]StreamConfig `yaml:"streams" mapstructure:"streams"`
	Export   ExportConfig            `yaml:"export" mapstructure:"export"`
	Server   ServerConfig            `yaml:"server" mapstructure:"server"`
	Alerts   AlertsConfig            `yaml:"alerts" mapstructure:"alerts"`
	Archive  ArchiveConfig           `yaml:"archive" mapstructure:"archive"`
}

// ProviderConfig points at the detection API.
type ProviderConfig struct {
	// URL is the base URL of the provider, e.g. http://127.0.0.1:5000.
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout caps each telemetry fetch. Must be shorter than every
	// stream interval.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ScanTimeout caps each on-demand scan.
	ScanTimeout time.Duration `yaml:"scan_timeout" mapstructure:"scan_timeout"`
}

// StreamConfig controls how one telemetry stream is polled.
type StreamConfig struct {
	// Interval between fetch starts.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Capacity is how many readings the history keeps (5-20).
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// ExportConfig controls where exported reports go.
type ExportConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Compress bool   `yaml:"compress" mapstructure:"compress"`
}

// ServerConfig is the HTTP API listener.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// AlertsConfig enables NATS alerts. An empty NATSURL disables them.
type AlertsConfig struct {
	NATSURL string `yaml:"nats_url" mapstructure:"nats_url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// ArchiveConfig enables the SQLite report archive. An empty Path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Capacity bounds for stream history.
const (
	MinCapacity = 5
	MaxCapacity = 20
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Provider: ProviderConfig{
			URL:         "http://127.0.0.1:5000",
			Timeout:     4 * time.Second,
			ScanTimeout: 60 * time.Second,
		},
		Streams: DefaultStreams(),
		Export: ExportConfig{
			Dir: ".",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Alerts: AlertsConfig{
			Subject: "vigil.alerts",
		},
	}
}

// DefaultStreams returns the polling schedule for every stream.
func DefaultStreams() map[string]StreamConfig {
	return map[string]StreamConfig{
		string(telemetry.CPUMemory):   {Interval: 5 * time.Second, Capacity: 10},
		string(telemetry.Traffic):     {Interval: 5 * time.Second, Capacity: 20},
		string(telemetry.Connections): {Interval: 8 * time.Second, Capacity: 10},
		string(telemetry.Processes):   {Interval: 10 * time.Second, Capacity: 10},
	}
}

// Stream returns the settings for id, falling back to the default.
func (c *Config) Stream(id telemetry.StreamID) StreamConfig {
	if s, ok := c.Streams[string(id)]; ok {
		return s
	}
	return DefaultStreams()[string(id)]
}
