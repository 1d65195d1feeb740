package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/wsprobe/internal/output"
	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

// DefaultEndpoint is the backend probed when no endpoint is configured.
const DefaultEndpoint = "wss://w3cp.web3-energy.com/w3cp"

// Config holds all probe configuration.
type Config struct {
	// Endpoint to connect to
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Handshake timeout; 0 waits indefinitely
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`

	// Per-read timeout; 0 waits indefinitely
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// Skip TLS certificate verification
	Insecure bool `json:"insecure" yaml:"insecure"`

	// Proxy URL (http, https, socks5)
	Proxy string `json:"proxy" yaml:"proxy"`

	// Log handshake and frame details
	Trace bool `json:"trace" yaml:"trace"`

	// Output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Session database path; empty disables recording
	Record string `json:"record" yaml:"record"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// OutputConfig holds status line configuration.
type OutputConfig struct {
	Format string `json:"format" yaml:"format"` // text, json
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// DefaultConfig returns the configuration of a plain probe run.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Output: OutputConfig{
			Format: output.FormatText,
		},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}

	if _, err := websocket.NormalizeURL(c.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}

	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout must not be negative")
	}

	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative")
	}

	switch c.Output.Format {
	case "", output.FormatText, output.FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}

	if c.Proxy != "" {
		if _, err := websocket.NewDialer(websocket.Options{Proxy: c.Proxy}); err != nil {
			return err
		}
	}

	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// dialOptions returns the connection options for this configuration.
func (c *Config) dialOptions() websocket.Options {
	return websocket.Options{
		HandshakeTimeout: c.HandshakeTimeout,
		ReadTimeout:      c.ReadTimeout,
		Insecure:         c.Insecure,
		Proxy:            c.Proxy,
		Trace:            c.Trace,
	}
}
