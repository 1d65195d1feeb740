package probe

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DefaultConfig Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if config.Endpoint != "wss://w3cp.web3-energy.com/w3cp" {
		t.Errorf("Endpoint = %s, want wss://w3cp.web3-energy.com/w3cp", config.Endpoint)
	}
	if config.HandshakeTimeout != 0 {
		t.Errorf("HandshakeTimeout = %v, want 0", config.HandshakeTimeout)
	}
	if config.ReadTimeout != 0 {
		t.Errorf("ReadTimeout = %v, want 0", config.ReadTimeout)
	}
	if config.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", config.Output.Format)
	}
	if config.Record != "" {
		t.Errorf("Record = %s, want empty", config.Record)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

// =============================================================================
// LoadFromFile Tests
// =============================================================================

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	content := `
endpoint: ws://localhost:9000/ws
handshake_timeout: 5s
read_timeout: 1m
insecure: true
proxy: socks5://127.0.0.1:1080
trace: true
output:
  format: json
  pretty: true
record: /tmp/sessions.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if config.Endpoint != "ws://localhost:9000/ws" {
		t.Errorf("Endpoint = %s", config.Endpoint)
	}
	if config.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 5s", config.HandshakeTimeout)
	}
	if config.ReadTimeout != time.Minute {
		t.Errorf("ReadTimeout = %v, want 1m", config.ReadTimeout)
	}
	if !config.Insecure {
		t.Error("Insecure should be true")
	}
	if config.Proxy != "socks5://127.0.0.1:1080" {
		t.Errorf("Proxy = %s", config.Proxy)
	}
	if !config.Trace {
		t.Error("Trace should be true")
	}
	if config.Output.Format != "json" || !config.Output.Pretty {
		t.Errorf("Output = %+v", config.Output)
	}
	if config.Record != "/tmp/sessions.db" {
		t.Errorf("Record = %s", config.Record)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	if err := os.WriteFile(path, []byte("trace: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if config.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %s, want default", config.Endpoint)
	}
	if config.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", config.Output.Format)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.json")
	content := `{"endpoint": "wss://example.com/ws", "read_timeout": 2000000000, "output": {"format": "json"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if config.Endpoint != "wss://example.com/ws" {
		t.Errorf("Endpoint = %s", config.Endpoint)
	}
	if config.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", config.ReadTimeout)
	}
	if config.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", config.Output.Format)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("endpoint: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestSaveToFile(t *testing.T) {
	for _, name := range []string{"probe.yaml", "probe.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			config := DefaultConfig()
			config.Endpoint = "ws://localhost:1234/ws"
			config.ReadTimeout = 3 * time.Second

			if err := config.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile() error = %v", err)
			}

			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile() error = %v", err)
			}
			if loaded.Endpoint != config.Endpoint {
				t.Errorf("Endpoint = %s, want %s", loaded.Endpoint, config.Endpoint)
			}
			if loaded.ReadTimeout != config.ReadTimeout {
				t.Errorf("ReadTimeout = %v, want %v", loaded.ReadTimeout, config.ReadTimeout)
			}
		})
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"ws endpoint", func(c *Config) { c.Endpoint = "ws://localhost:8080/ws" }, false},
		{"https endpoint", func(c *Config) { c.Endpoint = "https://example.com/ws" }, false},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"unsupported scheme", func(c *Config) { c.Endpoint = "ftp://example.com" }, true},
		{"missing host", func(c *Config) { c.Endpoint = "wss:///path" }, true},
		{"negative handshake timeout", func(c *Config) { c.HandshakeTimeout = -time.Second }, true},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -time.Second }, true},
		{"json format", func(c *Config) { c.Output.Format = "json" }, false},
		{"unknown format", func(c *Config) { c.Output.Format = "csv" }, true},
		{"http proxy", func(c *Config) { c.Proxy = "http://127.0.0.1:8080" }, false},
		{"socks5 proxy", func(c *Config) { c.Proxy = "socks5://127.0.0.1:1080" }, false},
		{"unsupported proxy", func(c *Config) { c.Proxy = "ftp://127.0.0.1:21" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	config := DefaultConfig()
	config.Proxy = "http://127.0.0.1:8080"

	clone := config.Clone()
	clone.Endpoint = "ws://other/ws"
	clone.Output.Format = "json"

	if config.Endpoint != DefaultEndpoint {
		t.Error("modifying clone changed source endpoint")
	}
	if config.Output.Format != "text" {
		t.Error("modifying clone changed source output")
	}
	if clone.Proxy != config.Proxy {
		t.Errorf("clone.Proxy = %s, want %s", clone.Proxy, config.Proxy)
	}
}

func TestConfig_DialOptions(t *testing.T) {
	config := DefaultConfig()
	config.HandshakeTimeout = time.Second
	config.ReadTimeout = 2 * time.Second
	config.Insecure = true
	config.Trace = true

	opts := config.dialOptions()
	if opts.HandshakeTimeout != time.Second || opts.ReadTimeout != 2*time.Second {
		t.Errorf("timeouts = %v/%v", opts.HandshakeTimeout, opts.ReadTimeout)
	}
	if !opts.Insecure || !opts.Trace {
		t.Errorf("flags not carried: %+v", opts)
	}
}
