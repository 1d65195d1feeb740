package probe

import (
	"bytes"
	"testing"
	"time"

	"github.com/PentesterFlow/wsprobe/internal/logger"
	"github.com/PentesterFlow/wsprobe/internal/metrics"
	"github.com/PentesterFlow/wsprobe/internal/output"
	"github.com/PentesterFlow/wsprobe/internal/session"
)

func TestOptions_Config(t *testing.T) {
	p, err := New(
		WithLogger(logger.Nop()),
		WithEndpoint("ws://localhost:9000/ws"),
		WithHandshakeTimeout(3*time.Second),
		WithReadTimeout(time.Minute),
		WithInsecure(true),
		WithProxy("http://127.0.0.1:8080"),
		WithTrace(true),
		WithOutputFormat("json"),
		WithVerbose(true),
		WithDebug(true),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := p.Config()
	if cfg.Endpoint != "ws://localhost:9000/ws" {
		t.Errorf("Endpoint = %s", cfg.Endpoint)
	}
	if cfg.HandshakeTimeout != 3*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 3s", cfg.HandshakeTimeout)
	}
	if cfg.ReadTimeout != time.Minute {
		t.Errorf("ReadTimeout = %v, want 1m", cfg.ReadTimeout)
	}
	if !cfg.Insecure {
		t.Error("Insecure should be true")
	}
	if cfg.Proxy != "http://127.0.0.1:8080" {
		t.Errorf("Proxy = %s", cfg.Proxy)
	}
	if !cfg.Trace || !cfg.Verbose || !cfg.Debug {
		t.Errorf("flags not set: %+v", cfg)
	}
	if _, ok := p.reporter.(*output.JSONReporter); !ok {
		t.Errorf("reporter = %T, want *output.JSONReporter", p.reporter)
	}
}

func TestOptions_Components(t *testing.T) {
	m := metrics.New()
	store := session.NewMemoryStore()
	rep := output.NewTextReporter(&bytes.Buffer{})
	log := logger.Nop()

	p, err := New(
		WithLogger(log),
		WithMetrics(m),
		WithRecorder(store),
		WithReporter(rep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if p.Metrics() != m {
		t.Error("metrics collector not used")
	}
	if p.recorder != store {
		t.Error("recorder not used")
	}
	if p.reporter != rep {
		t.Error("reporter not used")
	}
	if p.logger != log {
		t.Error("logger not used")
	}
}

func TestOptions_OutputWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(WithLogger(logger.Nop()), WithOutput(&buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.reporter.Connecting("ws://x/ws"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Connecting to ws://x/ws ...\n" {
		t.Errorf("output = %q", buf.String())
	}
}
