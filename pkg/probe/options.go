package probe

import (
	"fmt"
	"io"
	"time"

	"github.com/PentesterFlow/wsprobe/internal/logger"
	"github.com/PentesterFlow/wsprobe/internal/metrics"
	"github.com/PentesterFlow/wsprobe/internal/output"
	"github.com/PentesterFlow/wsprobe/internal/session"
)

// Option is a functional option for configuring the Probe.
type Option func(*Probe) error

// WithConfig replaces the whole configuration.
func WithConfig(cfg *Config) Option {
	return func(p *Probe) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		p.config = cfg.Clone()
		return nil
	}
}

// WithEndpoint sets the endpoint to connect to.
func WithEndpoint(url string) Option {
	return func(p *Probe) error {
		p.config.Endpoint = url
		return nil
	}
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(p *Probe) error {
		p.config.HandshakeTimeout = timeout
		return nil
	}
}

// WithReadTimeout bounds each blocking read.
func WithReadTimeout(timeout time.Duration) Option {
	return func(p *Probe) error {
		p.config.ReadTimeout = timeout
		return nil
	}
}

// WithInsecure disables TLS certificate verification.
func WithInsecure(insecure bool) Option {
	return func(p *Probe) error {
		p.config.Insecure = insecure
		return nil
	}
}

// WithProxy sets the proxy URL.
func WithProxy(proxyURL string) Option {
	return func(p *Probe) error {
		p.config.Proxy = proxyURL
		return nil
	}
}

// WithTrace enables handshake and frame tracing.
func WithTrace(trace bool) Option {
	return func(p *Probe) error {
		p.config.Trace = trace
		return nil
	}
}

// WithOutputFormat sets the status line format.
func WithOutputFormat(format string) Option {
	return func(p *Probe) error {
		p.config.Output.Format = format
		return nil
	}
}

// WithOutput sets the writer that status lines go to.
func WithOutput(w io.Writer) Option {
	return func(p *Probe) error {
		p.out = w
		return nil
	}
}

// WithReporter sets the reporter directly, overriding the output format.
func WithReporter(r output.Reporter) Option {
	return func(p *Probe) error {
		p.reporter = r
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Probe) error {
		p.logger = l
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Probe) error {
		p.metrics = m
		return nil
	}
}

// WithRecorder records every run into r.
func WithRecorder(r session.Recorder) Option {
	return func(p *Probe) error {
		p.recorder = r
		return nil
	}
}

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(p *Probe) error {
		p.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(p *Probe) error {
		p.config.Debug = debug
		return nil
	}
}
