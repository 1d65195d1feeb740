package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	perrors "github.com/PentesterFlow/wsprobe/internal/errors"
	"github.com/PentesterFlow/wsprobe/internal/logger"
	"github.com/PentesterFlow/wsprobe/internal/metrics"
	"github.com/PentesterFlow/wsprobe/internal/output"
	"github.com/PentesterFlow/wsprobe/internal/session"
	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

// ErrAlreadyRunning is the terminal error of a Run started while another is active.
var ErrAlreadyRunning = fmt.Errorf("probe is already running")

// Probe connects to one endpoint and reports what it receives.
type Probe struct {
	config   *Config
	reporter output.Reporter
	out      io.Writer
	logger   *logger.Logger
	metrics  *metrics.Collector
	recorder session.Recorder

	running atomic.Bool
}

// New creates a new probe with the given options.
func New(opts ...Option) (*Probe, error) {
	p := &Probe{
		config: DefaultConfig(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Validate config
	if err := p.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if p.logger == nil {
		logLevel := logger.WarnLevel
		if p.config.Debug || p.config.Trace {
			logLevel = logger.DebugLevel
		} else if p.config.Verbose {
			logLevel = logger.InfoLevel
		}
		p.logger = logger.New(logger.Config{
			Level:     logLevel,
			Pretty:    true,
			Component: "probe",
		})
	}

	if p.metrics == nil {
		p.metrics = metrics.New()
	}

	if p.reporter == nil {
		if p.out == nil {
			p.out = os.Stdout
		}
		r, err := output.NewReporter(p.out, output.Config{
			Format: p.config.Output.Format,
			Pretty: p.config.Output.Pretty,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create reporter: %w", err)
		}
		p.reporter = r
	}

	return p, nil
}

// Run connects once and reports every inbound message until the connection
// fails or ctx is cancelled. It never retries. Each call dials a fresh
// connection, and the connection is closed before Run returns.
func (p *Probe) Run(ctx context.Context) *Result {
	endpoint := p.config.Endpoint
	res := &Result{
		Endpoint:  endpoint,
		StartedAt: time.Now(),
	}

	if !p.running.CompareAndSwap(false, true) {
		res.Err = ErrAlreadyRunning
		res.EndedAt = res.StartedAt
		return res
	}
	defer p.running.Store(false)

	p.metrics.RecordRun()
	log := p.logger.WithEndpoint(endpoint)

	res.SessionID = p.beginSession(endpoint, log)
	if res.SessionID != "" {
		log = log.WithSession(res.SessionID)
	}

	p.emit(log, p.reporter.Connecting(endpoint))

	start := time.Now()
	conn, _, err := websocket.Dial(ctx, endpoint, p.config.dialOptions(), log)
	if err != nil {
		return p.finish(res, err, log)
	}
	defer conn.Close()

	res.Connected = true
	res.HandshakeTime = time.Since(start)
	p.metrics.RecordConnect(res.HandshakeTime)
	p.markConnected(res.SessionID, log)
	log.Infof("Connected in %v", res.HandshakeTime)

	p.emit(log, p.reporter.Connected())

	for msg, err := range conn.Messages(ctx) {
		if err != nil {
			return p.finish(res, err, log)
		}

		res.Messages++
		res.Bytes += int64(len(msg.Data))
		p.metrics.RecordMessage(msg.Kind, len(msg.Data))
		p.appendMessage(res.SessionID, msg, log)

		p.emit(log, p.reporter.Message(msg))
	}

	return p.finish(res, perrors.New(perrors.ReadFailure, endpoint, fmt.Errorf("message sequence ended")), log)
}

// finish records the terminal error of a run.
func (p *Probe) finish(res *Result, err error, log *logger.Logger) *Result {
	res.Err = err
	res.EndedAt = time.Now()

	kind := perrors.GetKind(err)
	p.metrics.RecordError(kind.String())
	if res.Connected {
		p.metrics.RecordDisconnect()
	}

	if kind == perrors.Cancelled {
		log.Info("Probe cancelled")
		p.finishSession(res.SessionID, kind.String(), "", log)
	} else {
		log.WithError(err).Warnf("Probe ended: %s", kind)
		p.emit(log, p.reporter.Failure(err))
		p.finishSession(res.SessionID, kind.String(), perrors.Describe(err), log)
	}

	log.Debugf("Run finished after %v with %d messages", res.Duration(), res.Messages)

	return res
}

// emit logs a failed status line write; reporting never ends the run.
func (p *Probe) emit(log *logger.Logger, err error) {
	if err != nil {
		log.WithError(err).Warn("Failed to write status line")
	}
}

func (p *Probe) beginSession(endpoint string, log *logger.Logger) string {
	if p.recorder == nil {
		return ""
	}
	id, err := p.recorder.Begin(endpoint)
	if err != nil {
		log.WithError(err).Warn("Failed to begin session")
		return ""
	}
	return id
}

func (p *Probe) markConnected(id string, log *logger.Logger) {
	if p.recorder == nil || id == "" {
		return
	}
	if err := p.recorder.MarkConnected(id); err != nil {
		log.WithError(err).Warn("Failed to record connect")
	}
}

func (p *Probe) appendMessage(id string, msg websocket.Message, log *logger.Logger) {
	if p.recorder == nil || id == "" {
		return
	}
	if err := p.recorder.Append(id, msg); err != nil {
		log.WithError(err).Warnf("Failed to record message %d", msg.Seq)
	}
}

func (p *Probe) finishSession(id, outcome, cause string, log *logger.Logger) {
	if p.recorder == nil || id == "" {
		return
	}
	if err := p.recorder.Finish(id, outcome, cause); err != nil {
		log.WithError(err).Warn("Failed to finish session")
	}
}

// Config returns a copy of the probe's configuration.
func (p *Probe) Config() *Config {
	return p.config.Clone()
}

// Metrics returns the metrics collector.
func (p *Probe) Metrics() *metrics.Collector {
	return p.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the metrics.
func (p *Probe) MetricsSnapshot() *metrics.Snapshot {
	return p.metrics.Snapshot()
}

// IsRunning reports whether a run is in progress.
func (p *Probe) IsRunning() bool {
	return p.running.Load()
}
