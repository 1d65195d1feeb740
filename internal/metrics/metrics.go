// Package metrics provides metrics collection for probe runs.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates metrics.
type Collector struct {
	// Counters
	runsTotal         atomic.Int64
	connectsTotal     atomic.Int64
	messagesReceived  atomic.Int64
	textMessages      atomic.Int64
	binaryMessages    atomic.Int64
	bytesReceived     atomic.Int64
	errorsTotal       atomic.Int64
	handshakeTimesSum atomic.Int64
	handshakeTimesNum atomic.Int64

	// Gauges
	connected atomic.Bool

	// Error breakdown by kind
	errorCounts map[string]*atomic.Int64
	errorMu     sync.RWMutex

	lastMessage atomic.Int64 // unix nanos

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		errorCounts: make(map[string]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordRun records the start of a probe run.
func (c *Collector) RecordRun() {
	c.runsTotal.Add(1)
}

// RecordConnect records a successful handshake and its duration.
func (c *Collector) RecordConnect(handshake time.Duration) {
	c.connectsTotal.Add(1)
	c.connected.Store(true)
	c.handshakeTimesSum.Add(handshake.Microseconds())
	c.handshakeTimesNum.Add(1)
}

// RecordDisconnect marks the connection as gone.
func (c *Collector) RecordDisconnect() {
	c.connected.Store(false)
}

// RecordMessage records a received message.
func (c *Collector) RecordMessage(kind string, size int) {
	c.messagesReceived.Add(1)
	c.bytesReceived.Add(int64(size))
	c.lastMessage.Store(time.Now().UnixNano())

	switch kind {
	case "text":
		c.textMessages.Add(1)
	case "binary":
		c.binaryMessages.Add(1)
	}
}

// RecordError records a terminal error by kind.
func (c *Collector) RecordError(kind string) {
	c.errorsTotal.Add(1)

	c.errorMu.Lock()
	if c.errorCounts[kind] == nil {
		c.errorCounts[kind] = &atomic.Int64{}
	}
	c.errorCounts[kind].Add(1)
	c.errorMu.Unlock()
}

// GetAverageHandshakeTime returns the average handshake duration.
func (c *Collector) GetAverageHandshakeTime() time.Duration {
	sum := c.handshakeTimesSum.Load()
	num := c.handshakeTimesNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(sum/num) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Timestamp:            time.Now(),
		Uptime:               time.Since(c.startTime),
		RunsTotal:            c.runsTotal.Load(),
		ConnectsTotal:        c.connectsTotal.Load(),
		Connected:            c.connected.Load(),
		MessagesReceived:     c.messagesReceived.Load(),
		TextMessages:         c.textMessages.Load(),
		BinaryMessages:       c.binaryMessages.Load(),
		BytesReceived:        c.bytesReceived.Load(),
		ErrorsTotal:          c.errorsTotal.Load(),
		AverageHandshakeTime: c.GetAverageHandshakeTime(),
		ErrorCounts:          make(map[string]int64),
	}

	if ns := c.lastMessage.Load(); ns != 0 {
		s.LastMessageAt = time.Unix(0, ns)
	}

	c.errorMu.RLock()
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
	}
	c.errorMu.RUnlock()

	return s
}

// Reset resets all metrics.
func (c *Collector) Reset() {
	c.runsTotal.Store(0)
	c.connectsTotal.Store(0)
	c.messagesReceived.Store(0)
	c.textMessages.Store(0)
	c.binaryMessages.Store(0)
	c.bytesReceived.Store(0)
	c.errorsTotal.Store(0)
	c.handshakeTimesSum.Store(0)
	c.handshakeTimesNum.Store(0)
	c.lastMessage.Store(0)
	c.connected.Store(false)

	c.errorMu.Lock()
	c.errorCounts = make(map[string]*atomic.Int64)
	c.errorMu.Unlock()

	c.startTime = time.Now()
}

// Snapshot represents a point-in-time view of metrics.
type Snapshot struct {
	Timestamp            time.Time        `json:"timestamp"`
	Uptime               time.Duration    `json:"uptime"`
	RunsTotal            int64            `json:"runs_total"`
	ConnectsTotal        int64            `json:"connects_total"`
	Connected            bool             `json:"connected"`
	MessagesReceived     int64            `json:"messages_received"`
	TextMessages         int64            `json:"text_messages"`
	BinaryMessages       int64            `json:"binary_messages"`
	BytesReceived        int64            `json:"bytes_received"`
	ErrorsTotal          int64            `json:"errors_total"`
	AverageHandshakeTime time.Duration    `json:"average_handshake_time"`
	LastMessageAt        time.Time        `json:"last_message_at,omitempty"`
	ErrorCounts          map[string]int64 `json:"error_counts"`
}

// Summary returns a flat map suitable for a log event.
func (s *Snapshot) Summary() map[string]interface{} {
	return map[string]interface{}{
		"uptime":            s.Uptime.String(),
		"runs_total":        s.RunsTotal,
		"connects_total":    s.ConnectsTotal,
		"messages_received": s.MessagesReceived,
		"bytes_received":    s.BytesReceived,
		"errors_total":      s.ErrorsTotal,
		"avg_handshake_ms":  s.AverageHandshakeTime.Milliseconds(),
	}
}
