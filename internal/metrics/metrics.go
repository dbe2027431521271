// Package metrics provides lightweight, lock-free counters for the
// operations a session executes and the bytes it moves.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one or more sessions.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	operations        atomic.Int64
	cancellations     atomic.Int64
	connectRetries    atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	byOperation  map[string]int64
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		startTime:   time.Now(),
		byOperation: make(map[string]int64),
	}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
// A listening socket counts as a connection.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open sockets.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime socket count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Operation metrics ────────────────────────────────────────────────

// OperationExecuted records one finished operation by name.
func (c *Collector) OperationExecuted(op string) {
	if c == nil {
		return
	}
	c.operations.Add(1)
	c.mu.Lock()
	c.byOperation[strings.ToLower(op)]++
	c.mu.Unlock()
}

// Operations returns the total number of operations executed.
func (c *Collector) Operations() int64 {
	if c == nil {
		return 0
	}
	return c.operations.Load()
}

// OperationCount returns how many times op was executed.
func (c *Collector) OperationCount(op string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byOperation[strings.ToLower(op)]
}

// Cancelled records an operation aborted by cancellation.
func (c *Collector) Cancelled() {
	if c == nil {
		return
	}
	c.cancellations.Add(1)
}

// Cancellations returns the number of cancelled operations.
func (c *Collector) Cancellations() int64 {
	if c == nil {
		return 0
	}
	return c.cancellations.Load()
}

// ConnectRetry records a retried CONNECT attempt.
func (c *Collector) ConnectRetry() {
	if c == nil {
		return
	}
	c.connectRetries.Add(1)
}

// ConnectRetries returns the total CONNECT retry count.
func (c *Collector) ConnectRetries() int64 {
	if c == nil {
		return 0
	}
	return c.connectRetries.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	ConnectionsActive int64            `json:"connections_active"`
	ConnectionsTotal  int64            `json:"connections_total"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	Operations        int64            `json:"operations"`
	ByOperation       map[string]int64 `json:"by_operation,omitempty"`
	Cancellations     int64            `json:"cancellations"`
	ConnectRetries    int64            `json:"connect_retries"`
	ErrorsTotal       int64            `json:"errors_total"`
	LastError         string           `json:"last_error,omitempty"`
	LastErrorMessage  string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		Operations:        c.operations.Load(),
		Cancellations:     c.cancellations.Load(),
		ConnectRetries:    c.connectRetries.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if len(c.byOperation) > 0 {
		s.ByOperation = make(map[string]int64, len(c.byOperation))
		for k, v := range c.byOperation {
			s.ByOperation[k] = v
		}
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
