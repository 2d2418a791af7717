// Package audit records one append-only entry per governed tool call.
// Writes are asynchronous and best-effort: a full queue drops the entry and
// a write failure is logged, but a tool call is never failed or delayed by
// its audit record.
package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a single audit record. Entries are never mutated or deleted;
// each serialises to one self-contained JSONL line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Blocked   bool           `json:"blocked"`
	Reason    string         `json:"reason,omitempty"`
	Success   *bool          `json:"success,omitempty"`
}

// LoggerConfig configures the audit logger.
type LoggerConfig struct {
	// Writer is the JSONL destination. If nil, entries still reach the
	// ring buffer and subscribers (useful for testing).
	Writer io.Writer

	// QueueSize bounds the async write queue. Defaults to 256.
	QueueSize int

	// RingSize bounds the in-memory tail kept for the admin API.
	// Defaults to 256.
	RingSize int

	// Redactor, if non-nil, is applied to argument and reason values
	// before an entry leaves the process.
	Redactor *Redactor

	// Log receives operational warnings (write failures, drops).
	Log *slog.Logger

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// Logger is the audit sink. Record never blocks on I/O: entries go through
// a bounded queue to a single writer goroutine (at-most-once delivery).
type Logger struct {
	queue    chan Entry
	done     chan struct{}
	writer   io.Writer
	redactor *Redactor
	log      *slog.Logger
	now      func() time.Time
	dropped  atomic.Int64

	mu        sync.Mutex
	ring      []Entry
	ringSize  int
	subs      map[int]chan Entry
	nextSubID int
	closed    bool
}

// NewLogger starts the writer goroutine and returns the logger. Call Close
// to drain and stop it.
func NewLogger(cfg LoggerConfig) *Logger {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 256
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Logger{
		queue:    make(chan Entry, cfg.QueueSize),
		done:     make(chan struct{}),
		writer:   cfg.Writer,
		redactor: cfg.Redactor,
		log:      cfg.Log,
		now:      cfg.Now,
		ringSize: cfg.RingSize,
		subs:     make(map[int]chan Entry),
	}
	go l.run()
	return l
}

// Record enqueues an entry. The timestamp is set here so queue latency does
// not skew it. On a full queue the entry is dropped and counted.
func (l *Logger) Record(e Entry) {
	e.Timestamp = l.now()

	if l.redactor != nil {
		e.Reason = l.redactor.Redact(e.Reason)
		e.Args = l.redactor.RedactArgs(e.Args)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.appendRing(e)
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
			// Slow subscribers lose entries rather than stall the call.
		}
	}
	l.mu.Unlock()

	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
		l.log.Warn("audit: queue full, entry dropped", "tool", e.Tool)
	}
}

// appendRing adds an entry to the tail buffer; callers hold the lock.
func (l *Logger) appendRing(e Entry) {
	l.ring = append(l.ring, e)
	if len(l.ring) > l.ringSize {
		l.ring = l.ring[len(l.ring)-l.ringSize:]
	}
}

// Recent returns up to limit entries from the in-memory tail, most recent
// first. A non-positive limit returns the whole tail.
func (l *Logger) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.ring)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, limit)
	for i := range limit {
		out[i] = l.ring[n-1-i]
	}
	return out
}

// Subscribe returns a channel receiving every future entry and a cancel
// function. Slow receivers miss entries; they are never blocked on.
func (l *Logger) Subscribe() (<-chan Entry, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSubID
	l.nextSubID++
	ch := make(chan Entry, 64)
	l.subs[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Dropped returns how many entries were lost to a full queue.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops accepting entries, drains the queue, and stops the writer.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
	l.mu.Unlock()

	close(l.queue)
	<-l.done
}

// run is the single writer goroutine.
func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		if l.writer == nil {
			continue
		}
		if err := json.NewEncoder(l.writer).Encode(e); err != nil {
			l.log.Warn("audit: write failed", "tool", e.Tool, "error", err)
		}
	}
}
