package otel

// The drain goroutine is the only reader of l.ch and the only writer to l.w.
// l.mu guards the l.ring pointer alone; RingBuffer has its own lock and drain
// releases l.mu before pushing.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// queueSize bounds the async write queue. Emit drops when it is full.
const queueSize = 2048

type queued struct {
	line []byte
	ev   Event
}

// Logger writes events as JSONL through a background goroutine.
// Safe for concurrent use. A nil *Logger discards everything, so components
// can take one optionally.
type Logger struct {
	mu        sync.Mutex
	ring      *RingBuffer
	sessionID string
	ch        chan queued
	w         io.Writer
	dropped   atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogger starts a Logger writing to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		ch:        make(chan queued, queueSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger returns a Logger that only feeds its ring buffer, if any.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) drain() {
	defer close(l.done)
	for q := range l.ch {
		if _, err := l.w.Write(q.line); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()

		if ring != nil {
			ring.Push(q.ev)
		}
	}
}

// Emit queues e, stamping Time (if zero) and SessionID. Never blocks.
// Events emitted after or concurrently with Close are counted as dropped.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	line = append(line, '\n')

	select {
	case l.ch <- queued{line: line, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// For returns an Emitter that stamps every event with comp.
func (l *Logger) For(comp string) Emitter {
	return Emitter{l: l, comp: comp}
}

// SessionID identifies this run in the event log.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// SetRingBuffer attaches a ring buffer for live inspection.
func (l *Logger) SetRingBuffer(r *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = r
}

// Dropped returns the number of events lost so far.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes queued events and stops the drain goroutine.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "edgeboard: %d events dropped in session %s\n", d, l.sessionID)
		}
	})
}

// Emitter is a Logger bound to one component.
type Emitter struct {
	l    *Logger
	comp string
}

// Emit stamps Comp and forwards to the Logger.
func (em Emitter) Emit(e Event) {
	if e.Comp == "" {
		e.Comp = em.comp
	}
	em.l.Emit(e)
}

func (em Emitter) Info(kind EventKind, msg string) {
	em.Emit(Event{Level: LevelInfo, Kind: kind, Msg: msg})
}

func (em Emitter) Warn(kind EventKind, msg string) {
	em.Emit(Event{Level: LevelWarn, Kind: kind, Msg: msg})
}

// Error records err.Error(); a nil err is recorded as an empty string.
func (em Emitter) Error(kind EventKind, err error) {
	var s string
	if err != nil {
		s = err.Error()
	}
	em.Emit(Event{Level: LevelError, Kind: kind, Err: s})
}
