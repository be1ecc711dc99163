// Package otel records edgeboard's structured events.
//
// Events are typed structs written as JSONL by an async Logger. An optional
// RingBuffer keeps recent events in memory for the debug overlay.
package otel

import (
	"encoding/json"
	"strings"
	"time"
)

// Level defines event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind is dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Poller
	KindPollTrigger    EventKind = "poll.trigger"
	KindPollDebounced  EventKind = "poll.debounced"
	KindPollStart      EventKind = "poll.start"
	KindPollRetry      EventKind = "poll.retry"
	KindPollSuccess    EventKind = "poll.success"
	KindPollExhausted  EventKind = "poll.exhausted"
	KindPollSuperseded EventKind = "poll.superseded"
	KindToast          EventKind = "poll.toast"

	// Bets
	KindBetSubmit   EventKind = "bet.submit"
	KindBetRejected EventKind = "bet.rejected"
	KindBetPlaced   EventKind = "bet.placed"
	KindBetError    EventKind = "bet.error"

	// UI
	KindKeyPress EventKind = "ui.key"
	KindFocus    EventKind = "ui.focus"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	KindMsgReceived EventKind = "trace.msg_received"
)

// Subsystem returns the part of the kind before the first dot.
func (k EventKind) Subsystem() string {
	s, _, _ := strings.Cut(string(k), ".")
	return s
}

// Event is one observability record. Only Kind and Time are required.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "poller", "ui", "api", "main"
	SessionID string         `json:"session_id,omitempty"`
	Gen       uint64         `json:"gen,omitempty"` // poll cycle generation
	Attempt   int            `json:"attempt,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Added     int            `json:"added,omitempty"`
	Removed   int            `json:"removed,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status, when one is known
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
