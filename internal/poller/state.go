package poller

import (
	"fmt"
	"time"

	"github.com/abelbrown/edgeboard/internal/edges"
)

// Phase is the poller's fetch lifecycle.
type Phase int

const (
	// Idle means no cycle is running. ErrorMessage may still be set.
	Idle Phase = iota
	// Loading is a cycle with no snapshot yet.
	Loading
	// Refreshing is a cycle while an older snapshot is displayed.
	Refreshing
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Refreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// ToastKind selects the toast color.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastInfo
	ToastError
)

func (k ToastKind) String() string {
	switch k {
	case ToastSuccess:
		return "success"
	case ToastInfo:
		return "info"
	default:
		return "error"
	}
}

// Toast is a transient notification. ID is unique per poller so a consumer
// can show each toast once even if it sees the same State twice.
type Toast struct {
	ID      uint64
	Message string
	Kind    ToastKind
}

// State is an immutable copy of the poller's view of the world.
// Snapshot is shared, never mutated after publication.
type State struct {
	Snapshot      *edges.Snapshot
	Phase         Phase
	ErrorMessage  string
	LastSuccessAt time.Time
	Toast         *Toast
	Attempt       int    // current attempt within the running cycle, 0 when idle
	Version       uint64 // increases with every published change
}

// IsInitialLoading reports a cycle with nothing to show yet.
func (s State) IsInitialLoading() bool {
	return s.Phase == Loading && s.Snapshot == nil
}

// IsRefreshing reports a cycle running behind a displayed snapshot.
func (s State) IsRefreshing() bool {
	return s.Phase == Refreshing
}

// HasData reports whether any snapshot has ever loaded.
func (s State) HasData() bool {
	return s.Snapshot != nil
}

// diffToast returns the toast for a change between two successive snapshots,
// or nil when nothing was added or removed. Additions win over removals.
func diffToast(c edges.Change) *Toast {
	switch {
	case c.Added > 0:
		return &Toast{Message: countMessage(c.Added, "detected"), Kind: ToastSuccess}
	case c.Removed > 0:
		return &Toast{Message: countMessage(c.Removed, "removed"), Kind: ToastInfo}
	}
	return nil
}

func countMessage(n int, verb string) string {
	if n == 1 {
		return "1 edge " + verb + "."
	}
	return fmt.Sprintf("%d edges %s.", n, verb)
}
