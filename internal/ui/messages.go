// Package ui provides the Bubble Tea TUI for edgeboard.
package ui

import (
	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/poller"
)

// PollerUpdated carries a state published by the poller.
// States older than the one on screen are ignored.
type PollerUpdated struct {
	State poller.State
}

// RefreshDone is sent when a manual refresh returns.
// Triggered is false when the debounce window swallowed it.
type RefreshDone struct {
	Triggered bool
}

// ToastExpired hides the toast with the given sequence number.
type ToastExpired struct {
	Seq uint64
}

// BetPlaced is sent when a bet submission finishes.
type BetPlaced struct {
	Bet *api.Bet
	Err error
}
