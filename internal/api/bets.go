package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abelbrown/edgeboard/internal/edges"
)

// BetRequest is the body of POST /api/bets.
type BetRequest struct {
	EdgeKey string          `json:"edge_key"`
	Type    string          `json:"type"`
	Player  string          `json:"player"`
	Team    string          `json:"team"`
	Line    edges.Value     `json:"line"`
	Odds    decimal.Decimal `json:"odds"` // American odds, e.g. -110 or +150
	Stake   decimal.Decimal `json:"stake"`
	Notes   string          `json:"notes,omitempty"`
}

// Bet is a recorded bet as returned by the server.
type Bet struct {
	ID       int64           `json:"id"`
	EdgeKey  string          `json:"edge_key"`
	Player   string          `json:"player"`
	Team     string          `json:"team"`
	Odds     decimal.Decimal `json:"odds"`
	Stake    decimal.Decimal `json:"stake"`
	Status   string          `json:"status"`
	PlacedAt time.Time       `json:"placed_at"`
}

var (
	ErrNonPositiveStake = errors.New("stake must be positive")
	ErrInvalidOdds      = errors.New("american odds must be at most -100 or at least +100")
)

// NewBetRequest builds a request for edge e.
func NewBetRequest(e edges.Edge, stake, odds decimal.Decimal) BetRequest {
	return BetRequest{
		EdgeKey: e.Key(),
		Type:    e.Type,
		Player:  e.Player,
		Team:    e.Team,
		Line:    e.Line,
		Odds:    odds,
		Stake:   stake,
	}
}

// Validate checks stake and odds before anything is sent.
func (r BetRequest) Validate() error {
	if !r.Stake.IsPositive() {
		return ErrNonPositiveStake
	}
	if r.Odds.Abs().LessThan(decimal.NewFromInt(100)) {
		return ErrInvalidOdds
	}
	return nil
}

// Payout returns the total return (stake plus profit) if the bet wins.
// Positive odds pay odds/100 per unit staked; negative odds pay 100/|odds|.
func (r BetRequest) Payout() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	var profit decimal.Decimal
	switch {
	case r.Odds.IsPositive():
		profit = r.Stake.Mul(r.Odds).Div(hundred)
	case r.Odds.IsNegative():
		profit = r.Stake.Mul(hundred).Div(r.Odds.Abs())
	}
	return r.Stake.Add(profit).Round(2)
}

// CreateBet posts a bet.
func (c *Client) CreateBet(ctx context.Context, req BetRequest) (*Bet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var bet Bet
	if err := c.Do(ctx, http.MethodPost, "/api/bets", req, &bet); err != nil {
		return nil, err
	}
	return &bet, nil
}

// Bets lists recorded bets via GET /api/bets.
func (c *Client) Bets(ctx context.Context) ([]Bet, error) {
	var resp struct {
		Bets []Bet `json:"bets"`
	}
	if err := c.Do(ctx, http.MethodGet, "/api/bets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bets, nil
}
