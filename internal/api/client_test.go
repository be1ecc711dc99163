package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abelbrown/edgeboard/internal/edges"
)

func TestCurrentEdges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/edges/current" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"edges":[{"type":"prop","player":"A","team":"X","confidence":0.7,"odds":-110}],"summary":{"total_edges":1},"view_only":true}`))
	}))
	defer server.Close()

	c := New(server.URL+"/", 5*time.Second)
	snap, err := c.CurrentEdges(context.Background())
	if err != nil {
		t.Fatalf("CurrentEdges failed: %v", err)
	}
	if snap.Len() != 1 || snap.Edges[0].Key() != "prop-A-X" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if !snap.ViewOnly || snap.Summary.TotalEdges != 1 {
		t.Errorf("flags not decoded: %+v", snap)
	}
}

func TestCurrentEdgesEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	snap, err := New(server.URL, time.Second).CurrentEdges(context.Background())
	if err != nil {
		t.Fatalf("CurrentEdges failed: %v", err)
	}
	if snap.Edges == nil {
		t.Error("edges should default to an empty slice")
	}
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).CurrentEdges(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.Status != http.StatusTooManyRequests || se.Message != "slow down" {
		t.Errorf("unexpected error fields: %+v", se)
	}
	if se.RetryAfter != 30*time.Second || RetryAfter(err) != 30*time.Second {
		t.Errorf("retry after = %v", se.RetryAfter)
	}
	if StatusCode(err) != 429 {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
	if !strings.Contains(err.Error(), "429 Too Many Requests: slow down") {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestMalformedJSONIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).CurrentEdges(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}
	if StatusCode(err) != 0 {
		t.Error("decode failure should not look like a status error")
	}
}

func TestNetworkErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if _, err := New(url, time.Second).CurrentEdges(context.Background()); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestRateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	c := New(server.URL, time.Second, WithRateLimit(0.001, 1))
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("first request should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Health(ctx); err == nil {
		t.Error("second request should fail waiting on the limiter")
	}
}

func TestCreateBet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/bets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		var req BetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.EdgeKey != "prop-A-X" || !req.Stake.Equal(decimal.NewFromInt(25)) {
			t.Errorf("unexpected body: %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Bet{ID: 7, EdgeKey: req.EdgeKey, Stake: req.Stake, Odds: req.Odds, Status: "open"})
	}))
	defer server.Close()

	edge := edges.Edge{Type: "prop", Player: "A", Team: "X"}
	req := NewBetRequest(edge, decimal.NewFromInt(25), decimal.NewFromInt(-110))
	bet, err := New(server.URL, time.Second).CreateBet(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBet failed: %v", err)
	}
	if bet.ID != 7 || bet.Status != "open" {
		t.Errorf("unexpected bet: %+v", bet)
	}
}

func TestCreateBetValidatesLocally(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	edge := edges.Edge{Type: "prop", Player: "A", Team: "X"}

	if _, err := c.CreateBet(context.Background(), NewBetRequest(edge, decimal.Zero, decimal.NewFromInt(120))); !errors.Is(err, ErrNonPositiveStake) {
		t.Errorf("expected ErrNonPositiveStake, got %v", err)
	}
	if _, err := c.CreateBet(context.Background(), NewBetRequest(edge, decimal.NewFromInt(5), decimal.NewFromInt(50))); !errors.Is(err, ErrInvalidOdds) {
		t.Errorf("expected ErrInvalidOdds, got %v", err)
	}
	if called {
		t.Error("invalid bets must not reach the server")
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		stake, odds int64
		want        string
	}{
		{100, -110, "190.91"},
		{100, 150, "250"},
		{20, -200, "30"},
		{10, 100, "20"},
	}
	for _, tt := range tests {
		req := BetRequest{Stake: decimal.NewFromInt(tt.stake), Odds: decimal.NewFromInt(tt.odds)}
		if got := req.Payout(); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Payout(%d @ %d) = %s, want %s", tt.stake, tt.odds, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"120", 2 * time.Minute},
		{"-5", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Hour).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSubscribeAndBets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/subscribe":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "a@b.co" {
				t.Errorf("email = %q", body["email"])
			}
			w.WriteHeader(http.StatusAccepted)
		case "/api/bets":
			w.Write([]byte(`{"bets":[{"id":1,"status":"open"},{"id":2,"status":"won"}]}`))
		}
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	if err := c.Subscribe(context.Background(), "a@b.co"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	bets, err := c.Bets(context.Background())
	if err != nil || len(bets) != 2 || bets[1].Status != "won" {
		t.Errorf("Bets = %+v, %v", bets, err)
	}
}
