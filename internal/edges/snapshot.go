package edges

import (
	"encoding/json"
	"fmt"
	"io"
)

// Summary carries the server's aggregate view of a snapshot.
type Summary struct {
	TotalEdges    int       `json:"total_edges"`
	AvgConfidence float64   `json:"avg_confidence"`
	DataFreshness Value     `json:"data_freshness"`
	GeneratedAt   Timestamp `json:"generated_at"`
}

// Snapshot is the full response of GET /api/edges/current.
// Treat it as immutable once decoded.
type Snapshot struct {
	Edges       []Edge  `json:"edges"`
	Summary     Summary `json:"summary"`
	DataQuality float64 `json:"data_quality"`
	BetaMode    bool    `json:"beta_mode"`
	Disclaimer  string  `json:"disclaimer,omitempty"`
	ViewOnly    bool    `json:"view_only"`
}

// Decode reads one snapshot from r. A missing or null edges array decodes
// as an empty list so callers never have to nil-check it.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Edges == nil {
		s.Edges = []Edge{}
	}
	return &s, nil
}

// Len returns the number of edges, tolerating a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Edges)
}

// Change counts edges that appeared or disappeared between two snapshots.
type Change struct {
	Added   int
	Removed int
}

// KeySet returns the set of composite keys present in list.
func KeySet(list []Edge) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, e := range list {
		set[e.Key()] = struct{}{}
	}
	return set
}

// Diff counts edges of next whose key is absent from prev (Added) and edges
// of prev whose key is absent from next (Removed).
func Diff(prev, next []Edge) Change {
	prevKeys := KeySet(prev)
	nextKeys := KeySet(next)

	var c Change
	for _, e := range next {
		if _, ok := prevKeys[e.Key()]; !ok {
			c.Added++
		}
	}
	for _, e := range prev {
		if _, ok := nextKeys[e.Key()]; !ok {
			c.Removed++
		}
	}
	return c
}
