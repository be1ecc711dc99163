// Package edges defines the betting-edge data model served by the edges API.
//
// A Snapshot is the full payload of one poll. Snapshots are never patched:
// every successful poll decodes a new one and replaces the previous wholesale.
package edges

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Edge is one recommended betting edge.
type Edge struct {
	Type          string         `json:"type"`
	Player        string         `json:"player"`
	Team          string         `json:"team"`
	Opponent      string         `json:"opponent,omitempty"`
	Confidence    Score          `json:"confidence"`
	ExpectedValue Score          `json:"expected_value"`
	Line          Value          `json:"line"`
	Odds          Value          `json:"odds"`
	Reasoning     string         `json:"reasoning,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Metrics       map[string]any `json:"metrics,omitempty"`
}

// Key returns the composite identity used for diffing successive snapshots.
// The server does not assign ids, so two edges sharing type, player and team
// are treated as the same edge.
func (e Edge) Key() string {
	return e.Type + "-" + e.Player + "-" + e.Team
}

// ConfidenceScore returns Confidence, or 0 when it is NaN or infinite.
func (e Edge) ConfidenceScore() float64 {
	return Finite(float64(e.Confidence))
}

// EV returns ExpectedValue, or 0 when it is NaN or infinite.
func (e Edge) EV() float64 {
	return Finite(float64(e.ExpectedValue))
}

// Matchup renders "Team vs Opponent", or just the team when no opponent is known.
func (e Edge) Matchup() string {
	if e.Opponent == "" {
		return e.Team
	}
	return e.Team + " vs " + e.Opponent
}

// Finite maps NaN and ±Inf to 0.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Metric is one flattened entry of an edge's metrics map.
type Metric struct {
	Key   string
	Value string
}

// FlattenMetrics walks a nested metrics map and returns dotted keys in sorted
// order. Scalars are formatted with %v; floats use up to 4 significant decimals.
func FlattenMetrics(m map[string]any) []Metric {
	var out []Metric
	flatten("", m, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func flatten(prefix string, m map[string]any, out *[]Metric) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			*out = append(*out, Metric{Key: key, Value: "-"})
		case float64:
			*out = append(*out, Metric{Key: key, Value: formatFloat(val)})
		default:
			*out = append(*out, Metric{Key: key, Value: fmt.Sprintf("%v", val)})
		}
	}
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
