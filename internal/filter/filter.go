// Package filter provides pure filter and sort functions for edges.
// All functions are simple: []Edge in, []Edge out. No side effects.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/abelbrown/edgeboard/internal/edges"
)

// All matches every edge type or team.
const All = "all"

// SortKey selects the order of the projected list.
type SortKey int

const (
	SortDefault SortKey = iota // server order
	SortConfidence
	SortExpectedValue
	SortAlphabetical
)

var sortNames = [...]string{"default", "confidence", "expected_value", "alphabetical"}
var sortLabels = [...]string{"Default", "Confidence", "Expected value", "A-Z"}

func (k SortKey) String() string {
	if k < 0 || int(k) >= len(sortNames) {
		return sortNames[SortDefault]
	}
	return sortNames[k]
}

// Label is the human name shown in the controls.
func (k SortKey) Label() string {
	if k < 0 || int(k) >= len(sortLabels) {
		return sortLabels[SortDefault]
	}
	return sortLabels[k]
}

// Next returns the following sort key, wrapping around.
func (k SortKey) Next() SortKey {
	return SortKey((int(k) + 1) % len(sortNames))
}

// ParseSortKey accepts the names returned by String.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range sortNames {
		if s == name {
			return SortKey(i), nil
		}
	}
	return SortDefault, fmt.Errorf("unknown sort key %q", s)
}

// State is the user's filter selection.
type State struct {
	Sort     SortKey
	EdgeType string // All or an exact type
	Team     string // All or an exact team
	Search   string
}

// Default is the selection restored by "Reset filters".
func Default() State {
	return State{Sort: SortDefault, EdgeType: All, Team: All}
}

// IsDefault reports whether s shows the server list unchanged.
func (s State) IsDefault() bool {
	return s.Sort == SortDefault && isAll(s.EdgeType) && isAll(s.Team) && strings.TrimSpace(s.Search) == ""
}

// Matches reports whether e passes the type, team and search filters.
func (s State) Matches(e edges.Edge) bool {
	if !isAll(s.EdgeType) && e.Type != s.EdgeType {
		return false
	}
	if !isAll(s.Team) && e.Team != s.Team {
		return false
	}
	return matchesSearch(e, normalizeQuery(s.Search))
}

// Apply returns the edges of list that pass s, in s.Sort order.
// The result is a new slice; list is not modified.
func Apply(list []edges.Edge, s State) []edges.Edge {
	result := make([]edges.Edge, 0, len(list))
	for _, e := range list {
		if s.Matches(e) {
			result = append(result, e)
		}
	}
	SortBy(result, s.Sort)
	return result
}

// SortBy orders list in place. Ties keep their relative order.
func SortBy(list []edges.Edge, key SortKey) {
	switch key {
	case SortConfidence:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].ConfidenceScore() > list[j].ConfidenceScore()
		})
	case SortExpectedValue:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].EV() > list[j].EV()
		})
	case SortAlphabetical:
		// Collators keep internal buffers and are not safe to share.
		c := collate.New(language.Und)
		sort.SliceStable(list, func(i, j int) bool {
			return c.CompareString(list[i].Player, list[j].Player) < 0
		})
	}
}

// Facets returns the distinct types and teams of the unfiltered list,
// each sorted. Empty values are skipped.
func Facets(list []edges.Edge) (types, teams []string) {
	return distinct(list, func(e edges.Edge) string { return e.Type }),
		distinct(list, func(e edges.Edge) string { return e.Team })
}

// Cycle returns the option after current in [All, options...], wrapping.
// An unknown current restarts at All.
func Cycle(options []string, current string) string {
	if isAll(current) {
		if len(options) == 0 {
			return All
		}
		return options[0]
	}
	for i, o := range options {
		if o == current {
			if i+1 < len(options) {
				return options[i+1]
			}
			return All
		}
	}
	return All
}

func distinct(list []edges.Edge, field func(edges.Edge) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, e := range list {
		v := field(e)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func isAll(v string) bool {
	return v == "" || v == All
}

// normalizeQuery lowercases q and trims it, so a whitespace-only query
// matches everything.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func matchesSearch(e edges.Edge, q string) bool {
	if q == "" {
		return true
	}
	for _, field := range []string{e.Player, e.Team, e.Type} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
