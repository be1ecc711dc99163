package filter

import (
	"math"
	"reflect"
	"testing"

	"github.com/abelbrown/edgeboard/internal/edges"
)

func sample() []edges.Edge {
	return []edges.Edge{
		{Type: "prop", Player: "Ann", Team: "X", Confidence: 0.61, ExpectedValue: 0.02},
		{Type: "spread", Player: "Bo", Team: "Y", Confidence: edges.Score(math.NaN()), ExpectedValue: 0.11},
		{Type: "prop", Player: "carl", Team: "Y", Confidence: 0.83, ExpectedValue: edges.Score(math.Inf(1))},
		{Type: "total", Player: "Dee", Team: "Z", Confidence: 0.61, ExpectedValue: -0.04},
	}
}

func players(list []edges.Edge) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Player
	}
	return out
}

func TestSearchScenario(t *testing.T) {
	list := []edges.Edge{{Player: "Ann", Team: "X"}, {Player: "Bo", Team: "Y"}}
	got := Apply(list, State{Team: All, EdgeType: All, Search: "x"})
	if !reflect.DeepEqual(players(got), []string{"Ann"}) {
		t.Errorf("search x = %v, want [Ann]", players(got))
	}
}

func TestSearchFieldsAndTrim(t *testing.T) {
	list := sample()
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Ann", "Bo", "carl", "Dee"}},
		{"  ", []string{"Ann", "Bo", "carl", "Dee"}},
		{"CARL", []string{"carl"}},
		{"spread", []string{"Bo"}},
		{" y ", []string{"Bo", "carl"}},
		{"nobody", []string{}},
	}
	for _, tt := range tests {
		got := players(Apply(list, State{Search: tt.query}))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("search %q = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestTypeAndTeamFilters(t *testing.T) {
	list := sample()
	if got := players(Apply(list, State{EdgeType: "prop"})); !reflect.DeepEqual(got, []string{"Ann", "carl"}) {
		t.Errorf("type prop = %v", got)
	}
	if got := players(Apply(list, State{Team: "Y"})); !reflect.DeepEqual(got, []string{"Bo", "carl"}) {
		t.Errorf("team Y = %v", got)
	}
	if got := Apply(list, State{Team: All}); len(got) != len(list) {
		t.Errorf("team all kept %d of %d", len(got), len(list))
	}

	s := State{EdgeType: "prop", Team: "Y", Search: "ca"}
	if got := players(Apply(list, s)); !reflect.DeepEqual(got, []string{"carl"}) {
		t.Errorf("combined filters = %v", got)
	}
}

func TestConfidenceSortIsDescending(t *testing.T) {
	got := Apply(sample(), State{Sort: SortConfidence})
	for i := 1; i < len(got); i++ {
		if got[i-1].ConfidenceScore() < got[i].ConfidenceScore() {
			t.Errorf("not descending at %d: %v then %v", i, got[i-1].Confidence, got[i].Confidence)
		}
	}
	// Equal scores keep server order and NaN sorts as 0.
	if want := []string{"carl", "Ann", "Dee", "Bo"}; !reflect.DeepEqual(players(got), want) {
		t.Errorf("order = %v, want %v", players(got), want)
	}
}

func TestExpectedValueSortTreatsInfAsZero(t *testing.T) {
	got := players(Apply(sample(), State{Sort: SortExpectedValue}))
	want := []string{"Bo", "Ann", "carl", "Dee"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestAlphabeticalUsesCollation(t *testing.T) {
	list := []edges.Edge{{Player: "zed"}, {Player: "Émile"}, {Player: "bo"}, {Player: "Carl"}, {Player: "Ann"}}
	got := players(Apply(list, State{Sort: SortAlphabetical}))
	want := []string{"Ann", "bo", "Carl", "Émile", "zed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestDefaultKeepsServerOrder(t *testing.T) {
	list := sample()
	if got := Apply(list, Default()); !reflect.DeepEqual(players(got), players(list)) {
		t.Errorf("default order = %v", players(got))
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	list := sample()
	before := players(list)
	Apply(list, State{Sort: SortAlphabetical})
	if !reflect.DeepEqual(players(list), before) {
		t.Error("Apply reordered its input")
	}
}

func TestApplyIsSubsetAndIdempotent(t *testing.T) {
	list := sample()
	keys := edges.KeySet(list)
	states := []State{
		Default(),
		{Sort: SortConfidence, EdgeType: "prop", Team: All},
		{Sort: SortExpectedValue, Team: "Y"},
		{Sort: SortAlphabetical, Search: "a"},
	}
	for _, s := range states {
		first := Apply(list, s)
		second := Apply(list, s)
		if !reflect.DeepEqual(players(first), players(second)) {
			t.Errorf("%+v: not idempotent: %v vs %v", s, players(first), players(second))
		}
		for _, e := range first {
			if _, ok := keys[e.Key()]; !ok {
				t.Errorf("%+v: %q not in input", s, e.Key())
			}
		}
	}
}

func TestApplyEmpty(t *testing.T) {
	if got := Apply(nil, Default()); got == nil || len(got) != 0 {
		t.Errorf("Apply(nil) = %#v, want empty slice", got)
	}
}

func TestFacets(t *testing.T) {
	list := append(sample(), edges.Edge{Type: "", Team: ""}, edges.Edge{Type: "prop", Team: "X"})
	types, teams := Facets(list)
	if !reflect.DeepEqual(types, []string{"prop", "spread", "total"}) {
		t.Errorf("types = %v", types)
	}
	if !reflect.DeepEqual(teams, []string{"X", "Y", "Z"}) {
		t.Errorf("teams = %v", teams)
	}

	types, teams = Facets(nil)
	if len(types) != 0 || len(teams) != 0 {
		t.Error("empty list should have no facets")
	}
}

func TestCycle(t *testing.T) {
	opts := []string{"prop", "spread"}
	steps := []string{All, "prop", "spread", All}
	for i := 0; i < len(steps)-1; i++ {
		if got := Cycle(opts, steps[i]); got != steps[i+1] {
			t.Errorf("Cycle(%q) = %q, want %q", steps[i], got, steps[i+1])
		}
	}
	if got := Cycle(opts, "gone"); got != All {
		t.Errorf("unknown value should reset to all, got %q", got)
	}
	if got := Cycle(nil, All); got != All {
		t.Errorf("no options should stay all, got %q", got)
	}
}

func TestSortKey(t *testing.T) {
	k := SortDefault
	seen := []string{}
	for i := 0; i < 4; i++ {
		seen = append(seen, k.String())
		k = k.Next()
	}
	if k != SortDefault {
		t.Error("Next should wrap to default")
	}
	if !reflect.DeepEqual(seen, []string{"default", "confidence", "expected_value", "alphabetical"}) {
		t.Errorf("names = %v", seen)
	}

	for _, name := range seen {
		parsed, err := ParseSortKey(name)
		if err != nil || parsed.String() != name {
			t.Errorf("ParseSortKey(%q) = %v, %v", name, parsed, err)
		}
	}
	if _, err := ParseSortKey("random"); err == nil {
		t.Error("expected error for unknown key")
	}
	if SortKey(42).Label() != "Default" {
		t.Error("out of range key should label as default")
	}
}

func TestStateIsDefault(t *testing.T) {
	if !Default().IsDefault() || !(State{}).IsDefault() {
		t.Error("zero and Default states should be default")
	}
	if (State{Search: "a"}).IsDefault() || (State{Team: "X"}).IsDefault() {
		t.Error("non-empty filters are not default")
	}
}
