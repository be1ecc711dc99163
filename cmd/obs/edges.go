package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abelbrown/edgeboard/internal/edges"
	"github.com/abelbrown/edgeboard/internal/filter"
)

func runEdges() {
	fs := flag.NewFlagSet("edges", flag.ExitOnError)
	sortName := fs.String("sort", "default", "Sort: default, confidence, expected_value, alphabetical")
	edgeType := fs.String("type", "", "Only this edge type")
	team := fs.String("team", "", "Only this team")
	search := fs.String("search", "", "Case-insensitive player/team/type search")
	facets := fs.Bool("facets", false, "Also list the available types and teams")
	fs.Parse(os.Args[1:])

	key, err := filter.ParseSortKey(*sortName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg := loadConfig()
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout.Std()+5*time.Second)
	defer cancel()

	snap, err := client.CurrentEdges(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fsState := filter.State{Sort: key, EdgeType: *edgeType, Team: *team, Search: *search}
	shown := filter.Apply(snap.Edges, fsState)
	printEdges(os.Stdout, shown, snap.Len())

	if *facets {
		types, teams := filter.Facets(snap.Edges)
		fmt.Printf("\nTypes: %s\n", strings.Join(types, ", "))
		fmt.Printf("Teams: %s\n", strings.Join(teams, ", "))
	}
}

// printEdges writes list as an aligned table followed by a count line.
func printEdges(w io.Writer, list []edges.Edge, total int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tPLAYER\tMATCHUP\tCONF\tEV\tLINE\tODDS")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%+.1f%%\t%s\t%s\n",
			e.Type,
			truncate(e.Player, 28),
			truncate(e.Matchup(), 24),
			e.ConfidenceScore()*100,
			e.EV()*100,
			e.Line,
			e.Odds,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d edges\n", len(list), total)
}
