// Command obs is the debugging CLI for edgeboard.
//
// Usage:
//
//	obs                     Show help
//	obs events              JSONL event log viewer
//	obs stats               Poller and bet statistics from the event log
//	obs edges               Current edges through the filter projection
//	obs health              API health check
package main

import (
	"fmt"
	"os"
)

const usage = `obs: edgeboard debug CLI

Usage:
  obs <command> [flags]

Commands:
  events      JSONL event log viewer
  stats       Poller and bet statistics from the event log
  edges       Fetch current edges and print them sorted and filtered
  health      Check the edges API

Environment:
  EDGEBOARD_API_URL   API base URL (also read from ~/.edgeboard/config and .env)

Run 'obs <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "events":
		runEvents()
	case "stats":
		runStats()
	case "edges":
		runEdges()
	case "health":
		runHealth()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "obs: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
