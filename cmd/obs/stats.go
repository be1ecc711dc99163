package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/abelbrown/edgeboard/internal/config"
)

// eventStats aggregates one event log.
type eventStats struct {
	Sessions   map[string]struct{}
	Kinds      map[string]int
	Statuses   map[int]int // HTTP status of failed attempts
	SuccessDur time.Duration
	LastPoll   *eventRecord
	First      time.Time
	Last       time.Time
}

func newEventStats() *eventStats {
	return &eventStats{
		Sessions: make(map[string]struct{}),
		Kinds:    make(map[string]int),
		Statuses: make(map[int]int),
	}
}

func (s *eventStats) add(ev eventRecord) {
	if ev.SessionID != "" {
		s.Sessions[ev.SessionID] = struct{}{}
	}
	s.Kinds[ev.Kind]++
	if s.First.IsZero() || ev.Time.Before(s.First) {
		s.First = ev.Time
	}
	if ev.Time.After(s.Last) {
		s.Last = ev.Time
	}

	switch ev.Kind {
	case "poll.success":
		s.SuccessDur += time.Duration(ev.DurMs * float64(time.Millisecond))
		e := ev
		s.LastPoll = &e
	case "poll.retry":
		if ev.Status > 0 {
			s.Statuses[ev.Status]++
		}
	}
}

// meanSuccess is the average duration of successful cycles.
func (s *eventStats) meanSuccess() time.Duration {
	n := s.Kinds["poll.success"]
	if n == 0 {
		return 0
	}
	return s.SuccessDur / time.Duration(n)
}

// successRate is successful cycles over finished cycles.
func (s *eventStats) successRate() float64 {
	ok, failed := s.Kinds["poll.success"], s.Kinds["poll.exhausted"]
	if ok+failed == 0 {
		return 0
	}
	return float64(ok) / float64(ok+failed)
}

func collectStats(r io.Reader) *eventStats {
	s := newEventStats()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		var ev eventRecord
		if json.Unmarshal(scanner.Bytes(), &ev) != nil {
			continue
		}
		s.add(ev)
	}
	return s
}

func (s *eventStats) print(w io.Writer) {
	k := s.Kinds
	fmt.Fprintf(w, "Sessions:              %d\n", len(s.Sessions))
	if !s.First.IsZero() {
		fmt.Fprintf(w, "Span:                  %s .. %s\n", s.First.Local().Format(time.DateTime), s.Last.Local().Format(time.DateTime))
	}

	fmt.Fprintln(w, "\nPoller:")
	fmt.Fprintf(w, "  Triggers:            %d (%d debounced)\n", k["poll.trigger"], k["poll.debounced"])
	fmt.Fprintf(w, "  Cycles ok:           %d\n", k["poll.success"])
	fmt.Fprintf(w, "  Cycles exhausted:    %d\n", k["poll.exhausted"])
	fmt.Fprintf(w, "  Superseded:          %d\n", k["poll.superseded"])
	fmt.Fprintf(w, "  Failed attempts:     %d\n", k["poll.retry"])
	fmt.Fprintf(w, "  Success rate:        %.1f%%\n", s.successRate()*100)
	fmt.Fprintf(w, "  Mean success time:   %dms\n", s.meanSuccess().Milliseconds())
	fmt.Fprintf(w, "  Toasts:              %d\n", k["poll.toast"])
	if s.LastPoll != nil {
		fmt.Fprintf(w, "  Last poll:           %d edges at %s\n", s.LastPoll.Count, s.LastPoll.Time.Local().Format(time.DateTime))
	}

	if len(s.Statuses) > 0 {
		codes := make([]int, 0, len(s.Statuses))
		for c := range s.Statuses {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		fmt.Fprintln(w, "\nFailed attempts by status:")
		for _, c := range codes {
			fmt.Fprintf(w, "  %-8d %d\n", c, s.Statuses[c])
		}
	}

	fmt.Fprintln(w, "\nBets:")
	fmt.Fprintf(w, "  Submitted:           %d\n", k["bet.submit"])
	fmt.Fprintf(w, "  Placed:              %d\n", k["bet.placed"])
	fmt.Fprintf(w, "  Rejected locally:    %d\n", k["bet.rejected"])
	fmt.Fprintf(w, "  Failed:              %d\n", k["bet.error"])
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	path := fs.String("log", config.EventLogPath(), "Event log to read")
	fs.Parse(os.Args[1:])

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	collectStats(f).print(os.Stdout)
}
