// Command edgeboard-dev serves the fixture edges API on :8000 so the
// dashboard can run without a backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelbrown/edgeboard/internal/devserver"
	"github.com/abelbrown/edgeboard/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	churn := flag.Bool("churn", false, "drop the last edge on every other fetch")
	failFirst := flag.Int("fail", 0, "fail this many fetches at startup")
	retryAfter := flag.Duration("retry-after", 0, "Retry-After sent with scripted failures")
	viewOnly := flag.Bool("view-only", false, "refuse bets with 403")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logging.InitWriter(os.Stderr, logging.ParseLevel(*level))

	opts := []devserver.Option{devserver.WithLogger(logging.WithPrefix("devserver"))}
	if *churn {
		opts = append(opts, devserver.WithChurn())
	}
	srv, err := devserver.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "edgeboard-dev: %v\n", err)
		os.Exit(1)
	}
	if *failFirst > 0 {
		srv.FailNext(*failFirst, http.StatusServiceUnavailable, *retryAfter)
	}
	srv.SetViewOnly(*viewOnly)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		logging.Error("server stopped", "err", err)
		os.Exit(1)
	}
	logging.Info("shut down", "uptime", time.Since(start).Round(time.Second), "polls", srv.Polls(), "bets", len(srv.Bets()))
}
