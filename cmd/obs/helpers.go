package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/config"
)

// loadConfig loads the same configuration the TUI uses, or fatals.
func loadConfig() *config.Config {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// newClient builds an API client from the loaded configuration.
func newClient(cfg *config.Config) *api.Client {
	return api.New(cfg.API.ResolveBaseURL(), cfg.API.Timeout.Std())
}

func runHealth() {
	cfg := loadConfig()
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	h, err := client.Health(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", client.BaseURL(), err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s", client.BaseURL(), h.Status)
	if h.Version != "" {
		fmt.Printf(" (version %s)", h.Version)
	}
	fmt.Printf(" in %dms\n", time.Since(start).Milliseconds())
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
