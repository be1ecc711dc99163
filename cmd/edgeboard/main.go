// Command edgeboard is the terminal dashboard for betting edges.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/config"
	"github.com/abelbrown/edgeboard/internal/logging"
	"github.com/abelbrown/edgeboard/internal/otel"
	"github.com/abelbrown/edgeboard/internal/poller"
	"github.com/abelbrown/edgeboard/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "edgeboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "config file (default ~/.edgeboard/config.json or config.toml)")
	envFile := flag.String("env", "", "dotenv file (default .env)")
	flag.Parse()

	cfg, err := config.Load(config.Options{File: *configFile, EnvFile: *envFile})
	if err != nil {
		return err
	}

	if err := logging.Init(config.LogDir(), logging.ParseLevel(os.Getenv("EDGEBOARD_LOG_LEVEL"))); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	// Event log + ring buffer for the debug overlay
	obs, ring := openEvents()
	defer obs.Close()
	events := obs.For("main")

	baseURL := cfg.API.ResolveBaseURL()
	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Msg:   baseURL,
		Extra: map[string]any{"beta": cfg.Beta.Enabled, "view_only": cfg.Beta.ViewOnly},
	})
	logging.Info("edgeboard starting", "api", baseURL, "interval", cfg.Poll.Interval)

	client := api.New(baseURL, cfg.API.Timeout.Std(), api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The poller is created after the program so its updates can be sent
	// to it; the closures below only run once the program is live.
	var p *poller.Poller

	app := ui.NewAppWithConfig(ui.AppConfig{
		Refresh: func(bypass bool) tea.Cmd {
			return func() tea.Msg {
				return ui.RefreshDone{Triggered: p.TriggerRefresh(ctx, bypass)}
			}
		},
		Resume: func() tea.Cmd {
			return func() tea.Msg {
				return ui.RefreshDone{Triggered: p.Resume(ctx)}
			}
		},
		PlaceBet: func(req api.BetRequest) tea.Cmd {
			return func() tea.Msg {
				bet, err := client.CreateBet(ctx, req)
				return ui.BetPlaced{Bet: bet, Err: err}
			}
		},
		Beta:          cfg.Beta,
		ToastDuration: cfg.UI.ToastDuration.Std(),
		Debug:         cfg.UI.Debug,
		Obs:           ui.ObsConfig{Logger: obs, Ring: ring},
	})

	program := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithMouseCellMotion(),
	)

	p = poller.New(client, cfg.Poll,
		poller.WithLogger(obs),
		poller.WithUpdateFunc(func(s poller.State) {
			program.Send(ui.PollerUpdated{State: s})
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})

	_, runErr := program.Run()
	if runErr != nil {
		logging.Error("Application error", "error", runErr)
	}

	cancel()
	if err := g.Wait(); err != nil {
		logging.Warn("poller stopped with error", "error", err)
	}
	events.Info(otel.KindShutdown, "")
	return runErr
}

// openEvents opens the JSONL event log, falling back to a null logger
// when the file cannot be created. The ring buffer is always live.
func openEvents() (*otel.Logger, *otel.RingBuffer) {
	ring := otel.NewRingBuffer(512)

	path := config.EventLogPath()
	var obs *otel.Logger
	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			obs = otel.NewLogger(f)
		}
	}
	if obs == nil {
		logging.Warn("event log unavailable, using in-memory events only", "path", path)
		obs = otel.NewNullLogger()
	}
	obs.SetRingBuffer(ring)
	return obs, ring
}
