package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Risclover/toby/internal/config"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/logging"
	"github.com/Risclover/toby/internal/metrics"
	"github.com/Risclover/toby/internal/mutation"
	"github.com/Risclover/toby/internal/mutations"
	"github.com/Risclover/toby/internal/prefs"
	"github.com/Risclover/toby/internal/querycache"
	"github.com/Risclover/toby/internal/state"
	"github.com/Risclover/toby/internal/ui"
)

// Options configure the toby client.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/toby/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
}

// Run boots the toby TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollEvery = time.Duration(opts.PollEvery) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logs, err := logging.New().ToPath(cfg.LogFile).Level(cfg.LogLevel).Build()
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logs.Close()
	log := logs.Logger
	log.Info().
		Str("api", cfg.APIBaseURL).
		Int64("household_id", cfg.HouseholdID).
		Dur("poll", cfg.PollEvery).
		Msg("starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	client, err := household.NewClient(cfg.APIBaseURL, household.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("init household client: %w", err)
	}

	health := state.NewHealthTracker(nil)
	cacheLog := logging.Component(log, "querycache")
	store := querycache.New(querycache.Options{
		GCDelay:      cfg.GCDelay,
		MaxIdle:      cfg.MaxIdleEntries,
		FetchTimeout: cfg.RequestTimeout,
		Logger:       &cacheLog,
		Observer:     querycache.Observers(m, health),
	})
	defer store.Close()
	store.StartJanitor(ctx)

	orch := mutation.New(store, mutation.WithLogger(log), mutation.WithObserver(m))
	svc := mutations.New(client, orch, mutations.WithLogger(log))

	binding := state.NewBinding(store, client, cfg.HouseholdID,
		state.WithHealth(health),
		state.WithLogger(log),
	)
	binding.Start(ctx)

	poller := NewPoller(store, health, cfg.HouseholdID, cfg.PollEvery, log)
	poller.Start(ctx)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		log.Warn().Err(err).Msg("prefs unreadable, using defaults")
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Binding:   binding,
		Service:   svc,
		Poller:    poller,
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Logger:    logging.Component(log, "ui"),
	})
}
