package main

import (
	"flag"

	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/common"
	"github.com/sertantai/lrt-engine/internal/fetcher"
	"github.com/sertantai/lrt-engine/internal/interfaces"
	"github.com/sertantai/lrt-engine/internal/session"
	"github.com/sertantai/lrt-engine/internal/storage"
)

// app wires together every collaborator a subcommand needs: config,
// logger, repository, upstream fetcher, and the session scratchpad.
// Startup order is config -> logger -> dependent collaborators, factored
// out so serve, scrape, and cascade share one bootstrap instead of
// repeating it.
type app struct {
	config  *common.Config
	logger  arbor.ILogger
	repo    interfaces.Repository
	closer  storage.Closer
	fetcher interfaces.Fetcher
	session *session.Store
}

// newApp parses -config from args on fs, loads configuration, and wires
// every collaborator. Calls logger.Fatal (os.Exit(1)) on any setup
// error, since there is no way to run without them.
func newApp(fs *flag.FlagSet, args []string) *app {
	configPath := fs.String("config", "", "configuration file path (toml)")
	if err := fs.Parse(args); err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("failed to parse command-line flags")
	}

	config, err := common.LoadFromFile(*configPath)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Str("config", *configPath).Msg("failed to load configuration")
	}

	logger := common.SetupLogger(config)

	repo, closer, err := storage.New(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage backend")
	}

	client := fetcher.New(config.Fetcher.BaseURL, config.Fetcher.UserAgent,
		fetcher.WithLogger(logger),
		fetcher.WithRateLimit(config.Fetcher.RequestsPerSecond),
		fetcher.WithRetryPolicy(fetcher.RetryPolicy{
			InitialDelay: config.Fetcher.RetryInitialDelay,
			Factor:       config.Fetcher.RetryFactor,
			MaxAttempts:  config.Fetcher.RetryMaxAttempts,
			MaxDelay:     config.Fetcher.RetryMaxDelay,
		}),
	)

	store, err := session.New(config.Session.RootDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session scratchpad store")
	}

	return &app{config: config, logger: logger, repo: repo, closer: closer, fetcher: client, session: store}
}

// Close releases the repository's backing resources and flushes the
// logger. Safe to defer immediately after newApp.
func (a *app) Close() {
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing storage backend")
		}
	}
	common.Stop()
}
