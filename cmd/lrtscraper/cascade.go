package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/sertantai/lrt-engine/internal/cascade"
	"github.com/sertantai/lrt-engine/internal/common"
	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/staged"
	"github.com/sertantai/lrt-engine/internal/taxa"
	"github.com/sertantai/lrt-engine/internal/telemetry"
)

// runCascade forces a reparse-and-cascade cycle for one or more named
// laws, without running discovery. Useful for replaying a cascade that
// a prior scrape session's log showed failing, or for manually pushing
// an out-of-band amendment through.
func runCascade(args []string) {
	fs := flag.NewFlagSet("cascade", flag.ExitOnError)
	lawsFlag := fs.String("laws", "", "comma-separated canonical law names to reparse and cascade")
	a := newApp(fs, args)
	defer a.Close()

	names := splitNonEmpty(*lawsFlag)
	if len(names) == 0 {
		a.logger.Fatal().Msg("cascade requires -laws=<name>[,<name>...]")
	}

	ctx := context.Background()
	to := time.Now().UTC()
	sessionID := common.NewSessionID(to, to)

	tracker := cascade.New()
	sink := telemetry.NewLogSink(a.logger)
	classifier := taxa.New(taxa.WithLargeTextThreshold(a.config.Taxa.LargeTextThreshold), taxa.WithTelemetry(sink))
	parser := staged.New(a.fetcher, classifier,
		staged.WithLogger(a.logger),
		staged.WithTelemetry(sink),
		staged.WithCascade(tracker, sessionID),
	)

	for _, name := range names {
		tracker.Record(sessionID, name, models.UpdateReparse, "manual-trigger")
	}

	if err := cascade.Sweep(ctx, tracker, a.repo, sessionID,
		reparserFor(ctx, a, parser), metadataFetcherFor(ctx, a, parser)); err != nil {
		a.logger.Fatal().Err(err).Msg("cascade sweep failed")
	}

	a.logger.Info().Str("session", sessionID).Int("laws", len(names)).Msg("manual cascade complete")
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
