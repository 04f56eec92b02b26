package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/sertantai/lrt-engine/internal/cascade"
	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/common"
	"github.com/sertantai/lrt-engine/internal/function"
	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/parsers"
	"github.com/sertantai/lrt-engine/internal/session"
	"github.com/sertantai/lrt-engine/internal/staged"
	"github.com/sertantai/lrt-engine/internal/storage/badger"
	"github.com/sertantai/lrt-engine/internal/taxa"
	"github.com/sertantai/lrt-engine/internal/telemetry"
	"github.com/sertantai/lrt-engine/internal/worker"
)

// runScrape executes one discovery+parse+cascade session: discover the
// laws legislation.gov.uk published over the configured lookback
// window, run every one through StagedParser, persist the results,
// apply the Function Calculator's Immediate and Deferred passes, and
// sweep the session's cascade entries before exiting.
func runScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	a := newApp(fs, args)
	defer a.Close()

	runScrapeSession(context.Background(), a, telemetry.NewLogSink(a.logger))
}

// runScrapeSession runs one discovery+parse+cascade session against an
// already-bootstrapped app. Shared by the one-shot scrape subcommand and
// serve's cron trigger, which passes its admin websocket sink instead of
// a plain log sink so connected clients see live progress.
func runScrapeSession(ctx context.Context, a *app, sink telemetry.Sink) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -a.config.Scheduler.LookbackDays)
	sessionID := common.NewSessionID(from, to)

	a.logger.Info().Str("session", sessionID).Time("from", from).Time("to", to).Msg("starting scrape session")

	discovered := discoverLaws(ctx, a, from, to)
	a.logger.Info().Int("count", len(discovered)).Msg("discovered laws for session")

	tracker := cascade.New()
	classifier := taxa.New(taxa.WithLargeTextThreshold(a.config.Taxa.LargeTextThreshold), taxa.WithTelemetry(sink))
	parser := staged.New(a.fetcher, classifier,
		staged.WithLogger(a.logger),
		staged.WithTelemetry(sink),
		staged.WithCascade(tracker, sessionID),
	)

	names := make([]string, 0, len(discovered))
	byName := make(map[string]parsers.DiscoveredLaw, len(discovered))
	for _, law := range discovered {
		name := law.Identity.Name()
		names = append(names, name)
		byName[name] = law
	}

	var mu sync.Mutex
	persisted := make(map[string]*models.LRTRow, len(names))

	pool := worker.New(a.logger, a.config.Workers.Concurrency)
	results := pool.Run(ctx, names, func(ctx context.Context, name string) error {
		law := byName[name]
		row, record, err := parseAndUpsertLaw(ctx, a, parser, law.Identity, "")
		if err != nil {
			_ = a.session.AppendGroup(sessionID, session.GroupExcluded, models.ParsedLaw{"name": name, "error": err.Error()})
			return err
		}

		_ = a.session.AppendRaw(sessionID, record)
		_ = a.session.AppendGroup(sessionID, classificationGroup(record), record)

		if err := parseAndInsertLAT(ctx, a, law.Identity, row); err != nil {
			a.logger.Warn().Err(err).Str("law", name).Msg("LAT parse failed, LRT row still persisted")
		}

		mu.Lock()
		persisted[name] = row
		mu.Unlock()
		return nil
	})

	failCount := 0
	for _, r := range results {
		if r.Err != nil {
			failCount++
		}
	}

	applyDeferredFunctions(ctx, a, persisted)

	if err := cascade.Sweep(ctx, tracker, a.repo, sessionID,
		reparserFor(ctx, a, parser), metadataFetcherFor(ctx, a, parser)); err != nil {
		a.logger.Error().Err(err).Msg("cascade sweep failed")
	}

	_ = a.session.WriteMetadata(sessionID, map[string]interface{}{
		"discovered": len(discovered),
		"parsed":     len(persisted),
		"failed":     failCount,
		"from":       from.Format(time.RFC3339),
		"to":         to.Format(time.RFC3339),
	})

	a.logger.Info().Str("session", sessionID).Int("parsed", len(persisted)).Int("failed", failCount).Msg("scrape session complete")
}

// discoverLaws walks the lookback window day by day against the
// `/new/<yyyy>/<mm>/<dd>` discovery endpoint,
// deduplicating by canonical name across days.
func discoverLaws(ctx context.Context, a *app, from, to time.Time) []parsers.DiscoveredLaw {
	seen := map[string]bool{}
	var all []parsers.DiscoveredLaw

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		path := parsers.DiscoveryPath(day, "")
		body, err := a.fetcher.Get(ctx, path)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("discovery fetch failed, skipping day")
			continue
		}

		laws, err := parsers.ParseDiscoveryList(body, a.logger)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("discovery parse failed, skipping day")
			continue
		}

		for _, law := range laws {
			if seen[law.Identity.Name()] {
				continue
			}
			seen[law.Identity.Name()] = true
			all = append(all, law)
		}
	}
	return all
}

// parseAndUpsertLaw runs the full staged pipeline for identity, derives
// the Immediate function keys, converts the result to an LRT row, and
// persists it. Returns both the row and the raw ParsedLaw record (the
// session scratchpad accumulates the latter).
func parseAndUpsertLaw(ctx context.Context, a *app, parser *staged.Parser, identity citation.Identity, existingTitle string) (*models.LRTRow, models.ParsedLaw, error) {
	result, err := parser.Parse(ctx, identity, existingTitle, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", identity.Name(), err)
	}

	row := badger.ParsedLawToLRTRow(result.Record)
	row.IsMaking = deriveIsMaking(result.Record)
	row.Function = function.Immediate(functionRecordFor(row))

	if err := a.repo.Upsert(ctx, row); err != nil {
		return nil, nil, fmt.Errorf("upsert %s: %w", identity.Name(), err)
	}
	return row, result.Record, nil
}

// parseAndInsertLAT independently fetches the law's body XML and walks
// it into LAT rows. The Commencement tally from the resulting
// rows also backfills is_commencing, which only becomes knowable once
// the LAT walk has run.
func parseAndInsertLAT(ctx context.Context, a *app, identity citation.Identity, row *models.LRTRow) error {
	body, err := a.fetcher.GetWithMadeFallback(ctx, identity.ShortPath()+"/data.xml")
	if err != nil {
		return err
	}

	latRows, err := parsers.ParseLAT(body, identity.Name())
	if err != nil {
		return err
	}
	if err := a.repo.InsertLATBatch(ctx, latRows); err != nil {
		return err
	}

	if isCommencing := deriveIsCommencing(latRows); isCommencing != row.IsCommencing {
		row.IsCommencing = isCommencing
		row.Function = function.Merge(row.Function, function.Immediate(functionRecordFor(row)))
		return a.repo.Upsert(ctx, row)
	}
	return nil
}

// classificationGroup assigns record to one of the three session
// scratchpad groups: group1 for an SI-code match,
// group2 for a term match found only via the taxa classifier's output,
// group3 (excluded) for neither.
func classificationGroup(record models.ParsedLaw) string {
	if len(record.GetStringSlice("si_code")) > 0 {
		return session.GroupIncludedWithSI
	}
	if deriveIsMaking(record) {
		return session.GroupIncludedWithoutSI
	}
	return session.GroupExcluded
}

// applyDeferredFunctions runs the Function Calculator's Deferred pass
// once every law in this session
// has had its is_making flag persisted: a single batched lookup across
// the union of every record's amending/rescinding targets, merged into
// each record's already-persisted Immediate contribution.
func applyDeferredFunctions(ctx context.Context, a *app, rows map[string]*models.LRTRow) {
	if len(rows) == 0 {
		return
	}

	records := make([]function.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, functionRecordFor(row))
	}

	deferred := function.Deferred(records, lookupIsMaking(ctx, a.repo))

	for name, row := range rows {
		merged := function.Merge(row.Function, deferred[name])
		if mapsEqual(row.Function, merged) {
			continue
		}
		row.Function = merged
		if err := a.repo.Upsert(ctx, row); err != nil {
			a.logger.Warn().Err(err).Str("law", name).Msg("failed to persist deferred function map")
		}
	}
}

func mapsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// reparserFor adapts StagedParser into cascade.Reparser: re-run the full
// pipeline for an existing law, preserving its current title.
func reparserFor(ctx context.Context, a *app, parser *staged.Parser) cascade.Reparser {
	return func(ctx context.Context, lawName string) (*models.LRTRow, error) {
		identity, ok := citation.ParseIdentity(lawName)
		if !ok {
			return nil, fmt.Errorf("cascade reparse: %s is not a valid canonical name", lawName)
		}

		existing, found, err := a.repo.GetByName(ctx, lawName)
		if err != nil {
			return nil, err
		}
		existingTitle := ""
		if found {
			existingTitle = existing.Title
		}

		row, _, err := parseAndUpsertLaw(ctx, a, parser, identity, existingTitle)
		return row, err
	}
}

// metadataFetcherFor adapts StagedParser into cascade.MetadataFetcher:
// create a brand-new row for a law the cascade named but that does not
// yet exist in the repository.
func metadataFetcherFor(ctx context.Context, a *app, parser *staged.Parser) cascade.MetadataFetcher {
	return func(ctx context.Context, lawName string) (*models.LRTRow, error) {
		identity, ok := citation.ParseIdentity(lawName)
		if !ok {
			return nil, fmt.Errorf("cascade metadata fetch: %s is not a valid canonical name", lawName)
		}
		row, _, err := parseAndUpsertLaw(ctx, a, parser, identity, "")
		return row, err
	}
}
