package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nightwatch-obs/alert-radar/internal/broker"
	"github.com/nightwatch-obs/alert-radar/internal/config"
	"github.com/nightwatch-obs/alert-radar/internal/dedupe"
	"github.com/nightwatch-obs/alert-radar/internal/elasticsearch"
	"github.com/nightwatch-obs/alert-radar/internal/logger"
	"github.com/nightwatch-obs/alert-radar/internal/models"
)

type alertIndexer interface {
	IndexAlert(ctx context.Context, alert models.Alert) error
}

type alertSearcher interface {
	SearchAlerts(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

func main() {
	log := logger.New("harvester")
	cfg, err := config.LoadHarvester()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.AlertIndex, cfg.AggregationIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)
	registry := broker.NewRegistry(log,
		broker.NewLasair(cfg.LasairURL, cfg.LasairToken, cfg.FetchTimeout),
		broker.NewFink(cfg.FinkURL, cfg.FinkToken, cfg.FetchTimeout),
		broker.NewAlerce(cfg.AlerceURL, cfg.AlerceToken, cfg.FetchTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := esClient.Health(ctx); err != nil {
		log.Warn("elasticsearch not healthy yet, continuing", slog.Any("err", err))
	}
	warmDedupeCache(ctx, log, esClient, cache, cfg.DedupeTTL)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("harvester started",
		slog.Any("brokers", cfg.Enabled),
		slog.Duration("interval", cfg.Interval),
		slog.Float64("window_days", cfg.WindowDays),
	)

	// Run immediately on start, then on every tick.
	harvestAll(ctx, log, cfg, registry, esClient, cache)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			harvestAll(ctx, log, cfg, registry, esClient, cache)
		}
	}
}

// warmDedupeCache reloads recently indexed alerts into the dedupe
// cache, so a restarted harvester does not rewrite the documents its
// previous run already indexed. A failed search only means starting
// cold.
func warmDedupeCache(ctx context.Context, log *slog.Logger, searcher alertSearcher, cache *dedupe.Cache, ttl time.Duration) {
	const pageSize = 200

	mjdMin := models.MJDFromTime(time.Now().Add(-ttl))
	warmed := 0
	for from := 0; ; from += pageSize {
		result, err := searcher.SearchAlerts(ctx, elasticsearch.SearchParams{
			MJDMin: &mjdMin,
			From:   from,
			Size:   pageSize,
		})
		if err != nil {
			log.Warn("dedupe warm-up search failed, starting cold", slog.Any("err", err))
			return
		}
		for _, alert := range result.Items {
			cache.MarkSeen(alert.DocID())
		}
		warmed += len(result.Items)
		if len(result.Items) < pageSize {
			break
		}
	}
	log.Info("dedupe cache warmed", slog.Int("alerts", warmed))
}

// harvestAll polls every enabled broker over the trailing detection
// window. Brokers run concurrently; one broker's failure never blocks
// another's in-flight fetch.
func harvestAll(ctx context.Context, log *slog.Logger, cfg *config.Harvester, registry *broker.Registry, indexer alertIndexer, cache *dedupe.Cache) {
	runID := uuid.NewString()
	mjdMax := models.MJDFromTime(time.Now())
	mjdMin := mjdMax - cfg.WindowDays

	q := broker.Query{
		MJDMin:    &mjdMin,
		MJDMax:    &mjdMax,
		MaxAlerts: cfg.MaxAlerts,
	}

	var wg sync.WaitGroup
	for _, name := range cfg.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			harvestBroker(ctx, log.With(slog.String("run_id", runID), slog.String("broker", name)),
				registry, name, q, indexer, cache)
		}()
	}
	wg.Wait()
}

// harvestBroker drains one broker's alert sequence. Per-item
// normalization failures are logged and skipped; anything else ends
// the run for this broker only.
func harvestBroker(ctx context.Context, log *slog.Logger, registry *broker.Registry, name string, q broker.Query, indexer alertIndexer, cache *dedupe.Cache) {
	var indexed, duplicates, malformed int

	for alert, err := range registry.ListAlerts(ctx, name, q) {
		if err != nil {
			var normErr *broker.NormalizeError
			if errors.As(err, &normErr) {
				malformed++
				log.Warn("skipping malformed record", slog.Any("err", err))
				continue
			}
			log.Error("harvest failed", slog.Any("err", err))
			return
		}

		if cache.IsSeen(alert.DocID()) {
			duplicates++
			continue
		}

		if err := indexer.IndexAlert(ctx, alert); err != nil {
			log.Error("index alert", slog.String("id", alert.DocID()), slog.Any("err", err))
			continue
		}
		cache.MarkSeen(alert.DocID())
		indexed++
	}

	log.Info("harvest completed",
		slog.Int("indexed", indexed),
		slog.Int("duplicates", duplicates),
		slog.Int("malformed", malformed),
	)
}
