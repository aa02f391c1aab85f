package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/api"
	"github.com/sirdesai22/cf-tracker/internal/codeforces"
	"github.com/sirdesai22/cf-tracker/internal/config"
	"github.com/sirdesai22/cf-tracker/internal/db"
	"github.com/sirdesai22/cf-tracker/internal/elastic"
	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/metrics"
	"github.com/sirdesai22/cf-tracker/internal/services"
	"github.com/sirdesai22/cf-tracker/internal/stats"
	"github.com/sirdesai22/cf-tracker/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.Get()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Named("main")

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	if err := db.Migrate(pg); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	if err := db.Seed(pg, cfg.SeedHandles); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := db.NewStore(pg)
	client := codeforces.NewClient(cfg.CodeforcesBaseURL, cfg.HTTPTimeout, cfg.SubmissionCount)
	syncer := services.NewSyncer(store, client, cfg.SyncConcurrency)

	var bg sync.WaitGroup
	var retrier api.Retrier
	if cfg.ElasticURL != "" {
		es, err := elastic.Connect(cfg.ElasticURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Elasticsearch client")
		}
		if err := elastic.EnsureIndexes(ctx, es); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure indexes")
		}
		worker := workers.NewSyncWorker(pg, es, cfg.OutboxPollInterval, cfg.DLQRetryInterval, cfg.OutboxBatchSize)
		retrier = worker

		bg.Add(2)
		go func() { defer bg.Done(); worker.Run(ctx) }()
		go func() { defer bg.Done(); worker.RetryDLQ(ctx) }()
	} else {
		log.Warn().Msg("elastic_url not set, search feed disabled")
	}

	schedule := workers.Daily{
		Hour:     cfg.SyncHour,
		Minute:   cfg.SyncMinute,
		Interval: cfg.SyncInterval,
		Location: cfg.Location(),
	}
	scheduler := workers.NewScheduler(syncer, schedule, cfg.RunOnStart)
	bg.Add(1)
	go func() { defer bg.Done(); scheduler.Run(ctx) }()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(api.Deps{
			Students:       services.NewStudentService(store, syncer),
			Queries:        services.NewQueryService(store, stats.Options{ExcludeUnrated: cfg.StatsExcludeUnrated}),
			Syncer:         syncer,
			Store:          store,
			DLQ:            retrier,
			ActivityDays:   cfg.ActivityDays,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API listener failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	bg.Wait()
	log.Info().Msg("Stopped")
}
