package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creditdesk/internal/adapters/opener"
	"creditdesk/internal/config"
	"creditdesk/internal/handlers"
	"creditdesk/internal/metrics"
	"creditdesk/internal/repository/cache"
	"creditdesk/internal/repository/database"
	"creditdesk/internal/repository/decisions"
	importitems "creditdesk/internal/repository/imports"
	"creditdesk/internal/scheduler"
	"creditdesk/internal/server"
	"creditdesk/internal/services/importer"
	"creditdesk/internal/services/importer/processors"
	"creditdesk/internal/services/loans"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.Init(setupCtx)
	defer cfg.Close(context.Background())
	log.Println("[MAIN] all connections established")

	if err := cfg.CheckConnections(setupCtx); err != nil {
		log.Fatalf("[MAIN] connection check failed: %v", err)
	}
	if err := cfg.S3.EnsureBucket(setupCtx); err != nil {
		log.Printf("[MAIN][WARN] s3 bucket: %v", err)
	}

	store := database.NewStore(cfg.Postgres)
	if err := store.EnsureSchema(setupCtx); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	decisionLog := decisions.NewMongoLog(cfg.Mongo)
	if err := decisionLog.EnsureIndexes(setupCtx); err != nil {
		log.Printf("[MAIN][WARN] decision log indexes: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	scores := cache.NewRedisScoreCache(cfg.Redis.Client, cfg.ScoreCacheTTL)

	svc := loans.NewService(store,
		loans.WithScoreCache(scores),
		loans.WithDecisionLog(decisionLog),
		loans.WithMetrics(m),
	)

	items := importitems.NewMongoItemLog(cfg.Mongo)
	base := processors.NewBaseProcessor(store, items)
	base.Cache = scores
	base.Metrics = m

	files := opener.NewCompoundOpener(
		opener.NewHTTPOpener(&http.Client{Timeout: 5 * time.Minute}),
		opener.NewS3Opener(cfg.S3.Client),
		cfg.S3.Bucket,
	)
	imp := importer.NewService(files, processors.Registry(base), cfg.Import.BatchSize)
	imp.Metrics = m
	imp.Items = items

	sched := scheduler.New(imp, cfg.Import)
	if err := sched.Start(); err != nil {
		log.Fatalf("[MAIN] scheduler: %v", err)
	}
	defer func() { <-sched.Stop().Done() }()

	h := handlers.New(svc, imp, cfg.Mongo, cfg.S3,
		handlers.HealthCheck{Name: "postgres", Check: func(ctx context.Context) error { return cfg.Postgres.Pool.Ping(ctx) }},
		handlers.HealthCheck{Name: "mongo", Check: func(ctx context.Context) error { return cfg.Mongo.Client.Ping(ctx, nil) }},
		handlers.HealthCheck{Name: "s3", Check: cfg.S3.CheckBucket},
		handlers.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return cfg.Redis.Client.Ping(ctx).Err() }},
	)
	srv := server.NewServer(cfg.Port, server.NewRouter(h, promhttp.Handler()))

	log.Printf("[MAIN] listening on :%s", cfg.Port)
	if err := srv.Run(runCtx); err != nil {
		log.Fatal(err)
	}
}
