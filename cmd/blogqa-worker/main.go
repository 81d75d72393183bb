package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/config"
	"github.com/the-monkeys/blogqa/internal/audit"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/crawler"
	"github.com/the-monkeys/blogqa/internal/events"
	"github.com/the-monkeys/blogqa/internal/httpapi"
	"github.com/the-monkeys/blogqa/internal/llm"
	"github.com/the-monkeys/blogqa/internal/orchestrator"
	"github.com/the-monkeys/blogqa/internal/platform"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
	"github.com/the-monkeys/blogqa/internal/worker"
	"github.com/the-monkeys/blogqa/logger"
)

func printBanner(workerID string, concurrency int) {
	banner := "\n" +
		"┌──────────────────────────────────────────────────────────┐\n" +
		"│   blogqa-worker                                           │\n" +
		"│   Status   : ONLINE                                       │\n" +
		fmt.Sprintf("│   Worker   : %-44s│\n", workerID) +
		fmt.Sprintf("│   Workers  : %-44d│\n", concurrency) +
		"│   Logs     : zap (structured)                             │\n" +
		"└──────────────────────────────────────────────────────────┘\n"
	fmt.Print(banner)
}

func main() {
	var (
		pollInterval   = pflag.Int("poll-interval", 0, "queue poll interval in seconds (overrides POLL_INTERVAL_SECONDS)")
		concurrentJobs = pflag.Int("concurrent-jobs", 0, "number of concurrent worker runtimes (overrides CONCURRENT_JOBS)")
		metricsPort    = pflag.Int("metrics-port", 0, "port to serve /metrics on (overrides METRICS_PORT)")
	)
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *pollInterval > 0 {
		cfg.Worker.PollIntervalSeconds = *pollInterval
	}
	if *concurrentJobs > 0 {
		cfg.Worker.ConcurrentJobs = *concurrentJobs
	}
	if *metricsPort > 0 {
		cfg.Worker.MetricsPort = *metricsPort
	}

	log := logger.ZapForService("worker")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgDB, err := platform.NewPostgresDB(cfg.Postgres, logger.Zap())
	if err != nil {
		log.Fatalw("cannot connect to postgres", "error", err)
	}
	defer pgDB.Close()

	mongoDB, mongoDisconnect, err := platform.NewMongoDatabase(ctx, cfg.Mongo, logger.Zap())
	if err != nil {
		log.Fatalw("cannot connect to mongo", "error", err)
	}
	defer func() {
		if err := mongoDisconnect(context.Background()); err != nil {
			log.Warnw("error disconnecting from mongo", "error", err)
		}
	}()

	publisherStore := publisher.NewPostgresStore(pgDB, logger.Zap())
	queueStore, err := queue.NewMongoStore(ctx, mongoDB, logger.Zap())
	if err != nil {
		log.Fatalw("cannot build queue store", "error", err)
	}
	contentStore, err := content.NewMongoStore(ctx, mongoDB, logger.Zap())
	if err != nil {
		log.Fatalw("cannot build content store", "error", err)
	}
	auditStore, err := audit.NewMongoStore(ctx, mongoDB, logger.Zap())
	if err != nil {
		log.Fatalw("cannot build audit store", "error", err)
	}

	notifier := buildNotifier(cfg.RabbitMQ, log)

	llmRegistry := llm.NewRegistryFromConfig(ctx, cfg.LLM, log)
	crawlerInstance := crawler.New(time.Duration(cfg.Worker.CrawlTimeoutSeconds)*time.Second, crawler.NewGoqueryExtractor())
	orch := orchestrator.New(crawlerInstance, llmRegistry, contentStore)

	workerID := worker.NewWorkerID()
	runner := worker.New(
		workerID, queueStore, publisherStore, auditStore, orch,
		time.Duration(cfg.Worker.PollIntervalSeconds)*time.Second,
		worker.WithNotifier(notifier),
	)

	go runner.RunLivenessReclaimer(ctx, 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.ConcurrentJobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}

	go serveMetrics(cfg.Worker.MetricsPort, log)

	printBanner(workerID, cfg.Worker.ConcurrentJobs)
	log.Infow("worker runtime started",
		"worker_id", workerID, "concurrency", cfg.Worker.ConcurrentJobs, "poll_interval_seconds", cfg.Worker.PollIntervalSeconds)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Infow("shutting down worker runtime, letting in-flight jobs finish")
	cancel()
	wg.Wait()
}

// serveMetrics exposes /metrics on its own port, since the worker has no
// other HTTP surface (SPEC_FULL.md §4.14).
func serveMetrics(port int, log *zap.SugaredLogger) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", httpapi.MetricsHandler())
	addr := fmt.Sprintf(":%d", port)
	log.Infow("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Errorw("metrics server failed", "error", err)
	}
}

// buildNotifier dials RabbitMQ when configured; an empty Host keeps the
// worker on events.NoopPublisher instead. With a Host set, startup blocks
// in events.Reconnect until the broker accepts a connection.
func buildNotifier(cfg config.RabbitMQ, log *zap.SugaredLogger) events.Publisher {
	if cfg.Host == "" {
		return events.NoopPublisher{}
	}
	conn := events.Reconnect(cfg)
	log.Infow("connected to rabbitmq", "host", cfg.Host, "exchange", cfg.Exchange)
	return events.NewRabbitMQPublisher(conn, cfg)
}
