package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/the-monkeys/blogqa/config"
	"github.com/the-monkeys/blogqa/internal/auth"
	"github.com/the-monkeys/blogqa/internal/checkandload"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/httpapi"
	"github.com/the-monkeys/blogqa/internal/llm"
	"github.com/the-monkeys/blogqa/internal/metadata"
	"github.com/the-monkeys/blogqa/internal/platform"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
	"github.com/the-monkeys/blogqa/internal/ratelimit"
	"github.com/the-monkeys/blogqa/logger"
)

func printBanner(env string, port int) {
	banner := "\n" +
		"┌──────────────────────────────────────────────────────────┐\n" +
		"│   blogqa-api                                              │\n" +
		"│   Status   : ONLINE                                       │\n" +
		fmt.Sprintf("│   Env      : %-44s│\n", env) +
		fmt.Sprintf("│   Port     : %-44d│\n", port) +
		"│   Logs     : zap (structured)                             │\n" +
		"└──────────────────────────────────────────────────────────┘\n"
	fmt.Print(banner)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.ZapForService("api")
	defer logger.Sync()

	ctx := context.Background()

	if err := platform.RunMigrations(cfg.Postgres.DSN, cfg.Postgres.MigrationsDir, logger.Zap()); err != nil {
		log.Fatalw("cannot apply postgres migrations", "error", err)
	}

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
		if err := mongoDisconnect(ctx); err != nil {
			log.Warnw("error disconnecting from mongo", "error", err)
		}
	}()

	redisClient, err := platform.NewRedisClient(ctx, cfg.Redis, logger.Zap())
	if err != nil {
		log.Fatalw("cannot connect to redis", "error", err)
	}
	defer redisClient.Close()

	publisherStore := publisher.NewPostgresStore(pgDB, logger.Zap())

	queueStore, err := queue.NewMongoStore(ctx, mongoDB, logger.Zap())
	if err != nil {
		log.Fatalw("cannot build queue store", "error", err)
	}
	contentStore, err := content.NewMongoStore(ctx, mongoDB, logger.Zap())
	if err != nil {
		log.Fatalw("cannot build content store", "error", err)
	}
	metadataStore, err := metadata.NewMongoStore(ctx, mongoDB, logger.Zap())
	if err != nil {
		log.Fatalw("cannot build metadata store", "error", err)
	}

	cache := checkandload.NewCache(redisClient, 0)
	checkAndLoad := checkandload.New(contentStore, queueStore, metadataStore, publisherStore, nil).WithCache(cache)

	authService := auth.NewService(publisherStore, cfg.Admission.AdminKey)

	limiter, err := ratelimit.New(cfg.Admission.RateLimitRule)
	if err != nil {
		log.Fatalw("cannot build rate limiter", "error", err)
	}

	llmRegistry := llm.NewRegistryFromConfig(ctx, cfg.LLM, log)

	router := httpapi.New(httpapi.Deps{
		Auth:        authService,
		RateLimiter: limiter,
		CORSOrigins: cfg.Admission.CORSOrigins,
		Questions: &httpapi.QuestionsDeps{
			CheckAndLoad: checkAndLoad,
			Content:      contentStore,
			Queue:        queueStore,
			Publishers:   publisherStore,
			Auth:         authService,
		},
		Jobs:       &httpapi.JobsDeps{Queue: queueStore, Publishers: publisherStore},
		Publishers: &httpapi.PublishersDeps{Publishers: publisherStore},
		QA:         &httpapi.QADeps{Content: contentStore, LLM: llmRegistry},
		Health:     &httpapi.HealthDeps{Postgres: pgDB, Mongo: mongoDB, Redis: redisClient},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		printBanner(cfg.AppEnv, cfg.ServerPort)
		log.Infow("api server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("api server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Infow("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("api server shutdown error", "error", err)
	}
}
