package platform

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/config"
)

// NewPostgresDB opens and pings the Publisher Store's connection pool,
// mirroring the teacher's NewUserDbHandler pooling defaults (max
// open/idle connections, a 5-minute connection lifetime).
func NewPostgresDB(cfg config.Postgres, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("platform: opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("platform: pinging postgres: %w", err)
	}

	log.Info("connected to postgres")
	return db, nil
}
