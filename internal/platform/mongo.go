// Package platform wires the shared backing-store connections (Postgres
// pool, Mongo client, Redis client) once at process startup, the way the
// teacher's internal/database.NewUserDbHandler and
// redis_conn.RedisConn do for their own services — generalized here
// since a single blogqa process (API or worker) needs all three.
package platform

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/config"
)

// NewMongoDatabase connects to MongoDB and returns the configured
// database handle that the Queue/Audit/Metadata/Content stores each
// call their own NewMongoStore against.
func NewMongoDatabase(ctx context.Context, cfg config.Mongo, log *zap.Logger) (*mongo.Database, func(context.Context) error, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("platform: connecting to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("platform: pinging mongo: %w", err)
	}

	log.Info("connected to mongo", zap.String("database", cfg.Database))
	return client.Database(cfg.Database), client.Disconnect, nil
}
