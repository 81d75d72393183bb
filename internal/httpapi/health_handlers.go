package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthDeps wires the three backing-store handles /health pings.
type HealthDeps struct {
	Postgres *sql.DB
	Mongo    *mongo.Database
	Redis    *redis.Client
}

// HealthHandler serves GET /health: `{status: "ok"|"degraded", postgres,
// mongo, redis}` (SPEC_FULL.md §6). It never requires auth, since an
// orchestrator's liveness probe has no publisher or admin identity.
func (d *HealthDeps) HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	postgresOK := d.Postgres.PingContext(ctx) == nil
	mongoOK := d.Mongo.Client().Ping(ctx, nil) == nil
	redisOK := d.Redis.Ping(ctx).Err() == nil

	status := "ok"
	if !postgresOK || !mongoOK || !redisOK {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"postgres": postgresOK,
		"mongo":    mongoOK,
		"redis":    redisOK,
	})
}

// MetricsHandler serves GET /metrics via promhttp, exposing the
// collectors internal/metrics registers (SPEC_FULL.md §4.14).
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
