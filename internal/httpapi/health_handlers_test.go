package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// unreachableMongoDatabase returns a *mongo.Database whose client is
// configured with a short server-selection timeout, so Ping fails fast
// against the unreachable address instead of hanging the test.
func unreachableMongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://127.0.0.1:1").SetServerSelectionTimeout(50*time.Millisecond))
	require.NoError(t, err)
	return client.Database("blogqa_test")
}

func TestHealthHandlerReportsDegradedWhenMongoAndRedisUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	router := gin.New()
	router.GET("/health", (&HealthDeps{
		Postgres: db,
		Mongo:    unreachableMongoDatabase(t),
		Redis:    redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}),
	}).HealthHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["postgres"])
	assert.Equal(t, "degraded", got["status"], "mongo and redis are unreachable in this test")
	assert.Equal(t, false, got["mongo"])
	assert.Equal(t, false, got["redis"])
}

func TestHealthHandlerReportsDegradedOnPostgresFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	router := gin.New()
	router.GET("/health", (&HealthDeps{
		Postgres: db,
		Mongo:    unreachableMongoDatabase(t),
		Redis:    redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}),
	}).HealthHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code, "health always returns 200, degraded status is carried in the body")
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "degraded", got["status"])
	assert.Equal(t, false, got["postgres"])
}

func TestMetricsHandlerServesPrometheusExposition(t *testing.T) {
	router := gin.New()
	router.GET("/metrics", MetricsHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# HELP")
}
