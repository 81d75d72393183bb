package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/auth"
	"github.com/the-monkeys/blogqa/internal/ratelimit"
)

// Deps wires every collaborator New needs to build the Edge API's
// routes (spec.md §4.11), grouped by the handler file each belongs to.
type Deps struct {
	Auth        *auth.Service
	RateLimiter *ratelimit.Limiter
	CORSOrigins []string

	Questions  *QuestionsDeps
	Jobs       *JobsDeps
	Publishers *PublishersDeps
	QA         *QADeps
	Health     *HealthDeps
}

// New builds the gin.Engine serving every route of spec.md §6,
// mirroring the teacher's main.go route-registration shape
// (Recovery -> security headers -> CORS -> request logging, then one
// RegisterXRouter-style group per concern) but collapsed into a single
// constructor since this pipeline has one process topology rather than
// the teacher's per-microservice RegisterXRouter functions.
func New(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(AccessLogMiddleware())
	router.Use(SecureHeadersMiddleware())
	router.Use(CORSMiddleware(deps.CORSOrigins))
	router.Use(ErrorMiddleware())

	router.GET("/health", deps.Health.HealthHandler)
	router.GET("/metrics", MetricsHandler())

	publisherAuth := PublisherAuthMiddleware(deps.Auth)
	adminAuth := AdminAuthMiddleware(deps.Auth)
	burstLimit := ratelimit.Middleware(deps.RateLimiter)

	v1 := router.Group("/api/v1")

	questions := v1.Group("/questions", publisherAuth, burstLimit)
	questions.GET("/check-and-load", deps.Questions.CheckAndLoadHandler)
	questions.GET("/by-url", deps.Questions.ByURLHandler)

	jobsPublisher := v1.Group("/jobs", publisherAuth, burstLimit)
	jobsPublisher.POST("/process", deps.Questions.JobsProcessHandler)

	jobsAdmin := v1.Group("/jobs", adminAuth)
	jobsAdmin.GET("/status/:job_id", deps.Jobs.JobsStatusHandler)
	jobsAdmin.GET("/stats", deps.Jobs.JobsStatsHandler)
	jobsAdmin.POST("/cancel/:job_id", deps.Jobs.JobsCancelHandler)

	publishers := v1.Group("/publishers", adminAuth)
	publishers.POST("", deps.Publishers.CreateHandler)
	publishers.GET("", deps.Publishers.ListHandler)
	publishers.GET("/:id", deps.Publishers.GetHandler)
	publishers.PUT("/:id", deps.Publishers.UpdateHandler)
	publishers.DELETE("/:id", deps.Publishers.DeleteHandler)
	publishers.POST("/:id/regenerate-key", deps.Publishers.RegenerateKeyHandler)

	qa := v1.Group("/qa", publisherAuth, burstLimit)
	qa.POST("/ask", deps.QA.AskHandler)

	return router
}
