// Package httpapi wires the HTTP transport (Gin) to the opinion service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, error
// rendering, metrics, CORS, security headers, compression and idempotency.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-opinions-backend/docs"
	"github.com/tbourn/go-opinions-backend/internal/config"
	"github.com/tbourn/go-opinions-backend/internal/domain"
	"github.com/tbourn/go-opinions-backend/internal/http/handlers"
	"github.com/tbourn/go-opinions-backend/internal/http/middleware"
	"github.com/tbourn/go-opinions-backend/internal/observability"
	"github.com/tbourn/go-opinions-backend/internal/repo"
	"github.com/tbourn/go-opinions-backend/internal/services"
)

// opinionRepoShim adapts the repository free functions to the
// services.OpinionRepo interface expected by the OpinionService.
type opinionRepoShim struct{}

// CreateOpinion proxies repo.CreateOpinion.
func (opinionRepoShim) CreateOpinion(ctx context.Context, db *gorm.DB, o *domain.Opinion) error {
	return repo.CreateOpinion(ctx, db, o)
}

// GetOpinion proxies repo.GetOpinion.
func (opinionRepoShim) GetOpinion(ctx context.Context, db *gorm.DB, id uint) (*domain.Opinion, error) {
	return repo.GetOpinion(ctx, db, id)
}

// ListOpinions proxies repo.ListOpinions.
func (opinionRepoShim) ListOpinions(ctx context.Context, db *gorm.DB) ([]domain.Opinion, error) {
	return repo.ListOpinions(ctx, db)
}

// TextTaken proxies repo.TextTaken.
func (opinionRepoShim) TextTaken(ctx context.Context, db *gorm.DB, text string) (bool, error) {
	return repo.TextTaken(ctx, db, text)
}

// UpdateOpinion proxies repo.UpdateOpinion.
func (opinionRepoShim) UpdateOpinion(ctx context.Context, db *gorm.DB, o *domain.Opinion) error {
	return repo.UpdateOpinion(ctx, db, o)
}

// DeleteOpinion proxies repo.DeleteOpinion.
func (opinionRepoShim) DeleteOpinion(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteOpinion(ctx, db, id)
}

// RandomOpinion proxies repo.RandomOpinion.
func (opinionRepoShim) RandomOpinion(ctx context.Context, db *gorm.DB) (*domain.Opinion, error) {
	return repo.RandomOpinion(ctx, db)
}

// NewOpinionService builds the OpinionService backed by the repo package.
// The load-opinions command shares it with the HTTP API.
func NewOpinionService(db *gorm.DB) *services.OpinionService {
	return services.NewOpinionService(db, opinionRepoShim{})
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, then mounts the opinion API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything except health and scrape endpoints
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Metrics: outside ErrorHandler so the rendered status is recorded
//  6. ErrorHandler: render {"message"} for errors attached by handlers
//  7. Body size limiter
//  8. Idempotency validator
//  9. Gzip (optional), CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName, otelgin.WithFilter(observability.TraceRequest)))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key", middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 6) Error envelope
	r.Use(handlers.ErrorHandler())

	// 7) Global body size limit
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 8) Idempotency validation for POST
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Compression, CORS, security headers
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       false, // the list endpoint relies on ETag revalidation
		EnablePolicy:  true,
		ExposeHeaders: []string{"X-Request-ID", "ETag"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.MsgRouteNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed)
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: handlers ← service ← repo/db
	h := handlers.New(NewOpinionService(db), db, cfg.IdempotencyTTL)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api"
	{
		api.GET("/opinions/", h.ListOpinions)
		api.POST("/opinions/", h.CreateOpinion)
		api.GET("/opinions/:id/", h.GetOpinion)
		api.PATCH("/opinions/:id/", h.UpdateOpinion)
		api.DELETE("/opinions/:id/", h.DeleteOpinion)

		api.GET("/get-random-opinion/", h.RandomOpinion)
	}
}

// corsMiddleware returns the CORS posture: allow all origins when none are
// configured, otherwise echo allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error. maxBytes <= 0 disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
