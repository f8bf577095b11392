// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-karaoke-backend/docs"
	"github.com/tbourn/go-karaoke-backend/internal/config"
	"github.com/tbourn/go-karaoke-backend/internal/http/handlers"
	"github.com/tbourn/go-karaoke-backend/internal/http/middleware"
)

var (
	corsMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderChatID, middleware.HeaderIdempotencyKey,
	}
	corsExpose = []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath. tokens verifies
// admin bearer tokens; nil disables the /admin/orders routes (503).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. ChatIdentity: X-Chat-ID for logs, rate keys and idempotency owner
//  6. Body size limiter
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per admin/chat/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d handlers.Deps, tokens middleware.TokenParser, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(middleware.ChatIdentity())
	r.Use(limitBody(64 << 10))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var lookup middleware.IdempotencyLookup
	if d.Idem != nil {
		lookup = d.Idem.Lookup
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByCaller())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(d)
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		songs := api.Group("/songs", gzip.Gzip(gzip.DefaultCompression))
		songs.GET("", h.ListSongs)
		songs.GET("/search", h.SearchSongs)
		songs.GET("/by-title", h.SongsByTitle)
		songs.GET("/by-artist", h.SongsByArtist)
		songs.GET("/with-backing", h.SongsWithBacking)
		songs.GET("/:id", h.GetSong)

		api.POST("/users", h.RegisterUser)
		api.GET("/users/:chat_id", h.GetUser)
		api.DELETE("/users/:chat_id/registration", h.ResetUser)
		api.POST("/users/:chat_id/admin", h.PromoteUser)
		api.GET("/users/:chat_id/orders", h.UserOrders)

		api.POST("/orders", h.CreateOrder)
		api.POST("/orders/:id/cancel", h.CancelOrder)

		api.POST("/admin/token", h.IssueToken)
		admin := api.Group("/admin/orders", middleware.RequireAdmin(tokens))
		admin.GET("", h.AdminQueue)
		admin.POST("/:id/advance", h.AdvanceOrder)
		admin.POST("/:id/cancel", h.AdminCancelOrder)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// only the listed ones. Credentials are never allowed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExpose,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		// ACAO: * even for requests without an Origin header (health probes)
		force := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{force, cors.New(cc)}
	}
	cc.AllowOrigins = origins
	return []gin.HandlerFunc{cors.New(cc)}
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader. Oversized bodies fail to bind and yield 400.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
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
