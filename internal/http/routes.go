package http

import (
	"cypher_arena/internal/config"
	"cypher_arena/internal/http/handlers"
	"cypher_arena/internal/http/middleware"
	"cypher_arena/internal/service"
	"cypher_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the routes are wired to.
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	Tokens  *service.Tokens
	Limiter *middleware.RateLimiter
}

func RegisterRoutes(r *gin.Engine, d Deps, cfg *config.Config) {
	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := d.Handler
	auth := middleware.JWT(d.Tokens)

	v1 := r.Group("/api/v1")
	v1.Use(d.Limiter.Limit(cfg.RateLimit, cfg.RateLimitWindow, middleware.KeyByIP))
	{
		v1.POST("/auth", h.Auth)
		v1.GET("/me", auth, h.Me)
		v1.GET("/me/stats", auth, d.Limiter.Limit(cfg.RateLimit, cfg.RateLimitWindow, middleware.KeyByPlayer), h.MyStats)
		v1.GET("/leaderboard", h.GetLeaderboard)
	}

	// WebSocket relay for browser duel clients
	r.GET("/ws", ws.HandleWS(d.Hub, d.Tokens, cfg.AllowedOrigin))
}
