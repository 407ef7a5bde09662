package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cypher_arena/internal/config"
	"cypher_arena/internal/db"
	httpServer "cypher_arena/internal/http"
	"cypher_arena/internal/http/handlers"
	"cypher_arena/internal/http/middleware"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/matchmaking"
	"cypher_arena/internal/realtime"
	"cypher_arena/internal/repository"
	"cypher_arena/internal/service"
	"cypher_arena/internal/store"
	"cypher_arena/internal/ws"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if err := cfg.DuelAvailable(); err != nil {
		logger.Fatal("server needs the duel services", "error", err)
	}
	tokens, err := service.NewTokens(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		logger.Fatal("jwt", "error", err)
	}

	ctx := context.Background()
	dbPool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", "error", err)
	}
	defer dbPool.Close()

	rdb, err := realtime.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis", "error", err)
	}
	defer rdb.Close()

	bus := realtime.NewRedisBus(rdb)
	st := store.WithChangeFeed(repository.NewStore(dbPool), bus)
	profiles := repository.NewProfileRepository(dbPool)
	hub := ws.NewHub(bus)

	sweeper, err := matchmaking.NewSweeper(st, cfg.RoomSweepInterval, cfg.RoomSweepAge, nil)
	if err != nil {
		logger.Fatal("room sweeper", "error", err)
	}
	sweeper.Start()

	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for browser clients served from another origin
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"store": dbPool,
		"bus":   handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}, version, handlers.WithRelayClients(hub.Count))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler: handlers.NewHandler(st, profiles, tokens),
		Health:  health,
		Hub:     hub,
		Tokens:  tokens,
		Limiter: middleware.NewRateLimiter(rdb),
	}, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sweeper.Stop(); err != nil {
		logger.Warn("room sweeper shutdown", "error", err)
	}
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
