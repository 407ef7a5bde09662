package db

import (
	"context"
	"fmt"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and pings it. Failure is returned, not fatal:
// without a database only duels are unavailable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, apperr.Transport("database ping", err)
	}

	logger.Info("database connected")
	return pool, nil
}
