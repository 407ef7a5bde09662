package integration

import (
	"context"
	"os"
	"testing"

	"cypher_arena/internal/db"
	"cypher_arena/internal/migrations"
	"cypher_arena/internal/realtime"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

func connectDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := db.Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := migrations.Apply(context.Background(), pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func connectRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := realtime.DialRedis(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// unique keeps rows from separate runs apart.
func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}
