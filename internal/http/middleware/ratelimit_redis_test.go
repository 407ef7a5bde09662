package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

func init() { gin.SetMode(gin.TestMode) }

func limitedRouter(l *RateLimiter, max int, w time.Duration) *gin.Engine {
	r := gin.New()
	r.GET("/test", l.Limit(max, w, KeyByIP), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	return r
}

func expectStatuses(t *testing.T, r http.Handler, want ...int) {
	t.Helper()
	for i, code := range want {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		if w.Code != code {
			t.Fatalf("request %d: expected %d got %d", i, code, w.Code)
		}
	}
}

func TestMemoryRateLimit(t *testing.T) {
	l := NewRateLimiter(nil)
	now := time.Now()
	l.memory.now = func() time.Time { return now }

	r := limitedRouter(l, 2, time.Minute)
	expectStatuses(t, r, 200, 200, 429)

	now = now.Add(2 * time.Minute)
	expectStatuses(t, r, 200)
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	// a window unlikely to collide with keys left by earlier runs
	w := time.Duration(2+time.Now().UnixNano()%50) * time.Second
	expectStatuses(t, limitedRouter(NewRateLimiter(client), 2, w), 200, 200, 429)
}
