package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"cypher_arena/internal/cipher"

	"github.com/gin-gonic/gin"
)

const serviceName = "cypher-arena"

// Pinger is a backing service the readiness check reaches, such as the
// match store or the broadcast bus.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the liveness, readiness and summary endpoints.
type HealthHandler struct {
	deps    map[string]Pinger
	version string
	started time.Time
	clients func() int
}

type HealthOption func(*HealthHandler)

// WithRelayClients reports the number of open relay sockets.
func WithRelayClients(fn func() int) HealthOption {
	return func(h *HealthHandler) { h.clients = fn }
}

// NewHealthHandler checks deps by name, e.g. "store" and "bus".
func NewHealthHandler(deps map[string]Pinger, version string, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{deps: deps, version: version, started: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Readiness is the body of /readyz.
type Readiness struct {
	Service      string            `json:"service"`
	Ready        bool              `json:"ready"`
	Version      string            `json:"version"`
	Uptime       int64             `json:"uptimeSeconds"`
	Dependencies map[string]string `json:"dependencies"`
	RelayClients int               `json:"relayClients"`
	Schemes      []cipher.Scheme   `json:"schemes"`
	CheckedAt    time.Time         `json:"checkedAt"`
}

// Liveness only says the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":       serviceName,
		"alive":         true,
		"uptimeSeconds": h.uptime(),
	})
}

// Readiness reaches every dependency and answers 503 when one is down.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deps, failing := h.ping(ctx)
	body := Readiness{
		Service:      serviceName,
		Ready:        len(failing) == 0,
		Version:      h.version,
		Uptime:       h.uptime(),
		Dependencies: deps,
		Schemes:      cipher.AllSchemes(),
		CheckedAt:    time.Now().UTC(),
	}
	if h.clients != nil {
		body.RelayClients = h.clients()
	}
	code := http.StatusOK
	if !body.Ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, body)
}

// Health is the short form: which dependencies, if any, are down.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	_, failing := h.ping(ctx)
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"service": serviceName,
			"status":  "degraded",
			"failing": failing,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"status":  "ok",
		"version": h.version,
	})
}

// ping returns each dependency's state and the sorted names of those down.
func (h *HealthHandler) ping(ctx context.Context) (map[string]string, []string) {
	deps := make(map[string]string, len(h.deps))
	failing := []string{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			deps[name] = "down: " + err.Error()
			failing = append(failing, name)
			continue
		}
		deps[name] = "up"
	}
	slices.Sort(failing)
	return deps, failing
}

func (h *HealthHandler) uptime() int64 {
	return int64(time.Since(h.started).Seconds())
}
