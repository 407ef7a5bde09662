package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cypher_arena/internal/service"

	"github.com/gin-gonic/gin"
)

func TestJWT(t *testing.T) {
	tokens, err := service.NewTokens("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	good, _ := tokens.Generate("p1")

	r := gin.New()
	r.GET("/me", JWT(tokens), func(c *gin.Context) {
		id, _ := PlayerID(c)
		c.String(http.StatusOK, id)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + good, http.StatusOK, "p1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token " + good, http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}
