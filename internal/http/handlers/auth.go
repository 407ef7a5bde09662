package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"cypher_arena/internal/logger"
	"cypher_arena/internal/store"

	"github.com/gin-gonic/gin"
)

const maxUsernameLen = 32

type AuthRequest struct {
	Username string `json:"username"`
}

// Auth registers the username on first use and returns a token for it.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 1-32 characters"})
		return
	}

	player, err := store.RegisterPlayer(c.Request.Context(), h.Store, username)
	if err != nil {
		logger.Error("register player failed", "username", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register player"})
		return
	}

	token, err := h.Tokens.Generate(player.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"player": player,
	})
}
