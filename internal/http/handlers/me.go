package handlers

import (
	"net/http"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	player, err := h.Store.PlayerByID(c.Request.Context(), playerID)
	if apperr.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load player"})
		return
	}

	c.JSON(http.StatusOK, player)
}
