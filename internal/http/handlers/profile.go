package handlers

import (
	"net/http"

	"cypher_arena/internal/http/middleware"
	"cypher_arena/internal/scoring"

	"github.com/gin-gonic/gin"
)

type achievementView struct {
	scoring.Achievement
	Unlocked bool `json:"unlocked"`
}

// MyStats returns the caller's lifetime stats and the achievement catalog
// with unlock flags.
func (h *Handler) MyStats(c *gin.Context) {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	life, err := h.Profiles.LoadStats(ctx, playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	unlocked, err := h.Profiles.Unlocked(ctx, playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load achievements"})
		return
	}

	have := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		have[id] = true
	}
	catalog := scoring.Catalog()
	views := make([]achievementView, 0, len(catalog))
	for _, a := range catalog {
		views = append(views, achievementView{Achievement: a, Unlocked: have[a.ID]})
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        life,
		"achievements": views,
	})
}
