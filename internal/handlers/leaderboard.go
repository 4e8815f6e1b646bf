package handlers

import (
	"net/http"
	"strconv"

	"github.com/uestcqxq/tetrisByKiro/internal/services"

	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	ranking *services.RankingService
}

func NewLeaderboardHandler(ranking *services.RankingService) *LeaderboardHandler {
	return &LeaderboardHandler{ranking: ranking}
}

// pageParams parses limit/offset, rejecting limit < 1 and clamping
// it to max.
func pageParams(c *gin.Context, defaultLimit, max int) (limit, offset int, ok bool) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return 0, 0, false
		}
		limit = n
	}
	if limit > max {
		limit = max
	}

	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "offset must be a non-negative integer"})
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// GetLeaderboard godoc
// @Summary      Get the leaderboard
// @Description  One entry per user, keyed by personal best, ordered by score descending
// @Tags         leaderboard
// @Produce      json
// @Param        limit query int false "Max entries (clamped to 100)" default(10)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Router       /api/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, offset, ok := pageParams(c, 10, services.MaxLeaderboardLimit)
	if !ok {
		return
	}

	entries, err := h.ranking.GetLeaderboard(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "total": len(entries)})
}

// GetUserRank godoc
// @Summary      Get a user's rank
// @Tags         leaderboard
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} ErrorResponse
// @Router       /api/users/{id}/rank [get]
func (h *LeaderboardHandler) GetUserRank(c *gin.Context) {
	info, err := h.ranking.GetUserRank(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user has no game records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": info})
}

// GetUserStatistics godoc
// @Summary      Get a user's game statistics
// @Tags         leaderboard
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} map[string]interface{}
// @Router       /api/users/{id}/statistics [get]
func (h *LeaderboardHandler) GetUserStatistics(c *gin.Context) {
	stats, err := h.ranking.GetUserStatistics(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// GetStats godoc
// @Summary      Get global statistics and level distribution
// @Tags         leaderboard
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/stats [get]
func (h *LeaderboardHandler) GetStats(c *gin.Context) {
	global, err := h.ranking.GetGlobalStatistics()
	if err != nil {
		respondError(c, err)
		return
	}

	levels, err := h.ranking.GetLevelDistribution()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"game_stats":         global,
		"level_distribution": levels,
	}})
}
