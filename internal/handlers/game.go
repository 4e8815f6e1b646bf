package handlers

import (
	"net/http"

	"github.com/uestcqxq/tetrisByKiro/internal/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	submissions *services.SubmissionService
	games       *services.GameService
}

func NewGameHandler(submissions *services.SubmissionService, games *services.GameService) *GameHandler {
	return &GameHandler{submissions: submissions, games: games}
}

type SaveGameRequest struct {
	UserID       string `json:"user_id" binding:"required" example:"7f6c0f44-90d1-4a3e-9a1b-2f4a0c8e5d21"`
	Score        int    `json:"score" example:"12500"`
	Level        int    `json:"level" example:"5"`
	LinesCleared int    `json:"lines_cleared" example:"42"`
	GameDuration int    `json:"game_duration" example:"300"`
}

// SaveGame godoc
// @Summary      Submit a game result
// @Description  Validates and stores a finished game, then broadcasts leaderboard updates to subscribed clients
// @Tags         games
// @Accept       json
// @Produce      json
// @Param        request body SaveGameRequest true "Game result"
// @Success      201 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /api/games [post]
func (h *GameHandler) SaveGame(c *gin.Context) {
	var req SaveGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	record, rankInfo, err := h.submissions.SubmitScore(req.UserID, req.Score, req.Level, req.LinesCleared, req.GameDuration)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":      record,
		"rank_info": rankInfo,
	})
}

// GetUserHistory godoc
// @Summary      Get a user's game history
// @Tags         games
// @Produce      json
// @Param        id path string true "User ID"
// @Param        limit query int false "Max records" default(10)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} map[string]interface{}
// @Router       /api/users/{id}/games [get]
func (h *GameHandler) GetUserHistory(c *gin.Context) {
	limit, offset, ok := pageParams(c, 10, 100)
	if !ok {
		return
	}

	records, err := h.games.GetUserGameHistory(c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records, "total": len(records)})
}
