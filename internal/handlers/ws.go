package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/services"
	"github.com/uestcqxq/tetrisByKiro/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler owns one connection's lifecycle: register with the hub,
// dispatch inbound events, deregister on close.
type WSHandler struct {
	hub         *ws.Hub
	broadcaster *ws.Broadcaster
	submissions *services.SubmissionService
	ranking     *services.RankingService

	leaderboardSize int
}

func NewWSHandler(hub *ws.Hub, broadcaster *ws.Broadcaster, submissions *services.SubmissionService, ranking *services.RankingService, leaderboardSize int) *WSHandler {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &WSHandler{
		hub:             hub,
		broadcaster:     broadcaster,
		submissions:     submissions,
		ranking:         ranking,
		leaderboardSize: leaderboardSize,
	}
}

// HandleWebSocket godoc
// @Summary      Real-time connection
// @Description  Connect via WebSocket for leaderboard updates and score submission
// @Tags         websocket
// @Param        user_id query string false "User ID to associate with the session"
// @Router       /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	sessionID := h.hub.Connect(conn, c.Query("user_id"))
	defer func() {
		h.hub.Disconnect(sessionID)
		h.broadcastOnlineCount()
	}()

	h.hub.Send(sessionID, ws.Message{Type: ws.EventConnectionConfirmed, Data: gin.H{
		"session_id":  sessionID,
		"server_time": time.Now().UTC().Format(time.RFC3339),
	}})
	h.broadcastOnlineCount()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var inbound ws.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil || inbound.Type == "" {
			h.sendError(sessionID, "malformed message")
			continue
		}

		h.hub.Touch(sessionID)
		h.dispatch(sessionID, inbound)
	}
}

func (h *WSHandler) dispatch(sessionID string, msg ws.Inbound) {
	switch msg.Type {
	case ws.EventUserLogin:
		h.handleLogin(sessionID, msg.Data)
	case ws.EventGameStarted:
		// activity already touched; nothing else to do yet
	case ws.EventGameFinished:
		h.handleGameFinished(sessionID, msg.Data)
	case ws.EventSubscribeLeaderboard:
		h.handleSubscribe(sessionID)
	case ws.EventUnsubscribeLeaderboard:
		h.handleUnsubscribe(sessionID)
	case ws.EventRequestLeaderboard:
		h.handleRequestLeaderboard(sessionID, msg.Data)
	case ws.EventRequestUserRank:
		h.handleRequestUserRank(sessionID, msg.Data)
	case ws.EventPing:
		h.hub.Send(sessionID, ws.Message{Type: ws.EventPong, Data: gin.H{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}})
	case ws.EventGetOnlineCount:
		h.hub.Send(sessionID, ws.Message{Type: ws.EventOnlineUsersCount, Data: gin.H{
			"count": h.hub.Count(),
		}})
	case ws.EventGetLeaderboardStats:
		h.handleLeaderboardStats(sessionID)
	default:
		h.sendError(sessionID, "unknown event type: "+msg.Type)
	}
}

func (h *WSHandler) handleLogin(sessionID string, data json.RawMessage) {
	var payload ws.LoginPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		h.sendError(sessionID, "user_id is required")
		return
	}

	h.hub.SetLogin(sessionID, payload.UserID)
	h.hub.Send(sessionID, ws.Message{Type: ws.EventLoginConfirmed, Data: gin.H{
		"user_id": payload.UserID,
	}})
	log.Printf("ws: user %s logged in on session %s", payload.UserID, sessionID)
}

func (h *WSHandler) handleGameFinished(sessionID string, data json.RawMessage) {
	var payload ws.GameFinishedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sessionID, "malformed game_finished payload")
		return
	}

	record, rankInfo, err := h.submissions.SubmitScore(
		payload.UserID, payload.Score, payload.Level, payload.LinesCleared, payload.GameDuration,
	)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			h.sendError(sessionID, vErr.Error())
		} else {
			log.Printf("ws: game_finished save failed: %v", err)
			h.sendError(sessionID, "failed to save game score")
		}
		return
	}

	h.hub.Send(sessionID, ws.Message{Type: ws.EventGameSaved, Data: gin.H{
		"game_id":   record.ID,
		"score":     record.Score,
		"rank_info": rankInfo,
	}})
}

func (h *WSHandler) handleSubscribe(sessionID string) {
	if !h.hub.Subscribe(sessionID) {
		return
	}

	h.hub.Send(sessionID, ws.Message{Type: ws.EventSubscriptionConfirmed, Data: gin.H{
		"subscribed": true,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}})

	if err := h.broadcaster.PushLeaderboard(sessionID, h.leaderboardSize); err != nil {
		log.Printf("ws: initial leaderboard push to %s failed: %v", sessionID, err)
	}
}

func (h *WSHandler) handleUnsubscribe(sessionID string) {
	h.hub.Unsubscribe(sessionID)
	h.hub.Send(sessionID, ws.Message{Type: ws.EventSubscriptionConfirmed, Data: gin.H{
		"subscribed": false,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}})
}

func (h *WSHandler) handleRequestLeaderboard(sessionID string, data json.RawMessage) {
	limit := h.leaderboardSize
	if len(data) > 0 {
		var payload ws.RequestLeaderboardPayload
		if err := json.Unmarshal(data, &payload); err == nil && payload.Limit > 0 {
			limit = payload.Limit
		}
	}
	// one-shot requests are capped tighter than the REST endpoint
	if limit > 50 {
		limit = 50
	}

	if err := h.broadcaster.PushLeaderboard(sessionID, limit); err != nil {
		log.Printf("ws: leaderboard request from %s failed: %v", sessionID, err)
		h.sendError(sessionID, "failed to fetch leaderboard")
	}
}

func (h *WSHandler) handleRequestUserRank(sessionID string, data json.RawMessage) {
	var payload ws.RequestUserRankPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		h.sendError(sessionID, "user_id is required")
		return
	}

	info, err := h.ranking.GetUserRank(payload.UserID)
	if err != nil {
		log.Printf("ws: rank request for %s failed: %v", payload.UserID, err)
		h.sendError(sessionID, "failed to fetch user rank")
		return
	}

	h.hub.Send(sessionID, ws.Message{Type: ws.EventUserRankData, Data: gin.H{
		"rank_info": info,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}})
}

func (h *WSHandler) handleLeaderboardStats(sessionID string) {
	global, err := h.ranking.GetGlobalStatistics()
	if err != nil {
		log.Printf("ws: stats request failed: %v", err)
		h.sendError(sessionID, "failed to fetch statistics")
		return
	}
	levels, err := h.ranking.GetLevelDistribution()
	if err != nil {
		log.Printf("ws: stats request failed: %v", err)
		h.sendError(sessionID, "failed to fetch statistics")
		return
	}

	h.hub.Send(sessionID, ws.Message{Type: ws.EventLeaderboardStats, Data: gin.H{
		"global_stats":       global,
		"level_distribution": levels,
		"subscribers_count":  h.hub.SubscriberCount(),
		"online_users":       h.hub.Count(),
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	}})
}

func (h *WSHandler) broadcastOnlineCount() {
	h.hub.SendToAll(ws.Message{Type: ws.EventOnlineUsersCount, Data: gin.H{
		"count": h.hub.Count(),
	}})
}

func (h *WSHandler) sendError(sessionID, message string) {
	h.hub.Send(sessionID, ws.Message{Type: ws.EventError, Data: gin.H{
		"message": message,
	}})
}
