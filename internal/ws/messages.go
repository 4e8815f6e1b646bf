package ws

import (
	"encoding/json"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/services"
)

// Inbound event types. Anything else is rejected at the boundary.
const (
	EventUserLogin              = "user_login"
	EventGameStarted            = "game_started"
	EventGameFinished           = "game_finished"
	EventSubscribeLeaderboard   = "subscribe_leaderboard"
	EventUnsubscribeLeaderboard = "unsubscribe_leaderboard"
	EventRequestLeaderboard     = "request_leaderboard"
	EventRequestUserRank        = "request_user_rank"
	EventPing                   = "ping"
	EventGetOnlineCount         = "get_online_count"
	EventGetLeaderboardStats    = "get_leaderboard_stats"
)

// Outbound event types.
const (
	EventConnectionConfirmed   = "connection_confirmed"
	EventOnlineUsersCount      = "online_users_count"
	EventLoginConfirmed        = "login_confirmed"
	EventGameSaved             = "game_saved"
	EventLeaderboardData       = "leaderboard_data"
	EventLeaderboardUpdated    = "leaderboard_updated"
	EventRankChanged           = "rank_changed"
	EventUserRankData          = "user_rank_data"
	EventSubscriptionConfirmed = "leaderboard_subscription_confirmed"
	EventLeaderboardStats      = "leaderboard_stats"
	EventPong                  = "pong"
	EventError                 = "error"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Inbound is the raw envelope before the payload is decoded per
// event type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type LoginPayload struct {
	UserID string `json:"user_id"`
}

type GameFinishedPayload struct {
	UserID       string `json:"user_id"`
	Score        int    `json:"score"`
	Level        int    `json:"level"`
	LinesCleared int    `json:"lines_cleared"`
	GameDuration int    `json:"game_duration"`
}

type RequestLeaderboardPayload struct {
	Limit int `json:"limit"`
}

type RequestUserRankPayload struct {
	UserID string `json:"user_id"`
}

func leaderboardDataMessage(entries []services.LeaderboardEntry) Message {
	return Message{Type: EventLeaderboardData, Data: map[string]interface{}{
		"leaderboard":   entries,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"total_records": len(entries),
	}}
}
