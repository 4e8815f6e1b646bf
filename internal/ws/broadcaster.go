package ws

import (
	"log"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/services"
)

// Broadcaster fans leaderboard updates out to subscribers and sends
// targeted rank-change messages. Delivery is fire-and-forget: no
// acknowledgment, no retry, no ordering guarantee across triggers.
type Broadcaster struct {
	hub             *Hub
	ranking         *services.RankingService
	leaderboardSize int
}

func NewBroadcaster(hub *Hub, ranking *services.RankingService, leaderboardSize int) *Broadcaster {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &Broadcaster{hub: hub, ranking: ranking, leaderboardSize: leaderboardSize}
}

// BroadcastLeaderboardUpdate recomputes the top of the leaderboard
// and pushes it to every subscriber. A session whose send fails is
// unsubscribed and skipped on the next broadcast; the remaining
// sessions still get theirs.
func (b *Broadcaster) BroadcastLeaderboardUpdate(triggerUserID string, newScore int) {
	entries, err := b.ranking.GetLeaderboard(b.leaderboardSize, 0)
	if err != nil {
		log.Printf("broadcast: leaderboard query failed: %v", err)
		return
	}

	msg := Message{Type: EventLeaderboardUpdated, Data: map[string]interface{}{
		"leaderboard":  entries,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"trigger_user": triggerUserID,
		"new_score":    newScore,
	}}

	subscribers := b.hub.Subscribers()
	delivered := 0
	for _, sessionID := range subscribers {
		if err := b.hub.Send(sessionID, msg); err != nil {
			log.Printf("broadcast: send to %s failed, unsubscribing: %v", sessionID, err)
			b.hub.Unsubscribe(sessionID)
			continue
		}
		delivered++
	}
	log.Printf("broadcast: leaderboard update delivered to %d/%d subscribers", delivered, len(subscribers))
}

// NotifyRankChange sends a targeted rank_changed message to every
// session of the user. A user with no open session gets nothing; the
// message is lost, not queued.
func (b *Broadcaster) NotifyRankChange(userID string, oldRank, newRank *int, score int) {
	sessions := b.hub.SessionsForUser(userID)
	if len(sessions) == 0 {
		return
	}

	msg := Message{Type: EventRankChanged, Data: map[string]interface{}{
		"user_id":   userID,
		"old_rank":  oldRank,
		"new_rank":  newRank,
		"score":     score,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}}

	for _, sessionID := range sessions {
		if err := b.hub.Send(sessionID, msg); err != nil {
			log.Printf("broadcast: rank change to %s failed: %v", sessionID, err)
		}
	}
	log.Printf("broadcast: notified user %s of rank change", userID)
}

// PushLeaderboard sends the current leaderboard to a single session;
// used for subscription confirmations and one-shot requests.
func (b *Broadcaster) PushLeaderboard(sessionID string, limit int) error {
	entries, err := b.ranking.GetLeaderboard(limit, 0)
	if err != nil {
		return err
	}
	return b.hub.Send(sessionID, leaderboardDataMessage(entries))
}
