package services

import (
	"log"

	"github.com/uestcqxq/tetrisByKiro/internal/models"
)

// RankNotifier receives the outcome of a successful submission.
// Implementations must be best-effort: a delivery failure never
// fails the submission.
type RankNotifier interface {
	BroadcastLeaderboardUpdate(triggerUserID string, newScore int)
	NotifyRankChange(userID string, oldRank, newRank *int, score int)
}

// SubmissionService is the single entry point for score submission,
// shared by the REST endpoint and the WebSocket game_finished event.
type SubmissionService struct {
	games    *GameService
	ranking  *RankingService
	notifier RankNotifier
}

func NewSubmissionService(games *GameService, ranking *RankingService, notifier RankNotifier) *SubmissionService {
	return &SubmissionService{games: games, ranking: ranking, notifier: notifier}
}

// SubmitScore validates and persists the score, then triggers the
// leaderboard broadcast and, when the submitter's rank moved, a
// targeted rank-change notification. Returns the stored record and
// the submitter's rank after the write.
//
// The rank reads before and after the insert are two independent
// queries, not a transactional snapshot: a concurrent submission by
// another user may shift either value. Rank is a relative quantity,
// so eventual consistency is acceptable here.
func (s *SubmissionService) SubmitScore(userID string, score, level, linesCleared, gameDuration int) (*models.GameRecord, *RankInfo, error) {
	if err := s.games.ValidateScore(userID, score, level, linesCleared, gameDuration); err != nil {
		return nil, nil, err
	}

	oldInfo, err := s.ranking.GetUserRank(userID)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.games.SaveGameScore(userID, score, level, linesCleared, gameDuration)
	if err != nil {
		return nil, nil, err
	}

	newInfo, err := s.ranking.GetUserRank(userID)
	if err != nil {
		// The record is already committed; report it even though the
		// follow-up rank read failed.
		log.Printf("submission: rank lookup after save failed for user %s: %v", userID, err)
		return record, nil, nil
	}

	if s.notifier != nil {
		s.notifier.BroadcastLeaderboardUpdate(userID, score)

		oldRank := rankOf(oldInfo)
		newRank := rankOf(newInfo)
		if !ranksEqual(oldRank, newRank) {
			s.notifier.NotifyRankChange(userID, oldRank, newRank, score)
		}
	}

	return record, newInfo, nil
}

func rankOf(info *RankInfo) *int {
	if info == nil {
		return nil
	}
	rank := info.Rank
	return &rank
}

func ranksEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
