package services

import (
	"database/sql"
	"math"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"gorm.io/gorm"
)

const MaxLeaderboardLimit = 100

// LeaderboardEntry is one distinct user keyed by their personal best
// score. Ranks are tie-aware: users with equal best scores share a
// rank (count of strictly better users, plus one).
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Score        int       `json:"score"`
	Level        int       `json:"level"`
	LinesCleared int       `json:"lines_cleared"`
	GameDuration int       `json:"game_duration"`
	AchievedAt   time.Time `json:"achieved_at"`
}

type RankInfo struct {
	UserID     string  `json:"user_id"`
	Username   string  `json:"username"`
	Rank       int     `json:"rank"`
	TotalUsers int     `json:"total_users"`
	BestScore  int     `json:"best_score"`
	Percentile float64 `json:"percentile"`
}

// RankingService computes ranks and aggregates from game records.
// Everything is recomputed per call; reads racing writes see either
// the old or the new data, which is fine for a relative quantity.
type RankingService struct {
	db *gorm.DB
}

func NewRankingService(db *gorm.DB) *RankingService {
	return &RankingService{db: db}
}

type leaderboardRow struct {
	UserID       string
	Username     string
	Score        int
	Level        int
	LinesCleared int
	GameDuration int
	CreatedAt    time.Time
}

// GetLeaderboard returns up to limit entries (clamped to
// MaxLeaderboardLimit) ordered by best score descending. An empty
// store yields an empty slice, not an error.
func (s *RankingService) GetLeaderboard(limit, offset int) ([]LeaderboardEntry, error) {
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	if offset < 0 {
		offset = 0
	}

	best := s.db.Model(&models.GameRecord{}).
		Select("user_id, MAX(score) AS max_score").
		Group("user_id")

	var rows []leaderboardRow
	err := s.db.Table("game_records AS g").
		Select("g.user_id, u.username, g.score, g.level, g.lines_cleared, g.game_duration, g.created_at").
		Joins("JOIN (?) AS best ON g.user_id = best.user_id AND g.score = best.max_score", best).
		Joins("JOIN users u ON u.id = g.user_id").
		Where("g.id = (SELECT MIN(g2.id) FROM game_records g2 WHERE g2.user_id = g.user_id AND g2.score = g.score)").
		Order("g.score DESC, g.user_id ASC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("get_leaderboard", err)
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		rank := offset + i + 1
		if i == 0 && offset > 0 {
			// A tie group may span the page boundary; anchor the first
			// row on the strictly-better distinct-user count.
			better, err := s.countUsersAbove(row.Score)
			if err != nil {
				return nil, err
			}
			rank = int(better) + 1
		} else if i > 0 && row.Score == rows[i-1].Score {
			rank = entries[i-1].Rank
		}

		entries = append(entries, LeaderboardEntry{
			Rank:         rank,
			UserID:       row.UserID,
			Username:     row.Username,
			Score:        row.Score,
			Level:        row.Level,
			LinesCleared: row.LinesCleared,
			GameDuration: row.GameDuration,
			AchievedAt:   row.CreatedAt,
		})
	}
	return entries, nil
}

// GetUserRank returns nil (no error) for a user with zero records.
func (s *RankingService) GetUserRank(userID string) (*RankInfo, error) {
	var best sql.NullInt64
	err := s.db.Model(&models.GameRecord{}).
		Where("user_id = ?", userID).
		Select("MAX(score)").
		Scan(&best).Error
	if err != nil {
		return nil, storageErr("get_user_rank", err)
	}
	if !best.Valid {
		return nil, nil
	}

	better, err := s.countUsersAbove(int(best.Int64))
	if err != nil {
		return nil, err
	}
	rank := int(better) + 1

	var total int64
	err = s.db.Model(&models.GameRecord{}).
		Distinct("user_id").
		Count(&total).Error
	if err != nil {
		return nil, storageErr("get_user_rank", err)
	}

	username := "Unknown"
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err == nil {
		username = user.Username
	}

	percentile := 0.0
	if total > 0 {
		percentile = math.Round(float64(total-int64(rank)+1)/float64(total)*1000) / 10
	}

	return &RankInfo{
		UserID:     userID,
		Username:   username,
		Rank:       rank,
		TotalUsers: int(total),
		BestScore:  int(best.Int64),
		Percentile: percentile,
	}, nil
}

// GetUserBestScore returns 0 when the user has no records.
func (s *RankingService) GetUserBestScore(userID string) (int, error) {
	var best sql.NullInt64
	err := s.db.Model(&models.GameRecord{}).
		Where("user_id = ?", userID).
		Select("MAX(score)").
		Scan(&best).Error
	if err != nil {
		return 0, storageErr("get_user_best_score", err)
	}
	return int(best.Int64), nil
}

func (s *RankingService) countUsersAbove(score int) (int64, error) {
	var better int64
	err := s.db.Model(&models.GameRecord{}).
		Where("score > ?", score).
		Distinct("user_id").
		Count(&better).Error
	if err != nil {
		return 0, storageErr("count_users_above", err)
	}
	return better, nil
}

type GlobalStatistics struct {
	TotalGames            int     `json:"total_games"`
	TotalPlayers          int     `json:"total_players"`
	HighestScore          int     `json:"highest_score"`
	AverageScore          float64 `json:"average_score"`
	TotalLinesCleared     int     `json:"total_lines_cleared"`
	TotalPlayTimeHours    float64 `json:"total_play_time_hours"`
	GamesToday            int     `json:"games_today"`
	ActivePlayersToday    int     `json:"active_players_today"`
	GamesThisWeek         int     `json:"games_this_week"`
	ActivePlayersThisWeek int     `json:"active_players_this_week"`
}

func (s *RankingService) GetGlobalStatistics() (*GlobalStatistics, error) {
	var basic struct {
		TotalGames   int64
		TotalPlayers int64
		HighestScore sql.NullInt64
		AvgScore     sql.NullFloat64
		TotalLines   sql.NullInt64
		TotalTime    sql.NullInt64
	}
	err := s.db.Model(&models.GameRecord{}).
		Select("COUNT(id) AS total_games, COUNT(DISTINCT user_id) AS total_players, MAX(score) AS highest_score, AVG(score) AS avg_score, SUM(lines_cleared) AS total_lines, SUM(game_duration) AS total_time").
		Scan(&basic).Error
	if err != nil {
		return nil, storageErr("get_global_statistics", err)
	}

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	today, err := s.periodCounts(midnight)
	if err != nil {
		return nil, err
	}
	week, err := s.periodCounts(weekAgo)
	if err != nil {
		return nil, err
	}

	return &GlobalStatistics{
		TotalGames:            int(basic.TotalGames),
		TotalPlayers:          int(basic.TotalPlayers),
		HighestScore:          int(basic.HighestScore.Int64),
		AverageScore:          math.Round(basic.AvgScore.Float64*10) / 10,
		TotalLinesCleared:     int(basic.TotalLines.Int64),
		TotalPlayTimeHours:    math.Round(float64(basic.TotalTime.Int64)/3600*10) / 10,
		GamesToday:            today.games,
		ActivePlayersToday:    today.players,
		GamesThisWeek:         week.games,
		ActivePlayersThisWeek: week.players,
	}, nil
}

type periodCount struct {
	games   int
	players int
}

func (s *RankingService) periodCounts(since time.Time) (periodCount, error) {
	var row struct {
		Games   int64
		Players int64
	}
	err := s.db.Model(&models.GameRecord{}).
		Select("COUNT(id) AS games, COUNT(DISTINCT user_id) AS players").
		Where("created_at >= ?", since).
		Scan(&row).Error
	if err != nil {
		return periodCount{}, storageErr("period_counts", err)
	}
	return periodCount{games: int(row.Games), players: int(row.Players)}, nil
}

// GetLevelDistribution maps each level to the number of games that
// reached it.
func (s *RankingService) GetLevelDistribution() (map[int]int, error) {
	var rows []struct {
		Level int
		Count int64
	}
	err := s.db.Model(&models.GameRecord{}).
		Select("level, COUNT(id) AS count").
		Group("level").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("get_level_distribution", err)
	}

	distribution := make(map[int]int, len(rows))
	for _, row := range rows {
		distribution[row.Level] = int(row.Count)
	}
	return distribution, nil
}

type UserStatistics struct {
	UserID              string  `json:"user_id"`
	TotalGames          int     `json:"total_games"`
	BestScore           int     `json:"best_score"`
	AverageScore        float64 `json:"average_score"`
	TotalLinesCleared   int     `json:"total_lines_cleared"`
	TotalPlayTime       int     `json:"total_play_time"`
	MaxLevelReached     int     `json:"max_level_reached"`
	AverageGameDuration float64 `json:"average_game_duration"`
	GamesThisWeek       int     `json:"games_this_week"`
	ImprovementTrend    string  `json:"improvement_trend"`
}

func (s *RankingService) GetUserStatistics(userID string) (*UserStatistics, error) {
	var agg struct {
		TotalGames int64
		BestScore  sql.NullInt64
		AvgScore   sql.NullFloat64
		TotalLines sql.NullInt64
		TotalTime  sql.NullInt64
		MaxLevel   sql.NullInt64
	}
	err := s.db.Model(&models.GameRecord{}).
		Select("COUNT(id) AS total_games, MAX(score) AS best_score, AVG(score) AS avg_score, SUM(lines_cleared) AS total_lines, SUM(game_duration) AS total_time, MAX(level) AS max_level").
		Where("user_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return nil, storageErr("get_user_statistics", err)
	}

	stats := &UserStatistics{UserID: userID, ImprovementTrend: "no_data"}
	if agg.TotalGames == 0 {
		return stats, nil
	}

	var weekGames int64
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	err = s.db.Model(&models.GameRecord{}).
		Where("user_id = ? AND created_at >= ?", userID, weekAgo).
		Count(&weekGames).Error
	if err != nil {
		return nil, storageErr("get_user_statistics", err)
	}

	stats.TotalGames = int(agg.TotalGames)
	stats.BestScore = int(agg.BestScore.Int64)
	stats.AverageScore = math.Round(agg.AvgScore.Float64*10) / 10
	stats.TotalLinesCleared = int(agg.TotalLines.Int64)
	stats.TotalPlayTime = int(agg.TotalTime.Int64)
	stats.MaxLevelReached = int(agg.MaxLevel.Int64)
	stats.AverageGameDuration = math.Round(float64(agg.TotalTime.Int64)/float64(agg.TotalGames)*10) / 10
	stats.GamesThisWeek = int(weekGames)
	stats.ImprovementTrend = s.improvementTrend(userID)
	return stats, nil
}

// improvementTrend compares the average of the last 5 games against
// the 5 before them.
func (s *RankingService) improvementTrend(userID string) string {
	var recent, previous []models.GameRecord
	s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(5).Find(&recent)
	s.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(5).Limit(5).Find(&previous)

	if len(recent) < 3 || len(previous) < 3 {
		return "stable"
	}

	recentAvg := averageScore(recent)
	previousAvg := averageScore(previous)
	switch {
	case recentAvg > previousAvg*1.1:
		return "improving"
	case recentAvg < previousAvg*0.9:
		return "declining"
	default:
		return "stable"
	}
}

func averageScore(records []models.GameRecord) float64 {
	total := 0
	for _, r := range records {
		total += r.Score
	}
	return float64(total) / float64(len(records))
}
