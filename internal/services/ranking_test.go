package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLeaderboardEmptyStore(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)

	entries, err := svc.GetLeaderboard(10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLeaderboardOrderAndRanks(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	now := time.Now().UTC()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	addRecord(t, db, alice.ID, 3000, now)
	addRecord(t, db, bob.ID, 2000, now)
	addRecord(t, db, carol.ID, 1000, now)

	entries, err := svc.GetLeaderboard(10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []int{3000, 2000, 1000}, []int{entries[0].Score, entries[1].Score, entries[2].Score})
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
	assert.Equal(t, "alice", entries[0].Username)
}

func TestLeaderboardOneEntryPerUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	now := time.Now().UTC()

	user := createTestUser(t, db, "grinder")
	for i, score := range []int{500, 2500, 1500, 2500, 100} {
		addRecord(t, db, user.ID, score, now.Add(time.Duration(i)*time.Minute))
	}

	entries, err := svc.GetLeaderboard(10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1, "a user appears once, at their personal best")
	assert.Equal(t, 2500, entries[0].Score)
}

func TestLeaderboardTiedUsersShareRank(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	now := time.Now().UTC()

	first := createTestUser(t, db, "tied_one")
	second := createTestUser(t, db, "tied_two")
	third := createTestUser(t, db, "behind")
	addRecord(t, db, first.ID, 2000, now)
	addRecord(t, db, second.ID, 2000, now)
	addRecord(t, db, third.ID, 1000, now)

	entries, err := svc.GetLeaderboard(10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)

	// the tie-aware user rank agrees with the leaderboard
	info, err := svc.GetUserRank(third.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Rank)
}

func TestLeaderboardPaginationAnchorsTies(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	now := time.Now().UTC()

	a := createTestUser(t, db, "page_a")
	b := createTestUser(t, db, "page_b")
	c := createTestUser(t, db, "page_c")
	addRecord(t, db, a.ID, 2000, now)
	addRecord(t, db, b.ID, 2000, now)
	addRecord(t, db, c.ID, 1000, now)

	page, err := svc.GetLeaderboard(2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)

	// second member of the tie group keeps rank 1 even when it opens
	// the page
	assert.Equal(t, 2000, page[0].Score)
	assert.Equal(t, 1, page[0].Rank)
	assert.Equal(t, 3, page[1].Rank)
}

func TestGetUserRank(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	now := time.Now().UTC()

	alice := createTestUser(t, db, "rank_alice")
	bob := createTestUser(t, db, "rank_bob")
	carol := createTestUser(t, db, "rank_carol")
	addRecord(t, db, alice.ID, 3000, now)
	addRecord(t, db, bob.ID, 2000, now)
	addRecord(t, db, carol.ID, 1000, now)

	info, err := svc.GetUserRank(bob.ID)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, 2, info.Rank)
	assert.Equal(t, 3, info.TotalUsers)
	assert.Equal(t, 2000, info.BestScore)
	assert.InDelta(t, 66.7, info.Percentile, 0.01)
	assert.Equal(t, "rank_bob", info.Username)
}

func TestGetUserRankAbsentForNoRecords(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	user := createTestUser(t, db, "no_games")

	info, err := svc.GetUserRank(user.ID)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetUserRankIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	user := createTestUser(t, db, "stable_user")
	addRecord(t, db, user.ID, 1234, time.Now().UTC())

	first, err := svc.GetUserRank(user.ID)
	require.NoError(t, err)
	second, err := svc.GetUserRank(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetGlobalStatistics(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	now := time.Now().UTC()

	alice := createTestUser(t, db, "stats_alice")
	bob := createTestUser(t, db, "stats_bob")
	addRecord(t, db, alice.ID, 3000, now.Add(-time.Hour))
	addRecord(t, db, alice.ID, 1000, now.AddDate(0, 0, -10))
	addRecord(t, db, bob.ID, 2000, now.Add(-time.Minute))

	stats, err := svc.GetGlobalStatistics()
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalGames)
	assert.Equal(t, 2, stats.TotalPlayers)
	assert.Equal(t, 3000, stats.HighestScore)
	assert.Equal(t, 2, stats.GamesThisWeek)
	assert.Equal(t, 2, stats.ActivePlayersThisWeek)
}

func TestGetLevelDistribution(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	user := createTestUser(t, db, "level_user")
	now := time.Now().UTC()

	for i, level := range []int{1, 1, 3} {
		record := addRecord(t, db, user.ID, 100, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, db.Model(record).Update("level", level).Error)
	}

	dist, err := svc.GetLevelDistribution()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2, 3: 1}, dist)
}

func TestGetUserStatisticsNoGames(t *testing.T) {
	db := newTestDB(t)
	svc := NewRankingService(db)
	user := createTestUser(t, db, "idle_user")

	stats, err := svc.GetUserStatistics(user.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalGames)
	assert.Equal(t, "no_data", stats.ImprovementTrend)
}
