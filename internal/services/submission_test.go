package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type rankChange struct {
	userID  string
	oldRank *int
	newRank *int
	score   int
}

type fakeNotifier struct {
	mu          sync.Mutex
	broadcasts  int
	rankChanges []rankChange
}

func (f *fakeNotifier) BroadcastLeaderboardUpdate(triggerUserID string, newScore int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts++
}

func (f *fakeNotifier) NotifyRankChange(userID string, oldRank, newRank *int, score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rankChanges = append(f.rankChanges, rankChange{userID, oldRank, newRank, score})
}

func newSubmissionFixture(t *testing.T) (*SubmissionService, *fakeNotifier, *RankingService, *gorm.DB) {
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	games := NewGameService(db, 1000)
	ranking := NewRankingService(db)
	svc := NewSubmissionService(games, ranking, notifier)
	return svc, notifier, ranking, db
}

func TestSubmitScoreFirstRecordNotifiesRankChange(t *testing.T) {
	svc, notifier, _, db := newSubmissionFixture(t)
	user := createTestUser(t, db, "fresh_user")

	record, info, err := svc.SubmitScore(user.ID, 1000, 2, 10, 120)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotNil(t, info)

	assert.Equal(t, 1, notifier.broadcasts)
	require.Len(t, notifier.rankChanges, 1, "going from unranked to ranked is a rank change")

	change := notifier.rankChanges[0]
	assert.Nil(t, change.oldRank)
	require.NotNil(t, change.newRank)
	assert.Equal(t, 1, *change.newRank)
	assert.Equal(t, 1000, change.score)
}

func TestSubmitScoreLowerScoreDoesNotNotify(t *testing.T) {
	svc, notifier, _, db := newSubmissionFixture(t)
	user := createTestUser(t, db, "steady_user")
	addRecord(t, db, user.ID, 5000, time.Now().UTC())

	_, _, err := svc.SubmitScore(user.ID, 1000, 2, 10, 120)
	require.NoError(t, err)

	assert.Equal(t, 1, notifier.broadcasts, "leaderboard broadcast happens on every submission")
	assert.Empty(t, notifier.rankChanges, "rank did not move, no targeted notification")
}

func TestSubmitScoreOvertakeChangesBothViews(t *testing.T) {
	svc, notifier, ranking, db := newSubmissionFixture(t)
	leader := createTestUser(t, db, "old_leader")
	challenger := createTestUser(t, db, "challenger")
	addRecord(t, db, leader.ID, 3000, time.Now().UTC())
	addRecord(t, db, challenger.ID, 1000, time.Now().UTC())

	before, err := ranking.GetUserRank(leader.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, before.Rank)

	_, info, err := svc.SubmitScore(challenger.ID, 4000, 5, 40, 200)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Rank)

	after, err := ranking.GetUserRank(leader.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Rank, "overtaken user's observed rank changes")

	require.Len(t, notifier.rankChanges, 1)
	change := notifier.rankChanges[0]
	assert.Equal(t, challenger.ID, change.userID)
	require.NotNil(t, change.oldRank)
	require.NotNil(t, change.newRank)
	assert.Equal(t, 2, *change.oldRank)
	assert.Equal(t, 1, *change.newRank)
}

func TestSubmitScoreValidationFailureHasNoSideEffects(t *testing.T) {
	svc, notifier, _, db := newSubmissionFixture(t)
	user := createTestUser(t, db, "invalid_user")

	_, _, err := svc.SubmitScore(user.ID, 100, 1, 0, 60)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	assert.Zero(t, notifier.broadcasts)
	assert.Empty(t, notifier.rankChanges)
}
