package services

import (
	"log"
	"sync"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"gorm.io/gorm"
)

// CleanupService removes stale data out of band: old records,
// abandoned userless accounts, and same-day duplicate scores. It
// never runs on the submission path.
type CleanupService struct {
	db            *gorm.DB
	interval      time.Duration
	retentionDays int
	inactiveDays  int

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

func NewCleanupService(db *gorm.DB, interval time.Duration, retentionDays, inactiveDays int) *CleanupService {
	return &CleanupService{
		db:            db,
		interval:      interval,
		retentionDays: retentionDays,
		inactiveDays:  inactiveDays,
		stopCh:        make(chan struct{}),
	}
}

func (s *CleanupService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.loop()
	log.Println("[cleanup] started")
}

func (s *CleanupService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	close(s.stopCh)
	s.started = false
	log.Println("[cleanup] stopped")
}

func (s *CleanupService) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunAll()
		case <-s.stopCh:
			return
		}
	}
}

func (s *CleanupService) RunAll() {
	if n, err := s.CleanupOldGameRecords(); err != nil {
		log.Printf("[cleanup] old records failed: %v", err)
	} else if n > 0 {
		log.Printf("[cleanup] deleted %d old game records", n)
	}

	if n, err := s.CleanupInactiveUsers(); err != nil {
		log.Printf("[cleanup] inactive users failed: %v", err)
	} else if n > 0 {
		log.Printf("[cleanup] deleted %d inactive users", n)
	}

	if n, err := s.CleanupDuplicateRecords(); err != nil {
		log.Printf("[cleanup] duplicates failed: %v", err)
	} else if n > 0 {
		log.Printf("[cleanup] deleted %d duplicate records", n)
	}
}

// CleanupOldGameRecords deletes records older than the retention
// window.
func (s *CleanupService) CleanupOldGameRecords() (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.GameRecord{})
	if res.Error != nil {
		return 0, storageErr("cleanup_old_game_records", res.Error)
	}
	return res.RowsAffected, nil
}

// CleanupInactiveUsers deletes users inactive past the threshold who
// have no game records at all.
func (s *CleanupService) CleanupInactiveUsers() (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.inactiveDays)
	res := s.db.Where(
		"last_active < ? AND id NOT IN (?)",
		cutoff,
		s.db.Model(&models.GameRecord{}).Select("user_id"),
	).Delete(&models.User{})
	if res.Error != nil {
		return 0, storageErr("cleanup_inactive_users", res.Error)
	}
	return res.RowsAffected, nil
}

// CleanupDuplicateRecords collapses groups with the same user, score
// and calendar day down to the newest record of the group.
func (s *CleanupService) CleanupDuplicateRecords() (int64, error) {
	var groups []struct {
		UserID string
		Score  int
		Day    string
	}
	err := s.db.Model(&models.GameRecord{}).
		Select("user_id, score, DATE(created_at) AS day").
		Group("user_id, score, DATE(created_at)").
		Having("COUNT(id) > 1").
		Scan(&groups).Error
	if err != nil {
		return 0, storageErr("cleanup_duplicate_records", err)
	}

	var deleted int64
	for _, g := range groups {
		var records []models.GameRecord
		err := s.db.Where("user_id = ? AND score = ? AND DATE(created_at) = ?", g.UserID, g.Score, g.Day).
			Order("created_at DESC").
			Find(&records).Error
		if err != nil {
			return deleted, storageErr("cleanup_duplicate_records", err)
		}
		if len(records) < 2 {
			continue
		}
		for _, record := range records[1:] {
			if err := s.db.Delete(&record).Error; err != nil {
				return deleted, storageErr("cleanup_duplicate_records", err)
			}
			deleted++
		}
	}
	return deleted, nil
}
