package services

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var usernamePrefixes = []string{
	"Player", "Gamer", "Tetris", "Block", "Master", "Pro", "Star", "Hero",
}

var usernameAdjectives = []string{
	"Swift", "Smart", "Cool", "Fast", "Epic", "Super", "Mega", "Ultra",
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{2,49}$`)

// UserService is the user directory: account-less creation with
// generated usernames, lookup by id, last-active bookkeeping.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a user with the given username, or a generated
// unique one when username is empty.
func (s *UserService) CreateUser(username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		generated, err := s.generateUniqueUsername()
		if err != nil {
			return nil, err
		}
		username = generated
	} else {
		if !usernamePattern.MatchString(username) {
			return nil, validationErr("username", "must be 3-50 characters, letters/digits/underscore, not starting with a digit")
		}
		var existing models.User
		if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
			return nil, validationErr("username", "already taken")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storageErr("create_user", err)
		}
	}

	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		LastActive: time.Now().UTC(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, storageErr("create_user", err)
	}
	return &user, nil
}

func (s *UserService) GetUser(userID string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user", ID: userID}
		}
		return nil, storageErr("get_user", err)
	}
	return &user, nil
}

func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user", ID: username}
		}
		return nil, storageErr("get_user_by_username", err)
	}
	return &user, nil
}

// TouchLastActive moves the user's last-active timestamp to now.
func (s *UserService) TouchLastActive(userID string) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_active", time.Now().UTC())
	if res.Error != nil {
		return storageErr("touch_last_active", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "user", ID: userID}
	}
	return nil
}

func (s *UserService) generateUniqueUsername() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		candidate := randomUsername()
		var count int64
		if err := s.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", storageErr("generate_username", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	// Exhausted the random space; a UUID suffix is guaranteed unique.
	prefix := usernamePrefixes[rand.Intn(len(usernamePrefixes))]
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8]), nil
}

func randomUsername() string {
	prefix := usernamePrefixes[rand.Intn(len(usernamePrefixes))]
	switch rand.Intn(3) {
	case 0:
		const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		suffix := make([]byte, 4)
		for i := range suffix {
			suffix[i] = chars[rand.Intn(len(chars))]
		}
		return fmt.Sprintf("%s_%s", prefix, suffix)
	case 1:
		adjective := usernameAdjectives[rand.Intn(len(usernameAdjectives))]
		return fmt.Sprintf("%s%s%d", adjective, prefix, 10+rand.Intn(990))
	default:
		return fmt.Sprintf("%s%d", prefix, 1000+rand.Intn(9000))
	}
}
