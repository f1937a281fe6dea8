package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/quillhub/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles all database operations for users
type UserRepository interface {
	// User CRUD
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// User queries
	GetUsers(ctx context.Context, userIDs []uint) ([]models.User, error)
	UsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)

	// Admin
	SetRole(ctx context.Context, userID uint, role string) error

	// Stats
	GetTotalUserCount(ctx context.Context) (int64, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser creates a new user
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, userID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates a user
func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == 0 {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Save(user).Error
}

// GetUsers gets multiple users by IDs
func (r *userRepository) GetUsers(ctx context.Context, userIDs []uint) ([]models.User, error) {
	var users []models.User
	if len(userIDs) == 0 {
		return users, nil
	}

	err := r.db.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&users).Error

	return users, err
}

// UsersByUsernames resolves lower-cased handles to users
func (r *userRepository) UsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	var users []models.User
	if len(usernames) == 0 {
		return users, nil
	}

	err := r.db.WithContext(ctx).
		Where("LOWER(username) IN ?", usernames).
		Find(&users).Error

	return users, err
}

// ListUsers lists users in signup order
func (r *userRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User

	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error

	return users, err
}

// SetRole changes a user's role
func (r *userRepository) SetRole(ctx context.Context, userID uint, role string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetTotalUserCount gets total user count
func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Count(&count).Error

	return count, err
}
