package repository

import (
	"context"
	"errors"

	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/reactions"
	"gorm.io/gorm"
)

// ReactionRepository is the gorm-backed reactions.Store
type ReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// FindTarget resolves a post or comment to its owner and enclosing post
func (r *ReactionRepository) FindTarget(ctx context.Context, kind reactions.Kind, id uint) (*reactions.Target, error) {
	db := r.db.WithContext(ctx)
	switch kind {
	case reactions.KindPost:
		var post models.Post
		err := db.Select("id", "author_id").First(&post, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reactions.ErrTargetNotFound
		}
		if err != nil {
			return nil, err
		}
		return &reactions.Target{Kind: kind, ID: post.ID, OwnerID: post.AuthorID, PostID: post.ID}, nil

	case reactions.KindComment:
		var comment models.Comment
		err := db.Select("id", "author_id", "post_id").First(&comment, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reactions.ErrTargetNotFound
		}
		if err != nil {
			return nil, err
		}
		return &reactions.Target{Kind: kind, ID: comment.ID, OwnerID: comment.AuthorID, PostID: comment.PostID}, nil
	}
	return nil, reactions.ErrInvalidReaction
}

// FindReaction returns the user's reaction on the target, or nil
func (r *ReactionRepository) FindReaction(ctx context.Context, userID uint, kind reactions.Kind, targetID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, string(kind), targetID).
		First(&reaction).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// CreateReaction inserts a reaction; the unique index turns races into ErrDuplicate
func (r *ReactionRepository) CreateReaction(ctx context.Context, reaction *models.Reaction) error {
	err := r.db.WithContext(ctx).Create(reaction).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return reactions.ErrDuplicate
	}
	return err
}

// UpdateReactionType changes the type of an existing reaction
func (r *ReactionRepository) UpdateReactionType(ctx context.Context, reactionID uint, reactionType string) error {
	return r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Where("id = ?", reactionID).
		Update("type", reactionType).Error
}

// DeleteReaction removes a reaction
func (r *ReactionRepository) DeleteReaction(ctx context.Context, reactionID uint) error {
	return r.db.WithContext(ctx).Delete(&models.Reaction{}, reactionID).Error
}

// CountByType aggregates reactions on a target by type
func (r *ReactionRepository) CountByType(ctx context.Context, kind reactions.Kind, targetID uint) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("type, COUNT(*) AS count").
		Where("target_kind = ? AND target_id = ?", string(kind), targetID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// ListReactors lists reactions on a target with their users, newest first
func (r *ReactionRepository) ListReactors(ctx context.Context, kind reactions.Kind, targetID uint, reactionType string) ([]models.Reaction, error) {
	var list []models.Reaction
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("target_kind = ? AND target_id = ?", string(kind), targetID)
	if reactionType != "" {
		q = q.Where("type = ?", reactionType)
	}
	err := q.Order("updated_at DESC").Find(&list).Error
	return list, err
}

// Username returns the display handle used in notification messages
func (r *ReactionRepository) Username(ctx context.Context, userID uint) (string, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "username", "name").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if user.Username != "" {
		return user.Username, nil
	}
	return user.Name, nil
}
