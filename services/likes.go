package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
)

// Likeable types stored in liked_posts. Requests are stored as "donation".
const (
	LikeableDonation = "donation"
	LikeableForum    = "forum"
)

// ToggleForumLike likes the forum, or removes the like when it already exists.
func (s *Service) ToggleForumLike(ctx context.Context, forumID, userID uint) (bool, int64, error) {
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("forum_id = ? AND user_id = ?", forumID, userID).Delete(&models.ForumLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Create(&models.ForumLike{ForumID: forumID, UserID: userID}).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("toggle forum like: %w", err)
	}
	counts, err := s.forumLikeCounts(ctx, []uint{forumID})
	if err != nil {
		return false, 0, err
	}
	return liked, counts[forumID], nil
}

// HasLikedForum reports whether userID likes forumID.
func (s *Service) HasLikedForum(ctx context.Context, forumID, userID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ForumLike{}).
		Where("forum_id = ? AND user_id = ?", forumID, userID).Count(&n).Error
	return n > 0, err
}

// TogglePostLike flips the generic like of userID on one post.
func (s *Service) TogglePostLike(ctx context.Context, userID uint, likeableType string, likeableID uint) (bool, error) {
	if likeableType != LikeableDonation && likeableType != LikeableForum {
		return false, fmt.Errorf("%w: likeable type %q", ErrInvalid, likeableType)
	}
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND likeable_type = ? AND likeable_id = ?", userID, likeableType, likeableID).
			Delete(&models.LikedPost{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Create(&models.LikedPost{UserID: userID, LikeableType: likeableType, LikeableID: likeableID}).Error
	})
	if err != nil {
		return false, fmt.Errorf("toggle like: %w", err)
	}
	return liked, nil
}

// HasLikedPost reports whether userID has a generic like on the post.
func (s *Service) HasLikedPost(ctx context.Context, userID uint, likeableType string, likeableID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.LikedPost{}).
		Where("user_id = ? AND likeable_type = ? AND likeable_id = ?", userID, likeableType, likeableID).
		Count(&n).Error
	return n > 0, err
}

// LikedPosts returns every post userID liked, newest post first.
func (s *Service) LikedPosts(ctx context.Context, userID uint) ([]Post, error) {
	var likes []models.LikedPost
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}
	donationIDs, forumIDs := []uint{}, []uint{}
	for _, l := range likes {
		switch l.LikeableType {
		case LikeableDonation:
			donationIDs = append(donationIDs, l.LikeableID)
		case LikeableForum:
			forumIDs = append(forumIDs, l.LikeableID)
		}
	}

	posts := make([]Post, 0, len(likes))
	load := func(kind PostKind, ids []uint) error {
		if len(ids) == 0 {
			return nil
		}
		rows, err := s.Find(ctx, kind, SearchParams{IDs: ids})
		if err != nil {
			return err
		}
		posts = append(posts, rows...)
		return nil
	}
	for _, step := range []struct {
		kind PostKind
		ids  []uint
	}{
		{KindDonation, donationIDs},
		{KindRequest, donationIDs},
		{KindForum, forumIDs},
	} {
		if err := load(step.kind, step.ids); err != nil {
			return nil, err
		}
	}
	SortPosts(posts)
	return posts, nil
}

// notFound converts gorm's record-not-found into ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
