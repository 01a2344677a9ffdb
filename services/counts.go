package services

import (
	"context"
	"fmt"

	"github.com/pedulirasa/backend/models"
)

type countRow struct {
	ID uint
	N  int64
}

// countChunk bounds the ids bound into one IN list, well below driver placeholder limits.
const countChunk = 500

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []uint, size int) [][]uint {
	var out [][]uint
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// groupCounts runs one grouped count per chunk of ids and merges the results.
func (s *Service) groupCounts(ctx context.Context, model interface{}, column, where string, args []interface{}, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	for _, chunk := range chunkIDs(ids, countChunk) {
		var rows []countRow
		err := s.db.WithContext(ctx).Model(model).
			Select(column+" AS id, COUNT(*) AS n").
			Where(where, append(args, chunk)...).
			Group(column).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.ID] = r.N
		}
	}
	return out, nil
}

// commentCounts counts comments per post id for one commentable type.
func (s *Service) commentCounts(ctx context.Context, commentableType string, ids []uint) (map[uint]int64, error) {
	out, err := s.groupCounts(ctx, &models.Comment{}, "commentable_id",
		"commentable_type = ? AND commentable_id IN ?", []interface{}{commentableType}, ids)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	return out, nil
}

// forumLikeCounts counts likes per forum id.
func (s *Service) forumLikeCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	out, err := s.groupCounts(ctx, &models.ForumLike{}, "forum_id", "forum_id IN ?", nil, ids)
	if err != nil {
		return nil, fmt.Errorf("count forum likes: %w", err)
	}
	return out, nil
}

func (s *Service) attachDonationCounts(ctx context.Context, rows []models.Donation) error {
	ids := make([]uint, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	counts, err := s.commentCounts(ctx, models.CommentableDonation, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].CommentsCount = counts[rows[i].ID]
	}
	return nil
}

func (s *Service) attachForumCounts(ctx context.Context, rows []models.Forum) error {
	ids := make([]uint, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	comments, err := s.commentCounts(ctx, models.CommentableForum, ids)
	if err != nil {
		return err
	}
	likes, err := s.forumLikeCounts(ctx, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].CommentsCount = comments[rows[i].ID]
		rows[i].LikedByUsersCount = likes[rows[i].ID]
	}
	return nil
}

func (s *Service) attachAffairCounts(ctx context.Context, rows []models.Affair) error {
	ids := make([]uint, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	counts, err := s.commentCounts(ctx, models.CommentableAffair, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].CommentsCount = counts[rows[i].ID]
	}
	return nil
}
