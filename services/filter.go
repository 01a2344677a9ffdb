package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
)

// likeEscaper makes "%" and "_" in user input match literally. "!" is the escape
// character of every LIKE clause built by likeClause.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike escapes s for a LIKE clause that declares ESCAPE '!'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likePattern turns s into a case-insensitive substring pattern for likeClause.
func likePattern(s string) string {
	return "%" + EscapeLike(strings.ToLower(s)) + "%"
}

// likeClause matches column against a likePattern argument.
func likeClause(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '!'"
}

// applyCommon adds the keyword, category, date and author predicates shared by every table.
func (s *Service) applyCommon(q *gorm.DB, table, categoryTable, categoryFK string, p SearchParams) *gorm.DB {
	if p.Keyword != "" {
		pat := likePattern(p.Keyword)
		q = q.Where("("+likeClause(table+".title")+" OR "+likeClause(table+".description")+")", pat, pat)
	}
	if p.Category != "" && p.Category != "all" {
		q = q.Where(fmt.Sprintf("EXISTS (SELECT 1 FROM %[1]s WHERE %[1]s.id = %[2]s.%[3]s AND %[1]s.name = ?)",
			categoryTable, table, categoryFK), p.Category)
	}
	if start, end, ok := p.Date.Window(s.now(), s.loc); ok {
		q = q.Where(fmt.Sprintf("%[1]s.created_at >= ? AND %[1]s.created_at < ?", table), start.UTC(), end.UTC())
	}
	if p.UserID != nil {
		q = q.Where(table+".user_id = ?", *p.UserID)
	}
	if p.IDs != nil {
		q = q.Where(table+".id IN ?", p.IDs)
	}
	return q
}

func (s *Service) donationQuery(ctx context.Context, kind PostKind, p SearchParams) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Donation{}).Where("donations.type = ?", string(kind))
	q = s.applyCommon(q, "donations", "donation_categories", "donation_category_id", p)
	if kind == KindRequest && p.Urgency != "" && p.Urgency != "all" {
		q = q.Where("donations.urgency = ?", p.Urgency)
	}
	if p.Location != "" {
		q = q.Where(likeClause("donations.address"), likePattern(p.Location))
	}
	return q
}

func (s *Service) forumQuery(ctx context.Context, p SearchParams) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Forum{})
	// Forums have no location; the location filter does not apply.
	return s.applyCommon(q, "forums", "forum_categories", "forum_category_id", p)
}

func (s *Service) affairQuery(ctx context.Context, p SearchParams) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Affair{})
	q = s.applyCommon(q, "affairs", "affair_categories", "affair_category_id", p)
	if p.Location != "" {
		q = q.Where(likeClause("affairs.location"), likePattern(p.Location))
	}
	return q
}

// Find returns every post of one kind matching p, newest first, projected to the common shape.
func (s *Service) Find(ctx context.Context, kind PostKind, p SearchParams) ([]Post, error) {
	switch kind {
	case KindDonation, KindRequest:
		var rows []models.Donation
		err := s.donationQuery(ctx, kind, p).
			Preload("User").Preload("Category").
			Preload("Images", OrderImages).
			Order("donations.created_at DESC, donations.id DESC").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", kind, err)
		}
		if err := s.attachDonationCounts(ctx, rows); err != nil {
			return nil, err
		}
		out := make([]Post, 0, len(rows))
		for _, r := range rows {
			out = append(out, s.projectDonation(r))
		}
		return out, nil
	case KindForum:
		var rows []models.Forum
		err := s.forumQuery(ctx, p).
			Preload("User").Preload("Category").
			Order("forums.created_at DESC, forums.id DESC").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("find forum: %w", err)
		}
		if err := s.attachForumCounts(ctx, rows); err != nil {
			return nil, err
		}
		out := make([]Post, 0, len(rows))
		for _, r := range rows {
			out = append(out, s.projectForum(r))
		}
		return out, nil
	case KindAffair:
		var rows []models.Affair
		err := s.affairQuery(ctx, p).
			Preload("User").Preload("Category").
			Order("affairs.created_at DESC, affairs.id DESC").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("find affair: %w", err)
		}
		if err := s.attachAffairCounts(ctx, rows); err != nil {
			return nil, err
		}
		out := make([]Post, 0, len(rows))
		for _, r := range rows {
			out = append(out, s.projectAffair(r))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown post type %q", ErrInvalid, kind)
}

// OrderImages preloads donation images oldest first.
func OrderImages(db *gorm.DB) *gorm.DB {
	return db.Order("donation_images.id ASC")
}
