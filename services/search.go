package services

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
)

// CategoryFacet is one selectable category in the search filter UI.
type CategoryFacet struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Facets lists the categories of every type. Requests share the donation categories.
type Facets struct {
	Donation []CategoryFacet `json:"donation"`
	Request  []CategoryFacet `json:"request"`
	Forum    []CategoryFacet `json:"forum"`
	Affair   []CategoryFacet `json:"affair"`
}

// SearchResult is the unified search response.
type SearchResult struct {
	Posts      []Post  `json:"posts"`
	Categories Facets  `json:"categories"`
	Filters    Filters `json:"filters"`
}

// Search runs the per-type filters selected by p, merges them newest first and
// attaches the category facets. The whole filtered set is returned in one response.
func (s *Service) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	posts := make([]Post, 0)
	for _, kind := range p.Kinds() {
		rows, err := s.Find(ctx, kind, p)
		if err != nil {
			return nil, err
		}
		posts = append(posts, rows...)
	}
	SortPosts(posts)

	facets, err := s.Facets(ctx)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Posts: posts, Categories: *facets, Filters: p.Filters()}, nil
}

// SortPosts orders posts by created_at desc, then id desc, then type
// (donation, request, forum, affair).
func SortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.After(b.createdAt)
		}
		if a.ID != b.ID {
			return a.ID > b.ID
		}
		return a.Type.rank() < b.Type.rank()
	})
}

// Facets loads every category table as {id, name}, ordered by name.
func (s *Service) Facets(ctx context.Context) (*Facets, error) {
	db := s.db.WithContext(ctx)
	f := &Facets{
		Donation: []CategoryFacet{},
		Forum:    []CategoryFacet{},
		Affair:   []CategoryFacet{},
	}
	if err := db.Model(&models.DonationCategory{}).Select("id, name").Order("name ASC").Scan(&f.Donation).Error; err != nil {
		return nil, fmt.Errorf("load donation categories: %w", err)
	}
	if err := db.Model(&models.ForumCategory{}).Select("id, name").Order("name ASC").Scan(&f.Forum).Error; err != nil {
		return nil, fmt.Errorf("load forum categories: %w", err)
	}
	if err := db.Model(&models.AffairCategory{}).Select("id, name").Order("name ASC").Scan(&f.Affair).Error; err != nil {
		return nil, fmt.Errorf("load affair categories: %w", err)
	}
	for _, list := range []*[]CategoryFacet{&f.Donation, &f.Forum, &f.Affair} {
		if *list == nil {
			*list = []CategoryFacet{}
		}
	}
	f.Request = f.Donation
	return f, nil
}

// PostsByUser lists one author's posts of the given type (unknown means all), newest first.
func (s *Service) PostsByUser(ctx context.Context, userID uint, typ string) ([]Post, error) {
	p := NormalizeParams("", typ, "all", "all", "", "")
	p.UserID = &userID
	posts := make([]Post, 0)
	for _, kind := range p.Kinds() {
		rows, err := s.Find(ctx, kind, p)
		if err != nil {
			return nil, err
		}
		posts = append(posts, rows...)
	}
	SortPosts(posts)
	return posts, nil
}

// PostCounts is the number of live posts per type for one author.
type PostCounts struct {
	Donations int64 `json:"donations"`
	Requests  int64 `json:"requests"`
	Forums    int64 `json:"forums"`
	Affairs   int64 `json:"affairs"`
}

// CountByUser counts the author's posts per type. Soft-deleted donations are excluded.
func (s *Service) CountByUser(ctx context.Context, userID uint) (*PostCounts, error) {
	db := s.db.WithContext(ctx)
	c := &PostCounts{}
	steps := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{db.Model(&models.Donation{}).Where("user_id = ? AND type = ?", userID, models.DonationTypeDonation), &c.Donations},
		{db.Model(&models.Donation{}).Where("user_id = ? AND type = ?", userID, models.DonationTypeRequest), &c.Requests},
		{db.Model(&models.Forum{}).Where("user_id = ?", userID), &c.Forums},
		{db.Model(&models.Affair{}).Where("user_id = ?", userID), &c.Affairs},
	}
	for _, st := range steps {
		if err := st.q.Count(st.dst).Error; err != nil {
			return nil, fmt.Errorf("count posts: %w", err)
		}
	}
	return c, nil
}
