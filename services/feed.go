package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/utils"
)

// FeedImageLimit is how many images each donation carries in a feed page.
const FeedImageLimit = 3

// FeedCachePrefix namespaces cached feed pages. Writes invalidate it.
var FeedCachePrefix = utils.CacheKey("feed")

// WithFeedCache sets how long feed pages stay cached; zero disables caching.
func WithFeedCache(ttl time.Duration) Option {
	return func(s *Service) { s.feedTTL = ttl }
}

// InvalidateFeeds drops every cached feed page.
func InvalidateFeeds() {
	utils.InvalidateByPrefix(FeedCachePrefix)
}

// DonationFeed pages through donations and requests together.
func (s *Service) DonationFeed(ctx context.Context, cursor, path string) (*Page[models.Donation], error) {
	return cachedPage(ctx, s, "donations", cursor, path, func(c *Cursor) (*Page[models.Donation], error) {
		q := s.db.WithContext(ctx).Model(&models.Donation{})
		return s.donationPage(ctx, q, c, path)
	})
}

// RequestFeed pages through requests only.
func (s *Service) RequestFeed(ctx context.Context, cursor, path string) (*Page[models.Donation], error) {
	return cachedPage(ctx, s, "requests", cursor, path, func(c *Cursor) (*Page[models.Donation], error) {
		q := s.db.WithContext(ctx).Model(&models.Donation{}).Where("donations.type = ?", models.DonationTypeRequest)
		return s.donationPage(ctx, q, c, path)
	})
}

func (s *Service) donationPage(ctx context.Context, q *gorm.DB, c *Cursor, path string) (*Page[models.Donation], error) {
	q = q.Preload("User").Preload("Category").Preload("Images", OrderImages)
	items, next, prev, err := paginate[models.Donation](q, "donations", c, FeedPerPage)
	if err != nil {
		return nil, fmt.Errorf("donation feed: %w", err)
	}
	if err := s.attachDonationCounts(ctx, items); err != nil {
		return nil, err
	}
	for i := range items {
		if len(items[i].Images) > FeedImageLimit {
			items[i].Images = items[i].Images[:FeedImageLimit]
		}
		s.ResolveDonation(&items[i])
	}
	page := &Page[models.Donation]{Data: items, Path: path, PerPage: FeedPerPage}
	page.setCursors(next, prev)
	return page, nil
}

// ForumFeed pages through forums with like and comment counts.
func (s *Service) ForumFeed(ctx context.Context, cursor, path string) (*Page[models.Forum], error) {
	return cachedPage(ctx, s, "forums", cursor, path, func(c *Cursor) (*Page[models.Forum], error) {
		q := s.db.WithContext(ctx).Model(&models.Forum{}).Preload("User").Preload("Category")
		items, next, prev, err := paginate[models.Forum](q, "forums", c, FeedPerPage)
		if err != nil {
			return nil, fmt.Errorf("forum feed: %w", err)
		}
		if err := s.attachForumCounts(ctx, items); err != nil {
			return nil, err
		}
		for i := range items {
			items[i].ThumbnailURL = s.resolve(items[i].Thumbnail)
		}
		page := &Page[models.Forum]{Data: items, Path: path, PerPage: FeedPerPage}
		page.setCursors(next, prev)
		return page, nil
	})
}

// AffairFeed pages through affairs dated today or later.
func (s *Service) AffairFeed(ctx context.Context, cursor, path string) (*Page[models.Affair], error) {
	today := s.Today()
	key := "affairs:" + today.Format("20060102")
	return cachedPage(ctx, s, key, cursor, path, func(c *Cursor) (*Page[models.Affair], error) {
		q := s.db.WithContext(ctx).Model(&models.Affair{}).
			Where("affairs.date >= ?", today.Format("2006-01-02")).
			Preload("User").Preload("Category")
		items, next, prev, err := paginate[models.Affair](q, "affairs", c, FeedPerPage)
		if err != nil {
			return nil, fmt.Errorf("affair feed: %w", err)
		}
		if err := s.attachAffairCounts(ctx, items); err != nil {
			return nil, err
		}
		for i := range items {
			items[i].ThumbnailURL = s.resolve(items[i].Thumbnail)
		}
		page := &Page[models.Affair]{Data: items, Path: path, PerPage: FeedPerPage}
		page.setCursors(next, prev)
		return page, nil
	})
}

// ResolveDonation fills image URLs on a loaded donation.
func (s *Service) ResolveDonation(d *models.Donation) {
	for i := range d.Images {
		d.Images[i].URL = s.resolve(d.Images[i].Image)
	}
}

// cachedPage decodes the cursor, serves from cache when possible and otherwise loads and stores the page.
// A malformed cursor yields an empty page.
func cachedPage[T any](ctx context.Context, s *Service, name, token, path string, load func(*Cursor) (*Page[T], error)) (*Page[T], error) {
	var c *Cursor
	if token != "" {
		var err error
		if c, err = DecodeCursor(token); err != nil {
			if errors.Is(err, ErrBadCursor) {
				return emptyPage[T](path), nil
			}
			return nil, err
		}
	}

	key := utils.CacheKey("feed", name, path, token)
	if s.feedTTL > 0 {
		if b, ok := utils.CacheGet(ctx, key); ok {
			var page Page[T]
			if err := json.Unmarshal(b, &page); err == nil {
				return &page, nil
			}
		}
	}
	page, err := load(c)
	if err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	if s.feedTTL > 0 {
		utils.CacheSetJSON(ctx, key, page, s.feedTTL)
	}
	return page, nil
}
