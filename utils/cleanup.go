package utils

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
)

// ObjectRemover deletes a stored object by key.
type ObjectRemover interface {
	Delete(ctx context.Context, key string) error
}

// StartUploadCleaner periodically removes uploads that were never attached to a post.
// It stops when ctx is cancelled.
func StartUploadCleaner(ctx context.Context, db *gorm.DB, store ObjectRemover, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := CleanExpiredUploads(ctx, db, store, time.Now()); n > 0 {
					Sugar.Infof("upload cleaner removed %d expired files", n)
				}
			}
		}
	}()
}

// CleanExpiredUploads deletes one batch of expired uploads and returns how many rows were removed.
func CleanExpiredUploads(ctx context.Context, db *gorm.DB, store ObjectRemover, now time.Time) int {
	var items []models.UploadedFile
	if err := db.WithContext(ctx).Where("expire_at <= ?", now).Limit(100).Find(&items).Error; err != nil {
		Sugar.Warnf("upload cleaner query failed: %v", err)
		return 0
	}
	removed := 0
	for _, it := range items {
		if store != nil && it.Path != "" {
			if err := store.Delete(ctx, it.Path); err != nil {
				Sugar.Warnf("upload cleaner delete object %s failed: %v", it.Path, err)
			}
		}
		// Row goes regardless of the object outcome
		if err := db.WithContext(ctx).Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			Sugar.Warnf("upload cleaner delete row failed: %v", err)
			continue
		}
		removed++
	}
	return removed
}
