package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// UniqueSlug derives a slug from title that no other row of model uses,
// soft-deleted rows included. exceptID skips the row being updated.
func UniqueSlug(ctx context.Context, db *gorm.DB, model interface{}, title string, exceptID uint) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}
	if len(base) > 200 {
		base = base[:200]
	}
	candidate := base
	for i := 2; i < 1000; i++ {
		var n int64
		q := db.WithContext(ctx).Unscoped().Model(model).Where("slug = ?", candidate)
		if exceptID != 0 {
			q = q.Where("id <> ?", exceptID)
		}
		if err := q.Count(&n).Error; err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
