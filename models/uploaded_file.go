package models

import "time"

// UploadedFile records an upload that has not been attached to a post yet.
// Rows are removed when a post claims the path, or by the cleaner after ExpireAt.
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Path      string    `gorm:"size:512;uniqueIndex;not null" json:"path"` // storage key, e.g. donations/2026/10/uuid.jpg
	URL       string    `gorm:"size:1024;not null" json:"url"`
	ExpireAt  time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
