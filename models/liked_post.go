package models

import "time"

// LikedPost records a user's like on a donation, request or forum.
type LikedPost struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_liked_post" json:"user_id"`
	LikeableType string    `gorm:"size:32;not null;uniqueIndex:idx_liked_post" json:"likeable_type"`
	LikeableID   uint      `gorm:"not null;uniqueIndex:idx_liked_post" json:"likeable_id"`
	CreatedAt    time.Time `json:"created_at"`
}
