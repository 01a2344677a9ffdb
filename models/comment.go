package models

import "time"

// Commentable type values. Requests are donations and share the "donation" value.
const (
	CommentableDonation = "donation"
	CommentableForum    = "forum"
	CommentableAffair   = "affair"
)

// Comment is a reply attached to exactly one post of any type.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	CommentableType string    `gorm:"size:32;not null;index:idx_commentable" json:"commentable_type"`
	CommentableID   uint      `gorm:"not null;index:idx_commentable" json:"commentable_id"`
	Body            string    `gorm:"type:text;not null" json:"body"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	User            *User     `gorm:"foreignKey:UserID" json:"user"`
}
