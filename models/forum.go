package models

import "time"

// Forum is a community discussion thread with a rich-text body.
type Forum struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"index;not null" json:"user_id"`
	ForumCategoryID   *uint          `gorm:"index" json:"forum_category_id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Slug              string         `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description       string         `gorm:"type:text;not null" json:"description"`
	Thumbnail         string         `gorm:"size:512;not null" json:"thumbnail"`
	ThumbnailURL      string         `gorm:"-" json:"thumbnail_url"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	User              *User          `gorm:"foreignKey:UserID" json:"user"`
	Category          *ForumCategory `gorm:"foreignKey:ForumCategoryID" json:"category"`
	CommentsCount     int64          `gorm:"-" json:"comments_count"`
	LikedByUsersCount int64          `gorm:"-" json:"liked_by_users_count"`
}

// CursorKey returns the keyset position of the row in a recency-ordered feed.
func (f Forum) CursorKey() (time.Time, uint) { return f.CreatedAt, f.ID }

// ForumLike is the user <-> forum like relation. A second like from the same user removes it.
type ForumLike struct {
	ForumID   uint      `gorm:"primaryKey" json:"forum_id"`
	UserID    uint      `gorm:"primaryKey;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
