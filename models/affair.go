package models

import (
	"time"

	"gorm.io/datatypes"
)

// Affair is a community event held on a given date, time and location.
type Affair struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"index;not null" json:"user_id"`
	AffairCategoryID *uint           `gorm:"index" json:"affair_category_id"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Slug             string          `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	Date             datatypes.Date  `gorm:"index;not null" json:"date"`
	Time             datatypes.Time  `json:"time"`
	Location         string          `gorm:"size:255" json:"location"`
	Thumbnail        string          `gorm:"size:512" json:"thumbnail"`
	ThumbnailURL     string          `gorm:"-" json:"thumbnail_url"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	User             *User           `gorm:"foreignKey:UserID" json:"user"`
	Category         *AffairCategory `gorm:"foreignKey:AffairCategoryID" json:"category"`
	CommentsCount    int64           `gorm:"-" json:"comments_count"`
}

// CursorKey returns the keyset position of the row in a recency-ordered feed.
func (a Affair) CursorKey() (time.Time, uint) { return a.CreatedAt, a.ID }
