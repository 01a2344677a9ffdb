package models

import (
	"time"

	"gorm.io/gorm"
)

// Donation type discriminator values. Requests live in the donations table.
const (
	DonationTypeDonation = "donation"
	DonationTypeRequest  = "request"
)

// Donation is either an offer of goods (type "donation") or a call for help (type "request").
type Donation struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"index;not null" json:"user_id"`
	DonationCategoryID *uint             `gorm:"index" json:"donation_category_id"`
	Type               string            `gorm:"size:16;index;not null;default:'donation'" json:"type"`
	Title              string            `gorm:"size:255;not null" json:"title"`
	Slug               string            `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description        string            `gorm:"type:text;not null" json:"description"`
	Status             string            `gorm:"size:32;not null;default:'available'" json:"status"`
	Urgency            *string           `gorm:"size:16" json:"urgency"`
	PhoneNumber        string            `gorm:"size:32" json:"phone_number"`
	Address            string            `gorm:"size:255" json:"address"`
	IsPopular          bool              `gorm:"not null;default:false" json:"is_popular"`
	CreatedAt          time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"deleted_at"`
	User               *User             `gorm:"foreignKey:UserID" json:"user"`
	Category           *DonationCategory `gorm:"foreignKey:DonationCategoryID" json:"category"`
	Images             []DonationImage   `gorm:"foreignKey:DonationID" json:"images"`
	CommentsCount      int64             `gorm:"-" json:"comments_count"`
}

// CursorKey returns the keyset position of the row in a recency-ordered feed.
func (d Donation) CursorKey() (time.Time, uint) { return d.CreatedAt, d.ID }

// DonationImage is one attached picture, ordered oldest-first.
type DonationImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DonationID uint      `gorm:"index;not null" json:"donation_id"`
	Image      string    `gorm:"size:512;not null" json:"image"`
	URL        string    `gorm:"-" json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
