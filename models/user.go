package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a community member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:100;not null" json:"name"`
	Email           string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	PhoneNumber     *string        `gorm:"size:32" json:"phone_number"`
	Address         *string        `gorm:"size:255" json:"address"`
	Image           *string        `gorm:"size:512" json:"image"`
	Provider        string         `gorm:"size:32;index:idx_users_provider" json:"provider,omitempty"`
	ProviderID      string         `gorm:"size:255;index:idx_users_provider" json:"-"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Donations       []Donation     `json:"-"`
	Forums          []Forum        `json:"-"`
	Affairs         []Affair       `json:"-"`
	Comments        []Comment      `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	return nil
}
