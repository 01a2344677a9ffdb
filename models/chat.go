package models

import "time"

// ChatMessage is one direct message between two users.
// Conversations are not stored; they are derived from sender/receiver pairs.
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID uint      `gorm:"index;not null" json:"receiver_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	IsRead     bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Sender     *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver   *User     `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}
