package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pedulirasa/backend/models"
)

// MaxChatMessageLength bounds a single message body, in bytes.
const MaxChatMessageLength = 4000

// Conversation is derived from messages: one entry per other participant.
type Conversation struct {
	User        UserSummary        `json:"user"`
	LastMessage models.ChatMessage `json:"last_message"`
	UnreadCount int64              `json:"unread_count"`
}

// Conversations groups the user's messages by the other participant, most recent first.
func (s *Service) Conversations(ctx context.Context, userID uint) ([]Conversation, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	byUser := map[uint]int{}
	out := make([]Conversation, 0)
	others := []uint{}
	for _, m := range msgs {
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}
		idx, seen := byUser[other]
		if !seen {
			idx = len(out)
			byUser[other] = idx
			others = append(others, other)
			out = append(out, Conversation{LastMessage: m})
		}
		if m.ReceiverID == userID && !m.IsRead {
			out[idx].UnreadCount++
		}
	}
	if len(others) == 0 {
		return out, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", others).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load chat users: %w", err)
	}
	for i := range users {
		if idx, ok := byUser[users[i].ID]; ok {
			out[idx].User = summarizeUser(&users[i])
		}
	}
	return out, nil
}

// Messages returns the thread between userID and otherID oldest first and marks
// the messages userID received in it as read.
func (s *Service) Messages(ctx context.Context, userID, otherID uint) ([]models.ChatMessage, error) {
	if err := s.ensureUser(ctx, otherID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	err := db.Model(&models.ChatMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, userID, false).
		Update("is_read", true).Error
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	msgs := []models.ChatMessage{}
	err = db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, otherID, otherID, userID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return msgs, nil
}

// Send stores a message from userID to otherID. The body must already be sanitized.
func (s *Service) Send(ctx context.Context, userID, otherID uint, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > MaxChatMessageLength {
		return nil, fmt.Errorf("%w: message must be 1-%d bytes", ErrInvalid, MaxChatMessageLength)
	}
	if userID == otherID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalid)
	}
	if err := s.ensureUser(ctx, otherID); err != nil {
		return nil, err
	}
	msg := &models.ChatMessage{SenderID: userID, ReceiverID: otherID, Message: body}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// UnreadCount is the number of unread messages addressed to userID.
func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}

func (s *Service) ensureUser(ctx context.Context, id uint) error {
	var u models.User
	if err := s.db.WithContext(ctx).Select("id").First(&u, id).Error; err != nil {
		return notFound(err, "user")
	}
	return nil
}
