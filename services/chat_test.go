package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedulirasa/backend/models"
)

func TestChatFlow(t *testing.T) {
	svc, db := newTestService(t)
	me := mkUser(t, db, "me")
	ana := mkUser(t, db, "ana")
	budi := mkUser(t, db, "budi")
	ctx := context.Background()

	msgs := []models.ChatMessage{
		{SenderID: ana.ID, ReceiverID: me.ID, Message: "halo", CreatedAt: ago(3 * time.Hour)},
		{SenderID: me.ID, ReceiverID: ana.ID, Message: "hai juga", CreatedAt: ago(2 * time.Hour)},
		{SenderID: ana.ID, ReceiverID: me.ID, Message: "masih ada?", CreatedAt: ago(90 * time.Minute)},
		{SenderID: budi.ID, ReceiverID: me.ID, Message: "permisi", CreatedAt: ago(time.Hour)},
	}
	for i := range msgs {
		require.NoError(t, db.Create(&msgs[i]).Error)
	}

	unread, err := svc.UnreadCount(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	convs, err := svc.Conversations(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "budi", convs[0].User.Name)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
	assert.Equal(t, "ana", convs[1].User.Name)
	assert.Equal(t, "masih ada?", convs[1].LastMessage.Message)
	assert.Equal(t, int64(2), convs[1].UnreadCount)

	thread, err := svc.Messages(ctx, me.ID, ana.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "halo", thread[0].Message)
	assert.Equal(t, "masih ada?", thread[2].Message)

	unread, err = svc.UnreadCount(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread, "only budi's message stays unread")

	sent, err := svc.Send(ctx, me.ID, budi.ID, "  iya  ")
	require.NoError(t, err)
	assert.Equal(t, "iya", sent.Message)
	assert.False(t, sent.IsRead)

	_, err = svc.Send(ctx, me.ID, me.ID, "self")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Send(ctx, me.ID, budi.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Send(ctx, me.ID, 9999, "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}
