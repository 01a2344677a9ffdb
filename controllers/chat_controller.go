package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// EventChatMessage is pushed to the receiver of a new message.
const EventChatMessage = "chat.message"

// ChatController handles direct messages between users.
type ChatController struct {
	svc *services.Service
	hub *ChatHub
}

// NewChatController creates a ChatController. hub may be nil, which disables pushes.
func NewChatController(svc *services.Service, hub *ChatHub) *ChatController {
	return &ChatController{svc: svc, hub: hub}
}

type chatRequest struct {
	Message string `json:"message" binding:"required,notblank"`
}

// Conversations handles GET /chats.
func (c *ChatController) Conversations(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	list, err := c.svc.Conversations(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err, 101, "failed to load conversations")
		return
	}
	utils.Success(ctx, list)
}

// Messages handles GET /chats/:userId and marks received messages read.
func (c *ChatController) Messages(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	other, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}
	msgs, err := c.svc.Messages(ctx.Request.Context(), uid, other)
	if err != nil {
		respondError(ctx, err, 102, "failed to load messages")
		return
	}
	utils.Success(ctx, msgs)
}

// Send handles POST /chats/:userId.
func (c *ChatController) Send(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	other, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}
	var req chatRequest
	if !bindJSON(ctx, &req, 40101) {
		return
	}
	if len(req.Message) > services.MaxChatMessageLength {
		utils.Error(ctx, http.StatusBadRequest, 40102, "message is too long")
		return
	}
	msg, err := c.svc.Send(ctx.Request.Context(), uid, other, utils.SanitizePlain(req.Message))
	if err != nil {
		respondError(ctx, err, 103, "failed to send message")
		return
	}
	c.hub.Push(other, EventChatMessage, msg)
	utils.Created(ctx, msg)
}

// Unread handles GET /chats/unread.
func (c *ChatController) Unread(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	n, err := c.svc.UnreadCount(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err, 104, "failed to count unread messages")
		return
	}
	utils.Success(ctx, gin.H{"unread": n})
}
