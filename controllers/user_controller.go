package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// UserController serves public profiles.
type UserController struct {
	svc *services.Service
}

// NewUserController creates a UserController.
func NewUserController(svc *services.Service) *UserController {
	return &UserController{svc: svc}
}

type profileResponse struct {
	ID         uint                `json:"id"`
	Name       string              `json:"name"`
	Image      *string             `json:"image"`
	Address    *string             `json:"address"`
	JoinedAt   string              `json:"joined_at"`
	PostCounts services.PostCounts `json:"post_counts"`
}

// Show handles GET /users/:id.
func (u *UserController) Show(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var user models.User
	if err := u.svc.DB().WithContext(ctx.Request.Context()).First(&user, id).Error; err != nil {
		respondError(ctx, err, 81, "user")
		return
	}
	counts, err := u.svc.CountByUser(ctx.Request.Context(), user.ID)
	if err != nil {
		respondError(ctx, err, 81, "failed to count posts")
		return
	}
	utils.Success(ctx, profileResponse{
		ID:         user.ID,
		Name:       user.Name,
		Image:      user.Image,
		Address:    user.Address,
		JoinedAt:   user.CreatedAt.UTC().Format(services.TimestampLayout),
		PostCounts: *counts,
	})
}

// Posts handles GET /users/:id/posts?type=.
func (u *UserController) Posts(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	posts, err := u.svc.PostsByUser(ctx.Request.Context(), id, ctx.DefaultQuery("type", services.KindAll))
	if err != nil {
		respondError(ctx, err, 82, "failed to load posts")
		return
	}
	utils.Success(ctx, posts)
}
