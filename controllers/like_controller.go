package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// LikeController handles the generic liked-posts list.
type LikeController struct {
	svc *services.Service
}

// NewLikeController creates a LikeController.
func NewLikeController(svc *services.Service) *LikeController {
	return &LikeController{svc: svc}
}

// Toggle handles POST /likes/:type/:slug for donations, requests and forums.
func (l *LikeController) Toggle(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	typ, id, err := resolvePost(ctx, l.svc.DB(), ctx.Param("type"), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, 71, "post")
		return
	}
	// comment and like types agree for donations and forums; affairs cannot be liked
	if typ != services.LikeableDonation && typ != services.LikeableForum {
		utils.Error(ctx, http.StatusBadRequest, 40071, "this post type cannot be liked")
		return
	}
	liked, err := l.svc.TogglePostLike(ctx.Request.Context(), uid, typ, id)
	if err != nil {
		respondError(ctx, err, 71, "failed to toggle like")
		return
	}
	utils.Success(ctx, gin.H{"liked": liked})
}

// Liked handles GET /users/:id/liked.
func (l *LikeController) Liked(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	posts, err := l.svc.LikedPosts(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 72, "failed to load liked posts")
		return
	}
	utils.Success(ctx, posts)
}
