package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// CommentController handles comments on any post type.
type CommentController struct {
	svc *services.Service
}

// NewCommentController creates a CommentController.
func NewCommentController(svc *services.Service) *CommentController {
	return &CommentController{svc: svc}
}

type commentRequest struct {
	Body string `json:"body" binding:"required,notblank,max=5000"`
}

// resolvePost maps a post type and slug onto the stored commentable pair.
// Requests are donations and share the donation commentable type.
func resolvePost(ctx *gin.Context, db *gorm.DB, typ, slugValue string) (string, uint, error) {
	kind, ok := services.ParseKind(typ)
	if !ok {
		return "", 0, services.ErrInvalid
	}
	var (
		model           interface{}
		commentableType string
	)
	switch kind {
	case services.KindDonation, services.KindRequest:
		model, commentableType = &models.Donation{}, models.CommentableDonation
	case services.KindForum:
		model, commentableType = &models.Forum{}, models.CommentableForum
	case services.KindAffair:
		model, commentableType = &models.Affair{}, models.CommentableAffair
	}
	var ids []uint
	err := db.WithContext(ctx.Request.Context()).Model(model).
		Where("slug = ?", slugValue).Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return "", 0, err
	}
	if len(ids) == 0 {
		return "", 0, services.ErrNotFound
	}
	return commentableType, ids[0], nil
}

func loadComments(ctx *gin.Context, db *gorm.DB, commentableType string, id uint) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := db.WithContext(ctx.Request.Context()).Preload("User").
		Where("commentable_type = ? AND commentable_id = ?", commentableType, id).
		Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

// Index handles GET /comments/:type/:slug, oldest first.
func (c *CommentController) Index(ctx *gin.Context) {
	typ, id, err := resolvePost(ctx, c.svc.DB(), ctx.Param("type"), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, 51, "post")
		return
	}
	comments, err := loadComments(ctx, c.svc.DB(), typ, id)
	if err != nil {
		respondError(ctx, err, 51, "failed to load comments")
		return
	}
	utils.Success(ctx, comments)
}

// Create handles POST /comments/:type/:slug.
func (c *CommentController) Create(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(ctx, &req, 40051) {
		return
	}
	body := utils.SanitizeRich(req.Body)
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40052, "body is required")
		return
	}
	typ, id, err := resolvePost(ctx, c.svc.DB(), ctx.Param("type"), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, 52, "post")
		return
	}
	comment := models.Comment{UserID: uid, CommentableType: typ, CommentableID: id, Body: body}
	db := c.svc.DB().WithContext(ctx.Request.Context())
	if err := db.Create(&comment).Error; err != nil {
		respondError(ctx, err, 52, "failed to create comment")
		return
	}
	afterPostWrite()
	if err := db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		respondError(ctx, err, 52, "comment")
		return
	}
	utils.Created(ctx, comment)
}

// Delete handles DELETE /comments/:id. Only the author may delete.
func (c *CommentController) Delete(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	db := c.svc.DB().WithContext(ctx.Request.Context())
	var comment models.Comment
	if err := db.First(&comment, id).Error; err != nil {
		respondError(ctx, err, 53, "comment")
		return
	}
	if comment.UserID != uid {
		utils.Error(ctx, http.StatusForbidden, 40351, "only the author can delete this comment")
		return
	}
	if err := db.Delete(&models.Comment{}, comment.ID).Error; err != nil {
		respondError(ctx, err, 53, "failed to delete comment")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"deleted": true})
}
