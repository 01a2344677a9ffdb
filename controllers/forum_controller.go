package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// ForumController handles forum threads and their likes.
type ForumController struct {
	svc *services.Service
}

// NewForumController creates a ForumController.
func NewForumController(svc *services.Service) *ForumController {
	return &ForumController{svc: svc}
}

type forumRequest struct {
	Title       string `json:"title" binding:"required,notblank,max=255"`
	Description string `json:"description" binding:"required,notblank"`
	CategoryID  *uint  `json:"category_id"`
	Thumbnail   string `json:"thumbnail" binding:"required,notblank,max=512"`
}

// Index handles GET /forums?cursor=.
func (f *ForumController) Index(ctx *gin.Context) {
	page, err := f.svc.ForumFeed(ctx.Request.Context(), ctx.Query("cursor"), pagePath(ctx))
	if err != nil {
		respondError(ctx, err, 31, "failed to load forums")
		return
	}
	utils.Success(ctx, page)
}

func (f *ForumController) load(ctx *gin.Context) (*models.Forum, bool) {
	var forum models.Forum
	err := f.svc.DB().WithContext(ctx.Request.Context()).
		Preload("User").Preload("Category").
		Where("slug = ?", ctx.Param("slug")).First(&forum).Error
	if err != nil {
		respondError(ctx, err, 32, "forum")
		return nil, false
	}
	forum.ThumbnailURL = f.svc.Resolve(forum.Thumbnail)
	return &forum, true
}

func (f *ForumController) likesCount(ctx *gin.Context, forumID uint) (int64, error) {
	var n int64
	err := f.svc.DB().WithContext(ctx.Request.Context()).Model(&models.ForumLike{}).
		Where("forum_id = ?", forumID).Count(&n).Error
	return n, err
}

// Show handles GET /forums/:slug.
func (f *ForumController) Show(ctx *gin.Context) {
	forum, ok := f.load(ctx)
	if !ok {
		return
	}
	comments, err := loadComments(ctx, f.svc.DB(), models.CommentableForum, forum.ID)
	if err != nil {
		respondError(ctx, err, 33, "failed to load comments")
		return
	}
	forum.CommentsCount = int64(len(comments))
	if forum.LikedByUsersCount, err = f.likesCount(ctx, forum.ID); err != nil {
		respondError(ctx, err, 33, "failed to load likes")
		return
	}
	liked := false
	if uid, ok := getUserID(ctx); ok {
		if liked, err = f.svc.HasLikedForum(ctx.Request.Context(), forum.ID, uid); err != nil {
			respondError(ctx, err, 33, "failed to load like state")
			return
		}
	}
	utils.Success(ctx, gin.H{"forum": forum, "comments": comments, "liked": liked})
}

func (req *forumRequest) normalize() bool {
	req.Title = utils.SanitizePlain(req.Title)
	req.Description = utils.SanitizeRich(req.Description)
	return req.Title != "" && req.Description != ""
}

// Create handles POST /forums.
func (f *ForumController) Create(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req forumRequest
	if !bindJSON(ctx, &req, 40031) {
		return
	}
	if !req.normalize() {
		utils.Error(ctx, http.StatusBadRequest, 40032, "title and description are required")
		return
	}
	db := f.svc.DB().WithContext(ctx.Request.Context())
	if exists, err := categoryExists(db, &models.ForumCategory{}, req.CategoryID); err != nil {
		respondError(ctx, err, 34, "failed to check category")
		return
	} else if !exists {
		utils.Error(ctx, http.StatusBadRequest, 40033, "category not found")
		return
	}
	slugValue, err := services.UniqueSlug(ctx.Request.Context(), f.svc.DB(), &models.Forum{}, req.Title, 0)
	if err != nil {
		respondError(ctx, err, 34, "failed to create forum")
		return
	}
	forum := models.Forum{
		UserID:          uid,
		ForumCategoryID: req.CategoryID,
		Title:           req.Title,
		Slug:            slugValue,
		Description:     req.Description,
		Thumbnail:       req.Thumbnail,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&forum).Error; err != nil {
			return err
		}
		return claimUploads(tx, uid, nil, req.Thumbnail)
	})
	if err != nil {
		respondError(ctx, err, 34, "failed to create forum")
		return
	}
	afterPostWrite()
	forum.ThumbnailURL = f.svc.Resolve(forum.Thumbnail)
	utils.Created(ctx, forum)
}

// Update handles PUT /forums/:slug. Owner only.
func (f *ForumController) Update(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	forum, ok := f.load(ctx)
	if !ok {
		return
	}
	if forum.UserID != uid {
		utils.Error(ctx, http.StatusForbidden, 40331, "only the owner can edit this forum")
		return
	}
	var req forumRequest
	if !bindJSON(ctx, &req, 40031) {
		return
	}
	if !req.normalize() {
		utils.Error(ctx, http.StatusBadRequest, 40032, "title and description are required")
		return
	}
	db := f.svc.DB().WithContext(ctx.Request.Context())
	if exists, err := categoryExists(db, &models.ForumCategory{}, req.CategoryID); err != nil {
		respondError(ctx, err, 35, "failed to check category")
		return
	} else if !exists {
		utils.Error(ctx, http.StatusBadRequest, 40033, "category not found")
		return
	}
	updates := map[string]interface{}{
		"forum_category_id": req.CategoryID,
		"title":             req.Title,
		"description":       req.Description,
		"thumbnail":         req.Thumbnail,
	}
	if req.Title != forum.Title {
		slugValue, err := services.UniqueSlug(ctx.Request.Context(), f.svc.DB(), &models.Forum{}, req.Title, forum.ID)
		if err != nil {
			respondError(ctx, err, 35, "failed to update forum")
			return
		}
		updates["slug"] = slugValue
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Forum{}).Where("id = ?", forum.ID).Updates(updates).Error; err != nil {
			return err
		}
		return claimUploads(tx, uid, []string{forum.Thumbnail}, req.Thumbnail)
	})
	if err != nil {
		respondError(ctx, err, 35, "failed to update forum")
		return
	}
	afterPostWrite()
	var updated models.Forum
	if err := db.Preload("User").Preload("Category").First(&updated, forum.ID).Error; err != nil {
		respondError(ctx, err, 35, "forum")
		return
	}
	updated.ThumbnailURL = f.svc.Resolve(updated.Thumbnail)
	utils.Success(ctx, updated)
}

// Delete handles DELETE /forums/:slug. Likes and comments go with it.
func (f *ForumController) Delete(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	forum, ok := f.load(ctx)
	if !ok {
		return
	}
	if forum.UserID != uid && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40332, "only the owner can delete this forum")
		return
	}
	err := f.svc.DB().WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("forum_id = ?", forum.ID).Delete(&models.ForumLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("likeable_type = ? AND likeable_id = ?", services.LikeableForum, forum.ID).Delete(&models.LikedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("commentable_type = ? AND commentable_id = ?", models.CommentableForum, forum.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Forum{}, forum.ID).Error
	})
	if err != nil {
		respondError(ctx, err, 36, "failed to delete forum")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"deleted": true})
}

// ToggleLike handles POST /forums/:slug/like.
func (f *ForumController) ToggleLike(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	forum, ok := f.load(ctx)
	if !ok {
		return
	}
	liked, count, err := f.svc.ToggleForumLike(ctx.Request.Context(), forum.ID, uid)
	if err != nil {
		respondError(ctx, err, 37, "failed to toggle like")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"liked": liked, "liked_by_users_count": count})
}
