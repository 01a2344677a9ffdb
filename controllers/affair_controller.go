package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// AffairController handles community events.
type AffairController struct {
	svc *services.Service
}

// NewAffairController creates an AffairController.
func NewAffairController(svc *services.Service) *AffairController {
	return &AffairController{svc: svc}
}

type affairRequest struct {
	Title       string `json:"title" binding:"required,notblank,max=255"`
	Description string `json:"description" binding:"required,notblank"`
	CategoryID  *uint  `json:"category_id"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Time        string `json:"time" binding:"required"` // HH:MM
	Location    string `json:"location" binding:"required,notblank,max=255"`
	Thumbnail   string `json:"thumbnail" binding:"omitempty,max=512"`
}

type affairFields struct {
	date datatypes.Date
	time datatypes.Time
}

func (req *affairRequest) normalize() (affairFields, string) {
	req.Title = utils.SanitizePlain(req.Title)
	req.Description = utils.SanitizePlain(req.Description)
	req.Location = utils.SanitizePlain(req.Location)
	if req.Title == "" || req.Description == "" || req.Location == "" {
		return affairFields{}, "title, description and location are required"
	}
	day, err := parseDate(req.Date)
	if err != nil {
		return affairFields{}, "date must be YYYY-MM-DD"
	}
	h, m, err := parseClock(req.Time)
	if err != nil {
		return affairFields{}, "time must be HH:MM"
	}
	return affairFields{
		date: datatypes.Date(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)),
		time: datatypes.NewTime(h, m, 0, 0),
	}, ""
}

// Index handles GET /affairs?cursor=, upcoming events only.
func (a *AffairController) Index(ctx *gin.Context) {
	page, err := a.svc.AffairFeed(ctx.Request.Context(), ctx.Query("cursor"), pagePath(ctx))
	if err != nil {
		respondError(ctx, err, 41, "failed to load affairs")
		return
	}
	utils.Success(ctx, page)
}

func (a *AffairController) load(ctx *gin.Context) (*models.Affair, bool) {
	var affair models.Affair
	err := a.svc.DB().WithContext(ctx.Request.Context()).
		Preload("User").Preload("Category").
		Where("slug = ?", ctx.Param("slug")).First(&affair).Error
	if err != nil {
		respondError(ctx, err, 42, "affair")
		return nil, false
	}
	affair.ThumbnailURL = a.svc.Resolve(affair.Thumbnail)
	return &affair, true
}

// Show handles GET /affairs/:slug.
func (a *AffairController) Show(ctx *gin.Context) {
	affair, ok := a.load(ctx)
	if !ok {
		return
	}
	comments, err := loadComments(ctx, a.svc.DB(), models.CommentableAffair, affair.ID)
	if err != nil {
		respondError(ctx, err, 43, "failed to load comments")
		return
	}
	affair.CommentsCount = int64(len(comments))
	utils.Success(ctx, gin.H{"affair": affair, "comments": comments})
}

// Create handles POST /affairs.
func (a *AffairController) Create(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req affairRequest
	if !bindJSON(ctx, &req, 40041) {
		return
	}
	fields, msg := req.normalize()
	if msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40042, msg)
		return
	}
	db := a.svc.DB().WithContext(ctx.Request.Context())
	if exists, err := categoryExists(db, &models.AffairCategory{}, req.CategoryID); err != nil {
		respondError(ctx, err, 44, "failed to check category")
		return
	} else if !exists {
		utils.Error(ctx, http.StatusBadRequest, 40043, "category not found")
		return
	}
	slugValue, err := services.UniqueSlug(ctx.Request.Context(), a.svc.DB(), &models.Affair{}, req.Title, 0)
	if err != nil {
		respondError(ctx, err, 44, "failed to create affair")
		return
	}
	affair := models.Affair{
		UserID:           uid,
		AffairCategoryID: req.CategoryID,
		Title:            req.Title,
		Slug:             slugValue,
		Description:      req.Description,
		Date:             fields.date,
		Time:             fields.time,
		Location:         req.Location,
		Thumbnail:        req.Thumbnail,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&affair).Error; err != nil {
			return err
		}
		return claimUploads(tx, uid, nil, req.Thumbnail)
	})
	if err != nil {
		respondError(ctx, err, 44, "failed to create affair")
		return
	}
	afterPostWrite()
	affair.ThumbnailURL = a.svc.Resolve(affair.Thumbnail)
	utils.Created(ctx, affair)
}

// Update handles PUT /affairs/:slug. Owner only.
func (a *AffairController) Update(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	affair, ok := a.load(ctx)
	if !ok {
		return
	}
	if affair.UserID != uid {
		utils.Error(ctx, http.StatusForbidden, 40341, "only the owner can edit this affair")
		return
	}
	var req affairRequest
	if !bindJSON(ctx, &req, 40041) {
		return
	}
	fields, msg := req.normalize()
	if msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40042, msg)
		return
	}
	db := a.svc.DB().WithContext(ctx.Request.Context())
	if exists, err := categoryExists(db, &models.AffairCategory{}, req.CategoryID); err != nil {
		respondError(ctx, err, 45, "failed to check category")
		return
	} else if !exists {
		utils.Error(ctx, http.StatusBadRequest, 40043, "category not found")
		return
	}
	updates := map[string]interface{}{
		"affair_category_id": req.CategoryID,
		"title":              req.Title,
		"description":        req.Description,
		"date":               fields.date,
		"time":               fields.time,
		"location":           req.Location,
		"thumbnail":          req.Thumbnail,
	}
	if req.Title != affair.Title {
		slugValue, err := services.UniqueSlug(ctx.Request.Context(), a.svc.DB(), &models.Affair{}, req.Title, affair.ID)
		if err != nil {
			respondError(ctx, err, 45, "failed to update affair")
			return
		}
		updates["slug"] = slugValue
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Affair{}).Where("id = ?", affair.ID).Updates(updates).Error; err != nil {
			return err
		}
		return claimUploads(tx, uid, []string{affair.Thumbnail}, req.Thumbnail)
	})
	if err != nil {
		respondError(ctx, err, 45, "failed to update affair")
		return
	}
	afterPostWrite()
	var updated models.Affair
	if err := db.Preload("User").Preload("Category").First(&updated, affair.ID).Error; err != nil {
		respondError(ctx, err, 45, "affair")
		return
	}
	updated.ThumbnailURL = a.svc.Resolve(updated.Thumbnail)
	utils.Success(ctx, updated)
}

// Delete handles DELETE /affairs/:slug.
func (a *AffairController) Delete(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	affair, ok := a.load(ctx)
	if !ok {
		return
	}
	if affair.UserID != uid && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40342, "only the owner can delete this affair")
		return
	}
	err := a.svc.DB().WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("commentable_type = ? AND commentable_id = ?", models.CommentableAffair, affair.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Affair{}, affair.ID).Error
	})
	if err != nil {
		respondError(ctx, err, 46, "failed to delete affair")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"deleted": true})
}
