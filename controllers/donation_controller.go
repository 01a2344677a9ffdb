package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// DonationController handles donations and requests. Both live in one table.
type DonationController struct {
	svc *services.Service
}

// NewDonationController creates a DonationController.
func NewDonationController(svc *services.Service) *DonationController {
	return &DonationController{svc: svc}
}

type donationRequest struct {
	Type        string   `json:"type" binding:"required,posttype"`
	Title       string   `json:"title" binding:"required,notblank,max=255"`
	Description string   `json:"description" binding:"required,notblank"`
	CategoryID  *uint    `json:"category_id"`
	Urgency     *string  `json:"urgency" binding:"omitempty,urgency"`
	Status      string   `json:"status" binding:"omitempty,max=32"`
	PhoneNumber string   `json:"phone_number" binding:"omitempty,max=32"`
	Address     string   `json:"address" binding:"omitempty,max=255"`
	Images      []string `json:"images" binding:"omitempty,max=10,dive,notblank"`
}

// Index handles GET /donations?cursor=, donations and requests together.
func (d *DonationController) Index(ctx *gin.Context) {
	page, err := d.svc.DonationFeed(ctx.Request.Context(), ctx.Query("cursor"), pagePath(ctx))
	if err != nil {
		respondError(ctx, err, 2, "failed to load donations")
		return
	}
	utils.Success(ctx, page)
}

// Requests handles GET /requests?cursor=.
func (d *DonationController) Requests(ctx *gin.Context) {
	page, err := d.svc.RequestFeed(ctx.Request.Context(), ctx.Query("cursor"), pagePath(ctx))
	if err != nil {
		respondError(ctx, err, 3, "failed to load requests")
		return
	}
	utils.Success(ctx, page)
}

func (d *DonationController) load(ctx *gin.Context, db *gorm.DB) (*models.Donation, bool) {
	var donation models.Donation
	err := db.WithContext(ctx.Request.Context()).
		Preload("User").Preload("Category").Preload("Images", services.OrderImages).
		Where("slug = ?", ctx.Param("slug")).First(&donation).Error
	if err != nil {
		respondError(ctx, err, 4, "donation")
		return nil, false
	}
	d.svc.ResolveDonation(&donation)
	return &donation, true
}

// Show handles GET /donations/:slug with images, comments and the viewer's like state.
func (d *DonationController) Show(ctx *gin.Context) {
	donation, ok := d.load(ctx, d.svc.DB())
	if !ok {
		return
	}
	comments, err := loadComments(ctx, d.svc.DB(), models.CommentableDonation, donation.ID)
	if err != nil {
		respondError(ctx, err, 5, "failed to load comments")
		return
	}
	donation.CommentsCount = int64(len(comments))
	liked := false
	if uid, ok := getUserID(ctx); ok {
		if liked, err = d.svc.HasLikedPost(ctx.Request.Context(), uid, services.LikeableDonation, donation.ID); err != nil {
			respondError(ctx, err, 5, "failed to load like state")
			return
		}
	}
	utils.Success(ctx, gin.H{"donation": donation, "comments": comments, "liked": liked})
}

func (req *donationRequest) normalize() error {
	req.Title = utils.SanitizePlain(req.Title)
	req.Description = utils.SanitizePlain(req.Description)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Address = utils.SanitizePlain(req.Address)
	if req.Title == "" || req.Description == "" {
		return errors.New("title and description are required")
	}
	if req.Type == models.DonationTypeRequest {
		if req.Urgency == nil || *req.Urgency == "" {
			return errors.New("urgency is required for requests")
		}
	} else {
		req.Urgency = nil
	}
	return nil
}

// Create handles POST /donations.
func (d *DonationController) Create(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req donationRequest
	if !bindJSON(ctx, &req, 40021) {
		return
	}
	if err := req.normalize(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}
	db := d.svc.DB().WithContext(ctx.Request.Context())
	if exists, err := categoryExists(db, &models.DonationCategory{}, req.CategoryID); err != nil {
		respondError(ctx, err, 21, "failed to check category")
		return
	} else if !exists {
		utils.Error(ctx, http.StatusBadRequest, 40023, "category not found")
		return
	}
	slugValue, err := services.UniqueSlug(ctx.Request.Context(), d.svc.DB(), &models.Donation{}, req.Title, 0)
	if err != nil {
		respondError(ctx, err, 21, "failed to create donation")
		return
	}
	donation := models.Donation{
		UserID:             uid,
		DonationCategoryID: req.CategoryID,
		Type:               req.Type,
		Title:              req.Title,
		Slug:               slugValue,
		Description:        req.Description,
		Status:             defaultStatus(req.Status),
		Urgency:            req.Urgency,
		PhoneNumber:        req.PhoneNumber,
		Address:            req.Address,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&donation).Error; err != nil {
			return err
		}
		return attachImages(tx, uid, donation.ID, nil, req.Images)
	})
	if err != nil {
		respondError(ctx, err, 21, "failed to create donation")
		return
	}
	afterPostWrite()
	created, ok := d.reload(ctx, donation.ID)
	if !ok {
		return
	}
	utils.Created(ctx, created)
}

func (d *DonationController) reload(ctx *gin.Context, id uint) (*models.Donation, bool) {
	var donation models.Donation
	err := d.svc.DB().WithContext(ctx.Request.Context()).
		Preload("User").Preload("Category").Preload("Images", services.OrderImages).
		First(&donation, id).Error
	if err != nil {
		respondError(ctx, err, 24, "donation")
		return nil, false
	}
	d.svc.ResolveDonation(&donation)
	return &donation, true
}

// Update handles PUT /donations/:slug. Only the owner may edit; images are replaced when given.
func (d *DonationController) Update(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	donation, ok := d.load(ctx, d.svc.DB())
	if !ok {
		return
	}
	if donation.UserID != uid {
		utils.Error(ctx, http.StatusForbidden, 40321, "only the owner can edit this post")
		return
	}
	var req donationRequest
	if !bindJSON(ctx, &req, 40021) {
		return
	}
	if err := req.normalize(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}
	db := d.svc.DB().WithContext(ctx.Request.Context())
	if exists, err := categoryExists(db, &models.DonationCategory{}, req.CategoryID); err != nil {
		respondError(ctx, err, 21, "failed to check category")
		return
	} else if !exists {
		utils.Error(ctx, http.StatusBadRequest, 40023, "category not found")
		return
	}
	updates := map[string]interface{}{
		"donation_category_id": req.CategoryID,
		"type":                 req.Type,
		"title":                req.Title,
		"description":          req.Description,
		"urgency":              req.Urgency,
		"phone_number":         req.PhoneNumber,
		"address":              req.Address,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.Title != donation.Title {
		slugValue, err := services.UniqueSlug(ctx.Request.Context(), d.svc.DB(), &models.Donation{}, req.Title, donation.ID)
		if err != nil {
			respondError(ctx, err, 25, "failed to update donation")
			return
		}
		updates["slug"] = slugValue
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Donation{}).Where("id = ?", donation.ID).Updates(updates).Error; err != nil {
			return err
		}
		if req.Images == nil {
			return nil
		}
		var current []string
		if err := tx.Model(&models.DonationImage{}).Where("donation_id = ?", donation.ID).Pluck("image", &current).Error; err != nil {
			return err
		}
		if err := tx.Where("donation_id = ?", donation.ID).Delete(&models.DonationImage{}).Error; err != nil {
			return err
		}
		return attachImages(tx, uid, donation.ID, current, req.Images)
	})
	if err != nil {
		respondError(ctx, err, 25, "failed to update donation")
		return
	}
	afterPostWrite()
	updated, ok := d.reload(ctx, donation.ID)
	if !ok {
		return
	}
	utils.Success(ctx, updated)
}

// Delete handles DELETE /donations/:slug as a soft delete by the owner.
func (d *DonationController) Delete(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	donation, ok := d.load(ctx, d.svc.DB())
	if !ok {
		return
	}
	if donation.UserID != uid && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40322, "only the owner can delete this post")
		return
	}
	if err := d.svc.DB().WithContext(ctx.Request.Context()).Delete(&models.Donation{}, donation.ID).Error; err != nil {
		respondError(ctx, err, 26, "failed to delete donation")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"deleted": true})
}

func defaultStatus(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return "available"
}

// attachImages stores paths as the donation's images in the given order.
// current lists images the donation already had; anything else must be a pending upload of userID.
func attachImages(tx *gorm.DB, userID, donationID uint, current, paths []string) error {
	images := make([]models.DonationImage, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			images = append(images, models.DonationImage{DonationID: donationID, Image: p})
		}
	}
	if len(images) == 0 {
		return nil
	}
	if err := claimUploads(tx, userID, current, paths...); err != nil {
		return err
	}
	// one insert per image so created_at keeps the given order
	for i := range images {
		if err := tx.Create(&images[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
