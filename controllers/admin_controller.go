package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// AdminController moderates donations, including soft-deleted ones.
type AdminController struct {
	svc *services.Service
}

// NewAdminController creates an AdminController.
func NewAdminController(svc *services.Service) *AdminController {
	return &AdminController{svc: svc}
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

// Donations handles GET /admin/donations?trashed=with|only&page=&page_size=.
func (a *AdminController) Donations(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	q := a.svc.DB().WithContext(ctx.Request.Context()).Model(&models.Donation{})
	switch ctx.Query("trashed") {
	case "with":
		q = q.Unscoped()
	case "only":
		q = q.Unscoped().Where("deleted_at IS NOT NULL")
	}
	if t := ctx.Query("type"); t == models.DonationTypeDonation || t == models.DonationTypeRequest {
		q = q.Where("type = ?", t)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondError(ctx, err, 91, "failed to count donations")
		return
	}
	items := make([]models.Donation, 0)
	err := q.Preload("User").Preload("Category").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error
	if err != nil {
		respondError(ctx, err, 91, "failed to load donations")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "total": total, "page": page, "page_size": pageSize})
}

func (a *AdminController) findAny(ctx *gin.Context) (*models.Donation, bool) {
	var donation models.Donation
	err := a.svc.DB().WithContext(ctx.Request.Context()).Unscoped().
		Where("slug = ?", ctx.Param("slug")).First(&donation).Error
	if err != nil {
		respondError(ctx, err, 92, "donation")
		return nil, false
	}
	return &donation, true
}

// Delete handles DELETE /admin/donations/:slug and removes the row for good.
func (a *AdminController) Delete(ctx *gin.Context) {
	donation, ok := a.findAny(ctx)
	if !ok {
		return
	}
	err := a.svc.DB().WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("donation_id = ?", donation.ID).Delete(&models.DonationImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("commentable_type = ? AND commentable_id = ?", models.CommentableDonation, donation.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("likeable_type = ? AND likeable_id = ?", services.LikeableDonation, donation.ID).Delete(&models.LikedPost{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Donation{}, donation.ID).Error
	})
	if err != nil {
		respondError(ctx, err, 93, "failed to delete donation")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"deleted": true})
}

// Restore handles POST /admin/donations/:slug/restore.
func (a *AdminController) Restore(ctx *gin.Context) {
	donation, ok := a.findAny(ctx)
	if !ok {
		return
	}
	if !donation.DeletedAt.Valid {
		utils.Error(ctx, http.StatusBadRequest, 40095, "donation is not deleted")
		return
	}
	err := a.svc.DB().WithContext(ctx.Request.Context()).Unscoped().
		Model(&models.Donation{}).Where("id = ?", donation.ID).Update("deleted_at", nil).Error
	if err != nil {
		respondError(ctx, err, 94, "failed to restore donation")
		return
	}
	afterPostWrite()
	utils.Success(ctx, gin.H{"restored": true})
}
