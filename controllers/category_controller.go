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

// CategoryController lists and creates categories for each post type.
type CategoryController struct {
	svc *services.Service
}

// NewCategoryController creates a CategoryController.
func NewCategoryController(svc *services.Service) *CategoryController {
	return &CategoryController{svc: svc}
}

type categoryRow struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryRequest struct {
	Name string `json:"name" binding:"required,notblank,max=100"`
}

// categoryModel maps the path type onto a category table. Requests share donation categories.
func categoryModel(typ string) (interface{}, bool) {
	kind, ok := services.ParseKind(typ)
	if !ok {
		return nil, false
	}
	switch kind {
	case services.KindForum:
		return &models.ForumCategory{}, true
	case services.KindAffair:
		return &models.AffairCategory{}, true
	default:
		return &models.DonationCategory{}, true
	}
}

func newCategory(model interface{}, name, slugValue string) interface{} {
	switch model.(type) {
	case *models.ForumCategory:
		return &models.ForumCategory{Name: name, Slug: slugValue}
	case *models.AffairCategory:
		return &models.AffairCategory{Name: name, Slug: slugValue}
	default:
		return &models.DonationCategory{Name: name, Slug: slugValue}
	}
}

// Index handles GET /categories/:type.
func (c *CategoryController) Index(ctx *gin.Context) {
	model, ok := categoryModel(ctx.Param("type"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40061, "unknown category type")
		return
	}
	rows := make([]categoryRow, 0)
	err := c.svc.DB().WithContext(ctx.Request.Context()).Model(model).
		Select("id, name, slug").Order("name ASC").Scan(&rows).Error
	if err != nil {
		respondError(ctx, err, 61, "failed to load categories")
		return
	}
	utils.Success(ctx, rows)
}

// Create handles POST /categories/:type. An existing name returns the existing row.
func (c *CategoryController) Create(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	model, ok := categoryModel(ctx.Param("type"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40061, "unknown category type")
		return
	}
	var req categoryRequest
	if !bindJSON(ctx, &req, 40062) {
		return
	}
	name := utils.SanitizePlain(req.Name)
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40062, "name is required")
		return
	}
	db := c.svc.DB().WithContext(ctx.Request.Context())

	var existing categoryRow
	err := db.Model(model).Select("id, name, slug").Where("LOWER(name) = ?", strings.ToLower(name)).Take(&existing).Error
	if err == nil {
		utils.Success(ctx, existing)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(ctx, err, 62, "failed to create category")
		return
	}
	slugValue, err := services.UniqueSlug(ctx.Request.Context(), c.svc.DB(), model, name, 0)
	if err != nil {
		respondError(ctx, err, 62, "failed to create category")
		return
	}
	if err := db.Create(newCategory(model, name, slugValue)).Error; err != nil {
		respondError(ctx, err, 62, "failed to create category")
		return
	}
	if err := db.Model(model).Select("id, name, slug").Where("slug = ?", slugValue).Take(&existing).Error; err != nil {
		respondError(ctx, err, 62, "category")
		return
	}
	utils.Created(ctx, existing)
}
