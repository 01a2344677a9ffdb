package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// SearchController serves the unified cross-type search.
type SearchController struct {
	svc *services.Service
}

// NewSearchController creates a SearchController.
func NewSearchController(svc *services.Service) *SearchController {
	return &SearchController{svc: svc}
}

// Search handles GET /search?q=&type=&category=&urgency=&location=&date=.
// Unknown filter values fall back to "all" rather than failing.
func (s *SearchController) Search(ctx *gin.Context) {
	params := services.NormalizeParams(
		ctx.Query("q"),
		ctx.DefaultQuery("type", services.KindAll),
		ctx.DefaultQuery("category", "all"),
		ctx.DefaultQuery("urgency", "all"),
		ctx.Query("location"),
		ctx.DefaultQuery("date", string(services.DateAll)),
	)
	res, err := s.svc.Search(ctx.Request.Context(), params)
	if err != nil {
		respondError(ctx, err, 1, "search failed")
		return
	}
	utils.Success(ctx, res)
}
