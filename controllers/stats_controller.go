package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// StatsController provides site statistics and health.
type StatsController struct {
	svc *services.Service
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(svc *services.Service) *StatsController {
	return &StatsController{svc: svc}
}

// GetStats returns aggregate counts and today's page views.
// A failing count reports 0 instead of failing the whole endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.svc.DB().WithContext(ctx.Request.Context())
	count := func(model interface{}, query string, args ...interface{}) int64 {
		var n int64
		q := db.Model(model)
		if query != "" {
			q = q.Where(query, args...)
		}
		if err := q.Count(&n).Error; err != nil {
			utils.Sugar.Warnw("stats count failed", "error", err)
			return 0
		}
		return n
	}

	var pageViews int64
	// string date equality avoids driver DATE type mismatches
	today := s.svc.Today().Format("2006-01-02")
	if err := db.Model(&models.PageView{}).Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").Scan(&pageViews).Error; err != nil {
		pageViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":       count(&models.User{}, ""),
		"donation_count":   count(&models.Donation{}, "type = ?", models.DonationTypeDonation),
		"request_count":    count(&models.Donation{}, "type = ?", models.DonationTypeRequest),
		"forum_count":      count(&models.Forum{}, ""),
		"affair_count":     count(&models.Affair{}, ""),
		"comment_count":    count(&models.Comment{}, ""),
		"today_page_views": pageViews,
	})
}

// detailPrefix is the route segment each post type is viewed under.
var detailPrefix = map[services.PostKind]string{
	services.KindDonation: "/donations/",
	services.KindRequest:  "/donations/",
	services.KindForum:    "/forums/",
	services.KindAffair:   "/affairs/",
}

// GetPostStats handles GET /stats/:type/:slug with all-time views and comments.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	kind, ok := services.ParseKind(ctx.Param("type"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40075, "unknown post type")
		return
	}
	typ, id, err := resolvePost(ctx, s.svc.DB(), string(kind), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, 72, "post")
		return
	}
	db := s.svc.DB().WithContext(ctx.Request.Context())

	var pv int64
	if err := db.Model(&models.PageView{}).
		Where("path LIKE ? ESCAPE '!'", "%"+services.EscapeLike(detailPrefix[kind]+ctx.Param("slug"))).
		Select("COALESCE(SUM(count),0)").Scan(&pv).Error; err != nil {
		pv = 0
	}
	var comments int64
	if err := db.Model(&models.Comment{}).
		Where("commentable_type = ? AND commentable_id = ?", typ, id).Count(&comments).Error; err != nil {
		comments = 0
	}
	utils.Success(ctx, gin.H{"pv": pv, "comments_count": comments})
}

// Health reports database and cache status.
func (s *StatsController) Health(ctx *gin.Context) {
	out := gin.H{"database": config.Health(s.svc.DB())}
	status := http.StatusOK
	if out["database"].(map[string]string)["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	if rdb := utils.GetRedis(); rdb != nil {
		if err := rdb.Ping(ctx.Request.Context()).Err(); err != nil {
			out["redis"] = "down"
		} else {
			out["redis"] = "up"
		}
	} else {
		out["redis"] = "disabled"
	}
	utils.Respond(ctx, status, 0, "success", out)
}
