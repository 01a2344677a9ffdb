package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// ConfigController serves the public settings the frontend needs before login.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetPublic handles GET /config.
func (c *ConfigController) GetPublic(ctx *gin.Context) {
	cfg := config.Get()
	providers := []string{}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		providers = append(providers, "github")
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, "google")
	}
	utils.Success(ctx, gin.H{
		"register_captcha": cfg.RegisterCaptchaEnabled,
		"oauth_providers":  providers,
		"timezone":         cfg.Timezone,
		"feed_per_page":    services.FeedPerPage,
		"max_upload_bytes": MaxUploadSize,
		"urgency_levels":   []string{"low", "medium", "high"},
		"date_ranges": []services.DateRange{
			services.DateAll, services.DateToday, services.DateWeek, services.DateMonth, services.DateYear,
		},
	})
}
