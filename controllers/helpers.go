package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/middleware"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	return middleware.CurrentUserID(ctx)
}

func isAdmin(ctx *gin.Context) bool {
	return config.Get().IsAdminEmail(ctx.GetString(middleware.ContextEmailKey))
}

// requireUser answers 401 when no user is authenticated.
func requireUser(ctx *gin.Context) (uint, bool) {
	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return uid, ok
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

// pagePath is the absolute URL of the current route, without query, used in feed links.
func pagePath(ctx *gin.Context) string {
	base := strings.TrimRight(config.Get().AppURL, "/")
	return base + ctx.Request.URL.Path
}

// respondError maps service and gorm errors onto the response envelope.
func respondError(ctx *gin.Context, err error, code int, msg string) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400+code%100, msg+": not found")
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300+code%100, "forbidden")
	case errors.Is(err, services.ErrInvalid):
		utils.Error(ctx, http.StatusBadRequest, 40000+code%100, err.Error())
	default:
		utils.Sugar.Errorw(msg, "error", err, "path", ctx.Request.URL.Path)
		utils.Error(ctx, http.StatusInternalServerError, 50000+code%100, msg)
	}
}

func bindJSON(ctx *gin.Context, req interface{}, code int) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, code, utils.ValidationMessage(err))
		return false
	}
	return true
}

// claimUploads attaches uploaded paths to a record so the cleaner keeps them.
// Every path must be one of userID's pending uploads or already be on the record (kept).
func claimUploads(tx *gorm.DB, userID uint, kept []string, paths ...string) error {
	onRecord := make(map[string]bool, len(kept))
	for _, k := range kept {
		onRecord[k] = true
	}
	claim := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" && !onRecord[p] {
			claim = append(claim, p)
		}
	}
	if len(claim) == 0 {
		return nil
	}
	var pending []string
	if err := tx.Model(&models.UploadedFile{}).
		Where("user_id = ? AND path IN ?", userID, claim).
		Pluck("path", &pending).Error; err != nil {
		return err
	}
	owned := make(map[string]bool, len(pending))
	for _, p := range pending {
		owned[p] = true
	}
	for _, p := range claim {
		if !owned[p] {
			return fmt.Errorf("%w: %s is not one of your uploads", services.ErrInvalid, p)
		}
	}
	return tx.Where("user_id = ? AND path IN ?", userID, claim).Delete(&models.UploadedFile{}).Error
}

// categoryExists checks an optional category id against its table.
func categoryExists(db *gorm.DB, model interface{}, id *uint) (bool, error) {
	if id == nil {
		return true, nil
	}
	var n int64
	if err := db.Model(model).Where("id = ?", *id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), config.Get().Location())
}

func parseClock(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, errors.New("invalid time")
}

// afterPostWrite drops cached feeds after any post mutation.
func afterPostWrite() {
	services.InvalidateFeeds()
}
