package controllers

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/storage"
	"github.com/pedulirasa/backend/utils"
)

// MaxUploadSize caps a single image upload.
const MaxUploadSize = 10 * 1024 * 1024

var uploadFolders = map[string]bool{"donations": true, "forums": true, "affairs": true, "avatars": true}

// UploadController stores images before they are attached to a post.
type UploadController struct {
	db    *gorm.DB
	store storage.Storage
	now   func() time.Time
}

// NewUploadController creates an UploadController.
func NewUploadController(db *gorm.DB, store storage.Storage) *UploadController {
	return &UploadController{db: db, store: store, now: time.Now}
}

// Upload handles POST /upload (multipart field "file", optional "folder").
// The returned path is what post payloads reference; unattached uploads expire.
func (u *UploadController) Upload(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40091, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > MaxUploadSize {
		utils.Error(ctx, http.StatusBadRequest, 40092, "file size exceeds 10MB")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to read file")
		return
	}
	if len(data) > MaxUploadSize {
		utils.Error(ctx, http.StatusBadRequest, 40092, "file size exceeds 10MB")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		utils.Error(ctx, http.StatusBadRequest, 40093, "only images can be uploaded")
		return
	}

	folder := strings.ToLower(strings.TrimSpace(ctx.PostForm("folder")))
	if !uploadFolders[folder] {
		folder = "uploads"
	}
	now := u.now()
	key := storage.ObjectKey(folder, header.Filename, now)
	if err := u.store.Put(ctx.Request.Context(), key, bytes.NewReader(data), int64(len(data)), storage.ContentType(header.Filename)); err != nil {
		utils.Sugar.Errorw("upload put failed", "key", key, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to store file")
		return
	}

	ttl := time.Duration(config.Get().UploadTTLMinutes) * time.Minute
	record := models.UploadedFile{UserID: uid, Path: key, URL: u.store.URL(key), ExpireAt: now.Add(ttl)}
	if err := u.db.WithContext(ctx.Request.Context()).Create(&record).Error; err != nil {
		_ = u.store.Delete(ctx.Request.Context(), key)
		utils.Sugar.Errorw("upload record failed", "key", key, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to record upload")
		return
	}
	utils.Created(ctx, gin.H{"path": key, "url": record.URL, "expire_at": record.ExpireAt})
}
