// Package storage keeps uploaded images on local disk or in a MinIO bucket and
// resolves stored paths to public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pedulirasa/backend/config"
)

// PublicPrefix is where locally stored files are served.
const PublicPrefix = "/storage/"

// Storage stores objects under a key such as "donations/2026/10/<uuid>.jpg".
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.AppConfig) (Storage, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "", "local":
		return NewLocal(cfg.StorageLocalRoot, strings.TrimRight(cfg.AppURL, "/")), nil
	case "minio":
		return NewMinio(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

// ObjectKey builds a new unique key in folder, keeping the file extension.
func ObjectKey(folder, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".jpg"
	}
	return path.Join(folder, fmt.Sprintf("%d", now.Year()), fmt.Sprintf("%02d", now.Month()), uuid.NewString()+ext)
}

// ContentType guesses the MIME type from the file extension.
func ContentType(fileName string) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// Resolver turns a stored image path into a servable URL. Absolute URLs pass through.
type Resolver func(key string) string

// ResolverFor returns a Resolver backed by s. A nil s serves keys under PublicPrefix.
func ResolverFor(s Storage) Resolver {
	return func(key string) string {
		if key == "" {
			return ""
		}
		if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
			return key
		}
		if s == nil {
			return PublicPrefix + strings.TrimLeft(key, "/")
		}
		return s.URL(key)
	}
}
