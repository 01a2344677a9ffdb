package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pedulirasa/backend/config"
)

// Minio stores objects in one bucket of an S3-compatible server.
type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinio connects to MinIO and creates the bucket when missing.
func NewMinio(ctx context.Context, cfg config.AppConfig) (*Minio, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}
	public := cfg.MinioPublicURL
	if public == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}
	return &Minio{client: client, bucket: cfg.MinioBucket, publicURL: strings.TrimRight(public, "/")}, nil
}

func (m *Minio) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	return nil
}

func (m *Minio) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete %s: %w", key, err)
	}
	return nil
}

func (m *Minio) URL(key string) string {
	return m.publicURL + "/" + strings.TrimLeft(key, "/")
}
