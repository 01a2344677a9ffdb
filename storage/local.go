package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores files below Root and serves them under PublicPrefix.
type Local struct {
	Root    string
	BaseURL string
}

// NewLocal returns a disk-backed storage.
func NewLocal(root, baseURL string) *Local {
	return &Local{Root: root, BaseURL: baseURL}
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(l.Root, clean), nil
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if size > 0 {
		r = io.LimitReader(r, size)
	}
	_, err = io.Copy(f, r)
	return err
}

func (l *Local) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) URL(key string) string {
	return l.BaseURL + PublicPrefix + strings.TrimLeft(key, "/")
}
