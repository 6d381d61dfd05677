package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go-gin-bus-booking/config"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxUploadBytes = 5 << 20

// BlobStore stores uploaded files and returns their public URL.
type BlobStore interface {
	// Upload stores r under key (without extension). The extension is derived from the content.
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
}

// DiskStore keeps images on the local filesystem, served by the HTTP server under PublicURL.
type DiskStore struct {
	root      string
	publicURL string
	maxBytes  int64
}

func NewDiskStore(cfg config.StorageConfig) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &DiskStore{
		root:      cfg.Dir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxBytes:  DefaultMaxUploadBytes,
	}, nil
}

func (s *DiskStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrInvalidInput, s.maxBytes)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMedia, mtype.String())
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := clean + mtype.Extension()
	dst := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	return s.publicURL + "/" + name, nil
}

func cleanKey(key string) (string, error) {
	if strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: invalid storage key %q", apperrors.ErrInvalidInput, key)
	}
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" {
		return "", fmt.Errorf("%w: empty storage key", apperrors.ErrInvalidInput)
	}
	return clean, nil
}
