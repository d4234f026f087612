// Package storage keeps uploaded blobs and mints temporary URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"postboard/internal/config"
)

// FileIDPrefix marks values that name a stored blob rather than a URL.
const FileIDPrefix = "cloud://"

// MaxTempURLBatch is the largest number of ids a single TempURLs call accepts.
const MaxTempURLBatch = 50

var (
	// ErrInvalidPath is returned for empty, absolute or traversing cloud paths.
	ErrInvalidPath = errors.New("invalid cloud path")
	// ErrInvalidFileID is returned for ids that do not belong to this store.
	ErrInvalidFileID = errors.New("invalid file id")
	// ErrObjectNotFound is returned when a blob does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrBatchTooLarge is returned when TempURLs receives too many ids.
	ErrBatchTooLarge = fmt.Errorf("at most %d file ids per request", MaxTempURLBatch)
)

// TempURLResult is the per-id outcome of TempURLs. Status 0 means TempURL is valid.
type TempURLResult struct {
	FileID  string
	TempURL string
	Status  int
	ErrMsg  string
}

// ObjectStore stores blobs under cloud paths and hands out file ids for them.
type ObjectStore interface {
	Put(ctx context.Context, cloudPath, contentType string, data []byte) (string, error)
	Get(ctx context.Context, fileID string) ([]byte, string, error)
	// TempURLs mints time-limited URLs for at most MaxTempURLBatch ids.
	TempURLs(ctx context.Context, fileIDs []string) ([]TempURLResult, error)
}

// IsFileID reports whether v names a stored blob.
func IsFileID(v string) bool {
	return strings.HasPrefix(v, FileIDPrefix)
}

// FileID builds the identifier for cloudPath in bucket.
func FileID(bucket, cloudPath string) string {
	return FileIDPrefix + bucket + "/" + cloudPath
}

// ParseFileID splits a file id into bucket and cloud path.
func ParseFileID(fileID string) (bucket, cloudPath string, err error) {
	rest, ok := strings.CutPrefix(fileID, FileIDPrefix)
	if !ok {
		return "", "", ErrInvalidFileID
	}
	bucket, cloudPath, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" {
		return "", "", ErrInvalidFileID
	}
	if cloudPath, err = CleanPath(cloudPath); err != nil {
		return "", "", ErrInvalidFileID
	}
	return bucket, cloudPath, nil
}

// CleanPath validates a caller supplied cloud path and returns its clean form.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", ErrInvalidPath
	}
	return clean, nil
}

// New builds the object store selected by cfg.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.StorageBucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			URLTTL:    cfg.TempURLTTL,
		})
	case "local", "":
		return NewLocalStore(LocalConfig{
			Root:          cfg.StorageLocalDir,
			Bucket:        cfg.StorageBucket,
			PublicBaseURL: cfg.PublicBaseURL,
			Secret:        cfg.JWTSecret,
			URLTTL:        cfg.TempURLTTL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func checkBatch(ids []string) error {
	if len(ids) > MaxTempURLBatch {
		return ErrBatchTooLarge
	}
	return nil
}
