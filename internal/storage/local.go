package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalConfig configures a LocalStore.
type LocalConfig struct {
	Root          string
	Bucket        string
	PublicBaseURL string
	Secret        string
	URLTTL        time.Duration
}

// LocalStore keeps blobs on disk and serves them through signed, expiring links.
type LocalStore struct {
	root    string
	bucket  string
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// FileLinkAudience is the aud claim carried by file link tokens.
const FileLinkAudience = "postboard-files"

type fileClaims struct {
	FileID string `json:"fid"`
	jwt.RegisteredClaims
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	if cfg.Root == "" {
		return nil, errors.New("local storage root is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("local storage signing secret is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "local"
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &LocalStore{
		root:    cfg.Root,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		secret:  []byte(cfg.Secret),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (s *LocalStore) blobPath(cloudPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(cloudPath))
}

func (s *LocalStore) Put(_ context.Context, cloudPath, _ string, data []byte) (string, error) {
	clean, err := CleanPath(cloudPath)
	if err != nil {
		return "", err
	}
	dst := s.blobPath(clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return FileID(s.bucket, clean), nil
}

func (s *LocalStore) Get(_ context.Context, fileID string) ([]byte, string, error) {
	bucket, cloudPath, err := ParseFileID(fileID)
	if err != nil {
		return nil, "", err
	}
	if bucket != s.bucket {
		return nil, "", ErrInvalidFileID
	}
	data, err := os.ReadFile(s.blobPath(cloudPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read blob: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

func (s *LocalStore) TempURLs(_ context.Context, fileIDs []string) ([]TempURLResult, error) {
	if err := checkBatch(fileIDs); err != nil {
		return nil, err
	}

	results := make([]TempURLResult, 0, len(fileIDs))
	for _, id := range fileIDs {
		res := TempURLResult{FileID: id}
		if err := s.exists(id); err != nil {
			res.Status = 1
			res.ErrMsg = err.Error()
			results = append(results, res)
			continue
		}
		token, err := s.sign(id)
		if err != nil {
			res.Status = 1
			res.ErrMsg = err.Error()
		} else {
			res.TempURL = s.baseURL + "/files/" + token
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *LocalStore) exists(fileID string) error {
	bucket, cloudPath, err := ParseFileID(fileID)
	if err != nil {
		return err
	}
	if bucket != s.bucket {
		return ErrInvalidFileID
	}
	if _, err := os.Stat(s.blobPath(cloudPath)); err != nil {
		return ErrObjectNotFound
	}
	return nil
}

func (s *LocalStore) sign(fileID string) (string, error) {
	now := s.now()
	claims := fileClaims{
		FileID: fileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{FileLinkAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Open verifies a link token and returns the blob it grants access to.
func (s *LocalStore) Open(ctx context.Context, token string) ([]byte, string, error) {
	claims := &fileClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithAudience(FileLinkAudience))
	if err != nil || !parsed.Valid || claims.FileID == "" {
		return nil, "", ErrInvalidFileID
	}
	return s.Get(ctx, claims.FileID)
}
