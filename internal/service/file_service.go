package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder

	"postboard/internal/cache"
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/storage"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadBytes = 10 << 20
	CompressMaxWidth      = 800
	CompressJPEGQuality   = 85
	compressedPrefix      = "compressed/"
)

type FileService struct {
	store    storage.ObjectStore
	urls     *cache.URLCache
	maxBytes int
}

type UploadInput struct {
	OpenID      string
	CloudPath   string
	FileContent string
	ContentType string
}

// StoredFile names a blob in the object store.
type StoredFile struct {
	FileID    string `json:"fileID"`
	CloudPath string `json:"cloudPath"`
}

func NewFileService(store storage.ObjectStore, urls *cache.URLCache, maxBytes int) *FileService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &FileService{store: store, urls: urls, maxBytes: maxBytes}
}

// Upload stores base64 encoded content under the requested cloud path.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*StoredFile, error) {
	if err := requireCaller(in.OpenID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CloudPath) == "" {
		return nil, models.NewValidationError("cloudPath is required")
	}
	cloudPath, err := storage.CleanPath(in.CloudPath)
	if err != nil {
		return nil, models.NewValidationError("Invalid cloudPath")
	}
	if in.FileContent == "" {
		return nil, models.NewValidationError("fileContent is required")
	}
	if base64.StdEncoding.DecodedLen(len(in.FileContent)) > s.maxBytes+2 {
		return nil, s.tooLarge()
	}

	data, err := decodeBase64(in.FileContent)
	if err != nil {
		return nil, models.NewValidationError("fileContent is not valid base64")
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("fileContent is required")
	}
	if len(data) > s.maxBytes {
		return nil, s.tooLarge()
	}

	contentType := normalizeContentType(in.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return s.put(ctx, cloudPath, contentType, data)
}

// Compress re-encodes an uploaded image as a JPEG at most CompressMaxWidth
// pixels wide and stores it under compressed/.
func (s *FileService) Compress(ctx context.Context, openid, fileID string) (*StoredFile, error) {
	if err := requireCaller(openid); err != nil {
		return nil, err
	}
	if !storage.IsFileID(fileID) {
		return nil, models.NewValidationError("fileID is required")
	}
	_, srcPath, err := storage.ParseFileID(fileID)
	if err != nil {
		return nil, models.NewValidationError("Invalid fileID")
	}

	data, _, err := s.store.Get(ctx, fileID)
	if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidFileID) {
		return nil, models.NewNotFoundError("File", fileID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	encoded, err := encodeJPEG(scaleToWidth(src, CompressMaxWidth), CompressJPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	base := path.Base(srcPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	out, err := s.put(ctx, compressedPrefix+base+".jpg", "image/jpeg", encoded)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "Image compressed",
		slog.String("source", fileID),
		slog.String("file_id", out.FileID),
		slog.Int("bytes_in", len(data)),
		slog.Int("bytes_out", len(encoded)),
	)
	return out, nil
}

func (s *FileService) put(ctx context.Context, cloudPath, contentType string, data []byte) (*StoredFile, error) {
	fileID, err := s.store.Put(ctx, cloudPath, contentType, data)
	if errors.Is(err, storage.ErrInvalidPath) {
		return nil, models.NewValidationError("Invalid cloudPath")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	// Overwriting a path must not keep serving links to the old blob.
	if err := s.urls.Forget(ctx, fileID); err != nil {
		middleware.Logger.WarnContext(ctx, "URL cache invalidation failed",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
	return &StoredFile{FileID: fileID, CloudPath: cloudPath}, nil
}

func (s *FileService) tooLarge() error {
	return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1<<20)))
}

func decodeBase64(v string) ([]byte, error) {
	if _, rest, ok := strings.Cut(v, ";base64,"); ok {
		v = rest
	}
	data, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(v)
	}
	return data, nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

// scaleToWidth downsizes src to maxWidth keeping the aspect ratio. Images
// that already fit are only flattened onto white.
func scaleToWidth(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxWidth {
		h = max(1, h*maxWidth/w)
		w = maxWidth
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
