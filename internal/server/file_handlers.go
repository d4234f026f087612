package server

import (
	"errors"
	"log/slog"
	"strings"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/service"
	"postboard/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// UploadFileRequest is the body of POST /api/files.
type UploadFileRequest struct {
	CloudPath   string `json:"cloudPath"`
	FileContent string `json:"fileContent"`
	ContentType string `json:"contentType"`
}

// CompressFileRequest is the body of POST /api/files/compress.
type CompressFileRequest struct {
	FileID string `json:"fileID"`
}

// UploadFile handles POST /api/files
func (s *Server) UploadFile(c *fiber.Ctx) error {
	var req UploadFileRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	stored, err := s.files.Upload(c.UserContext(), service.UploadInput{
		OpenID:      middleware.OpenID(c),
		CloudPath:   req.CloudPath,
		FileContent: req.FileContent,
		ContentType: req.ContentType,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"fileID":    stored.FileID,
		"cloudPath": stored.CloudPath,
	})
}

// CompressFile handles POST /api/files/compress
func (s *Server) CompressFile(c *fiber.Ctx) error {
	var req CompressFileRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	stored, err := s.files.Compress(c.UserContext(), middleware.OpenID(c), req.FileID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"fileID":    stored.FileID,
		"cloudPath": stored.CloudPath,
	})
}

// ServeFile handles GET /files/:token, the target of locally minted temporary URLs.
func (s *Server) ServeFile(c *fiber.Ctx) error {
	data, contentType, err := s.blobs.Open(c.UserContext(), c.Params("token"))
	switch {
	case errors.Is(err, storage.ErrInvalidFileID):
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Link is invalid or expired"))
	case errors.Is(err, storage.ErrObjectNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("File", nil))
	case err != nil:
		middleware.Logger.ErrorContext(c.UserContext(), "failed to serve file", slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	// Only images render inline; anything else is downloaded.
	if !strings.HasPrefix(contentType, "image/") {
		c.Set(fiber.HeaderContentDisposition, "attachment")
	}
	return c.Send(data)
}
