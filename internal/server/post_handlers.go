package server

import (
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of POST /api/posts. Image lists accept the
// same legacy shapes the store does.
type CreatePostRequest struct {
	Title             string           `json:"title"`
	Content           string           `json:"content"`
	ImageURLs         models.ImageList `json:"imageUrls"`
	OriginalImageURLs models.ImageList `json:"originalImageUrls"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	postID, err := s.posts.CreatePost(c.UserContext(), service.CreatePostInput{
		OpenID:            middleware.OpenID(c),
		Title:             req.Title,
		Content:           req.Content,
		ImageURLs:         req.ImageURLs,
		OriginalImageURLs: req.OriginalImageURLs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "postId": postID})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	err := s.posts.DeletePost(c.UserContext(), service.DeletePostInput{
		OpenID: middleware.OpenID(c),
		PostID: c.Params("id"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// VotePost handles POST /api/posts/:id/vote
func (s *Server) VotePost(c *fiber.Ctx) error {
	res, err := s.posts.Vote(c.UserContext(), middleware.OpenID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "votes": res.Votes, "isVoted": res.IsVoted})
}
