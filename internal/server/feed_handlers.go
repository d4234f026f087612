package server

import (
	"postboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /api/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.feed.ListPosts(c.UserContext(), middleware.OpenID(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.feed.GetPostDetail(c.UserContext(), middleware.OpenID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	thread, err := s.feed.GetComments(c.UserContext(), middleware.OpenID(c), c.Params("id"), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"comments":  thread.Comments,
		"userLikes": thread.UserLikes,
	})
}

// GetLikedPosts handles GET /api/users/me/liked-posts
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	posts, err := s.feed.GetLikedPosts(c.UserContext(), middleware.OpenID(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// GetProfile handles GET /api/users/me/profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.feed.GetProfile(c.UserContext(), middleware.OpenID(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"userInfo": profile.UserInfo,
		"posts":    profile.Posts,
	})
}
