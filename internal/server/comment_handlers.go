package server

import (
	"postboard/internal/middleware"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddCommentRequest is the body of POST /api/posts/:id/comments.
type AddCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId"`
	ReplyTo  string `json:"replyTo"`
}

// LikeCommentRequest is the body of POST /api/comments/:id/like. IsLiked is
// the state the caller wants, not a flip.
type LikeCommentRequest struct {
	IsLiked bool `json:"isLiked"`
}

// AddComment handles POST /api/posts/:id/comments
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	parentID := req.ParentID
	if parentID == "" {
		parentID = req.ReplyTo
	}

	commentID, err := s.comments.AddComment(c.UserContext(), service.AddCommentInput{
		OpenID:   middleware.OpenID(c),
		PostID:   c.Params("id"),
		Content:  req.Content,
		ParentID: parentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "commentId": commentID})
}

// LikeComment handles POST /api/comments/:id/like
func (s *Server) LikeComment(c *fiber.Ctx) error {
	var req LikeCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.comments.LikeComment(c.UserContext(), service.LikeCommentInput{
		OpenID:    middleware.OpenID(c),
		CommentID: c.Params("id"),
		Liked:     req.IsLiked,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "likes": res.Likes, "liked": res.Liked})
}
