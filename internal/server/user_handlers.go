package server

import (
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpsertUserRequest is the body of POST /api/users and PUT /api/users/me.
// Older clients send the avatar as avatarFileID.
type UpsertUserRequest struct {
	NickName     string `json:"nickName"`
	AvatarFileID string `json:"avatarFileID"`
	AvatarURL    string `json:"avatarUrl"`
}

// UpdateProfileRequest is the body of PATCH /api/users/me/profile.
type UpdateProfileRequest struct {
	NickName  string `json:"nickName"`
	AvatarURL string `json:"avatarUrl"`
	Birthday  string `json:"birthday"`
	Bio       string `json:"bio"`
}

// UpsertUser handles POST /api/users and PUT /api/users/me
func (s *Server) UpsertUser(c *fiber.Ctx) error {
	var req UpsertUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	avatar := req.AvatarFileID
	if avatar == "" {
		avatar = req.AvatarURL
	}

	err := s.users.Upsert(c.UserContext(), service.UpsertUserInput{
		OpenID:    middleware.OpenID(c),
		NickName:  req.NickName,
		AvatarURL: avatar,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// UpdateProfile handles PATCH /api/users/me/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	err := s.users.UpdateProfile(c.UserContext(), middleware.OpenID(c), models.ProfileUpdate{
		NickName:  req.NickName,
		AvatarURL: req.AvatarURL,
		Birthday:  req.Birthday,
		Bio:       req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
