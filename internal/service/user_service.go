package service

import (
	"context"
	"strings"

	"postboard/internal/models"
	"postboard/internal/repository"
)

type UserService struct {
	users repository.UserRepository
}

type UpsertUserInput struct {
	OpenID    string
	NickName  string
	AvatarURL string
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Upsert creates the caller's user record or refreshes its name and avatar.
func (s *UserService) Upsert(ctx context.Context, in UpsertUserInput) error {
	if err := requireCaller(in.OpenID); err != nil {
		return err
	}
	if err := s.users.Upsert(ctx, in.OpenID, strings.TrimSpace(in.NickName), strings.TrimSpace(in.AvatarURL)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateProfile writes the non-empty fields of update.
func (s *UserService) UpdateProfile(ctx context.Context, openid string, update models.ProfileUpdate) error {
	if err := requireCaller(openid); err != nil {
		return err
	}
	update = models.ProfileUpdate{
		NickName:  strings.TrimSpace(update.NickName),
		AvatarURL: strings.TrimSpace(update.AvatarURL),
		Birthday:  strings.TrimSpace(update.Birthday),
		Bio:       strings.TrimSpace(update.Bio),
	}
	if update.Empty() {
		return models.NewValidationError("没有需要更新的内容")
	}
	if err := s.users.UpdateProfile(ctx, openid, update); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
