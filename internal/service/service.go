// Package service implements the read assembly and mutations of the board on
// top of the repository interfaces.
package service

import (
	"context"
	"errors"

	"postboard/internal/models"
	"postboard/internal/repository"
)

// Page sizes.
const (
	DefaultPostsLimit   = 10
	DefaultLikesLimit   = 5
	DefaultProfileLimit = 20
	MaxPageLimit        = 100
)

// URLResolver maps file ids to temporary URLs. Ids it cannot resolve are
// absent from the result.
type URLResolver interface {
	Resolve(ctx context.Context, ids []string) map[string]string
}

// Page is a skip/limit window.
type Page struct {
	Skip  int
	Limit int
}

// clamp applies the default limit and bounds the window.
func (p Page) clamp(def int) Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// storeError converts a repository error into an AppError.
func storeError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

func requireCaller(openid string) error {
	if openid == "" {
		return models.NewUnauthorizedError("User not logged in.")
	}
	return nil
}
