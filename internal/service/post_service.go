package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/repository"
)

type PostService struct {
	posts repository.PostRepository
	votes repository.VoteRepository
	now   func() time.Time
}

type CreatePostInput struct {
	OpenID            string
	Title             string
	Content           string
	ImageURLs         []string
	OriginalImageURLs []string
}

type DeletePostInput struct {
	OpenID string
	PostID string
}

func NewPostService(posts repository.PostRepository, votes repository.VoteRepository) *PostService {
	return &PostService{posts: posts, votes: votes, now: time.Now}
}

// CreatePost validates and stores a new post and returns its id.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (string, error) {
	if err := requireCaller(in.OpenID); err != nil {
		return "", err
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	images := models.NormalizeImageList(in.ImageURLs)
	originals := models.NormalizeImageList(in.OriginalImageURLs)

	if len(images) == 0 && title == "" && content == "" {
		return "", models.NewValidationError("请至少上传图片或输入内容")
	}
	if title != "" && content == "" {
		return "", models.NewValidationError("请输入正文内容")
	}
	if len(images) > models.MaxImagesPerPost {
		return "", models.NewValidationError("最多只能上传9张图片")
	}
	originals = alignOriginals(images, originals)

	post := &models.Post{
		ID:                models.NewID(),
		OpenID:            in.OpenID,
		Title:             title,
		Content:           content,
		ImageURLs:         images,
		OriginalImageURLs: originals,
		CreatedAt:         s.now(),
	}
	if len(images) > 0 {
		post.ImageURL = images[0]
		post.OriginalImageURL = originals[0]
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return "", models.NewInternalError(err)
	}
	middleware.Logger.InfoContext(ctx, "Post created",
		slog.String("post_id", post.ID),
		slog.Int("images", len(images)),
	)
	return post.ID, nil
}

// alignOriginals pairs each display image with an original. Missing entries
// fall back to the display image and extras are dropped.
func alignOriginals(images, originals models.ImageList) models.ImageList {
	out := make(models.ImageList, len(images))
	for i, img := range images {
		if i < len(originals) {
			out[i] = originals[i]
		} else {
			out[i] = img
		}
	}
	return out
}

// DeletePost removes a post owned by the caller.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	if err := requireCaller(in.OpenID); err != nil {
		return err
	}
	if in.PostID == "" {
		return models.NewValidationError("Post ID is required.")
	}

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return storeError(err, "Post", in.PostID)
	}
	if post.OpenID != in.OpenID {
		return models.NewForbiddenError("权限不足，无法删除他人帖子")
	}
	if err := s.posts.Delete(ctx, in.PostID); err != nil {
		return storeError(err, "Post", in.PostID)
	}
	return nil
}

// Vote toggles the caller's vote on a post.
func (s *PostService) Vote(ctx context.Context, openid, postID string) (models.VoteResult, error) {
	if err := requireCaller(openid); err != nil {
		return models.VoteResult{}, err
	}
	if postID == "" {
		return models.VoteResult{}, models.NewValidationError("Post ID is required.")
	}

	res, err := s.votes.Toggle(ctx, openid, postID)
	if err != nil {
		return models.VoteResult{}, storeError(err, "Post", postID)
	}

	action := "remove"
	if res.IsVoted {
		action = "add"
	}
	middleware.ToggleOperations.WithLabelValues("vote", action).Inc()
	return res, nil
}
