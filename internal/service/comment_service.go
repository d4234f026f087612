package service

import (
	"context"
	"strings"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/repository"
)

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	likes    repository.LikeRepository
	now      func() time.Time
}

type AddCommentInput struct {
	OpenID   string
	PostID   string
	Content  string
	ParentID string
}

type LikeCommentInput struct {
	OpenID    string
	CommentID string
	Liked     bool
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, likes repository.LikeRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts, likes: likes, now: time.Now}
}

// AddComment stores a comment or reply and returns its id. A reply to a reply
// is attached to the top-level comment of that thread.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (string, error) {
	if err := requireCaller(in.OpenID); err != nil {
		return "", err
	}
	if in.PostID == "" || in.Content == "" {
		return "", models.NewValidationError("Post ID and content are required.")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", models.NewValidationError("Comment content cannot be empty.")
	}

	if _, err := s.posts.GetByID(ctx, in.PostID); err != nil {
		return "", storeError(err, "Post", in.PostID)
	}

	parentID := strings.TrimSpace(in.ParentID)
	if parentID != "" {
		parent, err := s.comments.GetByID(ctx, parentID)
		if err != nil {
			return "", storeError(err, "Parent comment", parentID)
		}
		if parent.PostID != in.PostID {
			return "", models.NewValidationError("Parent comment belongs to another post.")
		}
		if parent.IsReply() {
			parentID = parent.ParentID
		}
	}

	comment := &models.Comment{
		ID:        models.NewID(),
		PostID:    in.PostID,
		ParentID:  parentID,
		OpenID:    in.OpenID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return "", models.NewInternalError(err)
	}
	return comment.ID, nil
}

// LikeComment moves the caller's like on a comment to the requested state.
func (s *CommentService) LikeComment(ctx context.Context, in LikeCommentInput) (models.LikeResult, error) {
	if err := requireCaller(in.OpenID); err != nil {
		return models.LikeResult{}, err
	}
	if in.CommentID == "" {
		return models.LikeResult{}, models.NewValidationError("缺少评论ID")
	}

	res, err := s.likes.SetLiked(ctx, in.OpenID, in.CommentID, in.Liked)
	if err != nil {
		return models.LikeResult{}, storeError(err, "Comment", in.CommentID)
	}

	action := "unlike"
	if in.Liked {
		action = "like"
	}
	middleware.ToggleOperations.WithLabelValues("comment_like", action).Inc()
	return res, nil
}
