// Package repository provides narrow per-entity stores over GORM and MongoDB.
package repository

import (
	"context"
	"errors"
	"slices"

	"postboard/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Collection (table) names shared by both backends.
const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
	CollectionVotes    = "votes_log"
	CollectionLikes    = "comment_likes"
)

// Collections lists every collection the admin tooling may clear.
var Collections = []string{CollectionUsers, CollectionPosts, CollectionComments, CollectionVotes, CollectionLikes}

// UserRepository stores profiles keyed by caller identity.
type UserRepository interface {
	GetByOpenID(ctx context.Context, openid string) (*models.User, error)
	GetByOpenIDs(ctx context.Context, openids []string) (map[string]*models.User, error)
	Upsert(ctx context.Context, openid, nickName, avatarURL string) error
	UpdateProfile(ctx context.Context, openid string, update models.ProfileUpdate) error
}

// PostRepository stores posts. Every returned post is normalized.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Post, error)
	List(ctx context.Context, skip, limit int) ([]*models.Post, error)
	ListByOwner(ctx context.Context, openid string, skip, limit int) ([]*models.Post, error)
	Delete(ctx context.Context, id string) error
}

// CommentRepository stores comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByPost returns every comment of the post, oldest first.
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error)
}

// VoteRepository stores the vote log and keeps posts.votes in step with it.
type VoteRepository interface {
	// Toggle adds or removes the caller's vote and adjusts the counter atomically.
	Toggle(ctx context.Context, openid, postID string) (models.VoteResult, error)
	VotedPostIDs(ctx context.Context, openid string, postIDs []string) (map[string]bool, error)
	// ListByVoter returns the caller's votes, most recent first.
	ListByVoter(ctx context.Context, openid string) ([]*models.Vote, error)
}

// LikeRepository stores comment likes and keeps comments.likes in step with them.
type LikeRepository interface {
	// SetLiked moves the like to the desired state atomically; it is a no-op when already there.
	SetLiked(ctx context.Context, openid, commentID string, liked bool) (models.LikeResult, error)
	LikedCommentIDs(ctx context.Context, openid string, commentIDs []string) (map[string]bool, error)
}

// ReconcileReport counts records whose counters were corrected.
type ReconcileReport struct {
	Posts    int64
	Comments int64
}

// Maintenance holds bulk operations used by the admin tool.
type Maintenance interface {
	Clear(ctx context.Context, collection string) (int64, error)
	// NormalizeImageLists rewrites drifted image fields as arrays, batchSize posts at a time.
	NormalizeImageLists(ctx context.Context, batchSize int) (int, error)
	// ReconcileCounters recomputes votes and likes from their logs.
	ReconcileCounters(ctx context.Context) (ReconcileReport, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Users       UserRepository
	Posts       PostRepository
	Comments    CommentRepository
	Votes       VoteRepository
	Likes       LikeRepository
	Maintenance Maintenance
}

func isKnownCollection(name string) bool {
	return slices.Contains(Collections, name)
}
