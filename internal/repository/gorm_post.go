package repository

import (
	"context"
	"errors"

	"postboard/internal/models"

	"gorm.io/gorm"
)

const newestFirst = "created_at DESC, id DESC"

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a GORM-backed post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Post, error) {
	out := make(map[string]*models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.Normalize()
		out[p.ID] = p
	}
	return out, nil
}

func (r *postRepository) List(ctx context.Context, skip, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Order(newestFirst).
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return normalizePosts(posts), nil
}

func (r *postRepository) ListByOwner(ctx context.Context, openid string, skip, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("openid = ?", openid).
		Order(newestFirst).
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return normalizePosts(posts), nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizePosts(posts []*models.Post) []*models.Post {
	for _, p := range posts {
		p.Normalize()
	}
	return posts
}
