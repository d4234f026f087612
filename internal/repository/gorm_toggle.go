package repository

import (
	"context"
	"time"

	"postboard/internal/models"

	"gorm.io/gorm"
)

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a GORM-backed vote log.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Toggle(ctx context.Context, openid, postID string) (models.VoteResult, error) {
	var result models.VoteResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.Post{}, postID); err != nil {
			return err
		}

		res := tx.Where("openid = ? AND post_id = ?", openid, postID).Delete(&models.Vote{})
		if res.Error != nil {
			return res.Error
		}

		delta := -1
		if res.RowsAffected == 0 {
			vote := models.Vote{
				ID:        models.NewID(),
				OpenID:    openid,
				PostID:    postID,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			delta = 1
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("votes", gorm.Expr("votes + ?", delta)).Error; err != nil {
			return err
		}

		result.IsVoted = delta > 0
		return tx.Model(&models.Post{}).Select("votes").Where("id = ?", postID).Row().Scan(&result.Votes)
	})

	return result, err
}

func (r *voteRepository) VotedPostIDs(ctx context.Context, openid string, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if openid == "" || len(postIDs) == 0 {
		return out, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("openid = ? AND post_id IN ?", openid, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *voteRepository) ListByVoter(ctx context.Context, openid string) ([]*models.Vote, error) {
	var votes []*models.Vote
	err := r.db.WithContext(ctx).
		Where("openid = ?", openid).
		Order(newestFirst).
		Find(&votes).Error
	return votes, err
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a GORM-backed comment like store.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) SetLiked(ctx context.Context, openid, commentID string, liked bool) (models.LikeResult, error) {
	var result models.LikeResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.Comment{}, commentID); err != nil {
			return err
		}

		delta := 0
		if liked {
			var existing int64
			if err := tx.Model(&models.Like{}).
				Where("user_id = ? AND comment_id = ?", openid, commentID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing == 0 {
				like := models.Like{
					ID:        models.NewID(),
					UserID:    openid,
					CommentID: commentID,
					CreatedAt: time.Now(),
				}
				if err := tx.Create(&like).Error; err != nil {
					return err
				}
				delta = 1
			}
		} else {
			res := tx.Where("user_id = ? AND comment_id = ?", openid, commentID).Delete(&models.Like{})
			if res.Error != nil {
				return res.Error
			}
			delta = -int(res.RowsAffected)
		}

		if delta != 0 {
			if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
				UpdateColumn("likes", gorm.Expr("likes + ?", delta)).Error; err != nil {
				return err
			}
		}

		result.Liked = liked
		return tx.Model(&models.Comment{}).Select("likes").Where("id = ?", commentID).Row().Scan(&result.Likes)
	})

	return result, err
}

func (r *likeRepository) LikedCommentIDs(ctx context.Context, openid string, commentIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(commentIDs))
	if openid == "" || len(commentIDs) == 0 {
		return out, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND comment_id IN ?", openid, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// requireRow returns ErrNotFound unless model has a row with the given id.
func requireRow(tx *gorm.DB, model any, id string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
