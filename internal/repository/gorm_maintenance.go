package repository

import (
	"context"
	"database/sql"
	"fmt"

	"postboard/internal/models"

	"gorm.io/gorm"
)

type maintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository creates GORM-backed bulk maintenance operations.
func NewMaintenanceRepository(db *gorm.DB) Maintenance {
	return &maintenanceRepository{db: db}
}

// NewGormStore bundles the GORM repositories.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:       NewUserRepository(db),
		Posts:       NewPostRepository(db),
		Comments:    NewCommentRepository(db),
		Votes:       NewVoteRepository(db),
		Likes:       NewLikeRepository(db),
		Maintenance: NewMaintenanceRepository(db),
	}
}

func gormModelFor(collection string) (any, error) {
	switch collection {
	case CollectionUsers:
		return &models.User{}, nil
	case CollectionPosts:
		return &models.Post{}, nil
	case CollectionComments:
		return &models.Comment{}, nil
	case CollectionVotes:
		return &models.Vote{}, nil
	case CollectionLikes:
		return &models.Like{}, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

func (r *maintenanceRepository) Clear(ctx context.Context, collection string) (int64, error) {
	model, err := gormModelFor(collection)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model)
	return res.RowsAffected, res.Error
}

type rawPostImages struct {
	ID                string         `gorm:"column:id"`
	ImageURL          sql.NullString `gorm:"column:image_url"`
	ImageURLs         sql.NullString `gorm:"column:image_urls"`
	OriginalImageURL  sql.NullString `gorm:"column:original_image_url"`
	OriginalImageURLs sql.NullString `gorm:"column:original_image_urls"`
}

func (r *maintenanceRepository) NormalizeImageLists(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	fixed := 0
	lastID := ""
	for {
		var batch []rawPostImages
		err := r.db.WithContext(ctx).
			Model(&models.Post{}).
			Select("id, image_url, image_urls, original_image_url, original_image_urls").
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Scan(&batch).Error
		if err != nil {
			return fixed, err
		}
		if len(batch) == 0 {
			return fixed, nil
		}

		for _, row := range batch {
			lastID = row.ID

			post := models.Post{
				ImageURL:          row.ImageURL.String,
				ImageURLs:         models.NormalizeImageList(row.ImageURLs.String),
				OriginalImageURL:  row.OriginalImageURL.String,
				OriginalImageURLs: models.NormalizeImageList(row.OriginalImageURLs.String),
			}
			post.Normalize()

			images, _ := post.ImageURLs.Value()
			originals, _ := post.OriginalImageURLs.Value()
			if images == row.ImageURLs.String && originals == row.OriginalImageURLs.String {
				continue
			}

			err := r.db.WithContext(ctx).
				Model(&models.Post{}).
				Where("id = ?", row.ID).
				UpdateColumns(map[string]any{
					"image_urls":          images,
					"original_image_urls": originals,
				}).Error
			if err != nil {
				return fixed, err
			}
			fixed++
		}

		if len(batch) < batchSize {
			return fixed, nil
		}
	}
}

func (r *maintenanceRepository) ReconcileCounters(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	db := r.db.WithContext(ctx)

	voteCount := db.Model(&models.Vote{}).Select("COUNT(*)").Where("votes_log.post_id = posts.id")
	res := db.Model(&models.Post{}).
		Where("votes <> (?)", voteCount).
		UpdateColumn("votes", voteCount)
	if res.Error != nil {
		return report, res.Error
	}
	report.Posts = res.RowsAffected

	likeCount := db.Model(&models.Like{}).Select("COUNT(*)").Where("comment_likes.comment_id = comments.id")
	res = db.Model(&models.Comment{}).
		Where("likes <> (?)", likeCount).
		UpdateColumn("likes", likeCount)
	if res.Error != nil {
		return report, res.Error
	}
	report.Comments = res.RowsAffected

	return report, nil
}
