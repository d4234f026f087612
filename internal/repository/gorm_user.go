package repository

import (
	"context"
	"errors"
	"time"

	"postboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByOpenID(ctx context.Context, openid string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("openid = ?", openid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByOpenIDs(ctx context.Context, openids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(openids))
	if len(openids) == 0 {
		return out, nil
	}

	var users []*models.User
	if err := r.db.WithContext(ctx).Where("openid IN ?", openids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.OpenID] = u
	}
	return out, nil
}

func (r *userRepository) Upsert(ctx context.Context, openid, nickName, avatarURL string) error {
	now := time.Now()
	user := models.User{
		OpenID:    openid,
		NickName:  nickName,
		AvatarURL: avatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "openid"}},
		DoUpdates: clause.AssignmentColumns([]string{"nick_name", "avatar_url", "updated_at"}),
	}).Create(&user).Error
}

func (r *userRepository) UpdateProfile(ctx context.Context, openid string, update models.ProfileUpdate) error {
	now := time.Now()
	user := models.User{
		OpenID:    openid,
		NickName:  update.NickName,
		AvatarURL: update.AvatarURL,
		Birthday:  update.Birthday,
		Bio:       update.Bio,
		CreatedAt: now,
		UpdatedAt: now,
	}

	fields := update.Fields()
	fields["updated_at"] = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "openid"}},
		DoUpdates: clause.Assignments(fields),
	}).Create(&user).Error
}
