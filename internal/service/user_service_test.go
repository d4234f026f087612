package service

import (
	"context"
	"testing"

	"postboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Upsert(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store.Users)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, UpsertUserInput{OpenID: "alice", NickName: " Alice ", AvatarURL: "cloud://b/a.png"}))
	first, err := store.Users.GetByOpenID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", first.NickName)

	require.NoError(t, svc.Upsert(ctx, UpsertUserInput{OpenID: "alice", NickName: "Al", AvatarURL: "cloud://b/b.png"}))
	second, err := store.Users.GetByOpenID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Al", second.NickName)
	assert.Equal(t, "cloud://b/b.png", second.AvatarURL)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	assertAppError(t, svc.Upsert(ctx, UpsertUserInput{NickName: "x"}), models.CodeUnauthorized)
}

func TestUserService_UpdateProfile(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store.Users)
	ctx := context.Background()

	err := svc.UpdateProfile(ctx, "alice", models.ProfileUpdate{Bio: "   "})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "没有需要更新的内容", appErr.Message)

	require.NoError(t, svc.UpdateProfile(ctx, "alice", models.ProfileUpdate{NickName: "Alice", Bio: "hello"}))
	require.NoError(t, svc.UpdateProfile(ctx, "alice", models.ProfileUpdate{Birthday: "1999-09-09"}))

	u, err := store.Users.GetByOpenID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.NickName)
	assert.Equal(t, "hello", u.Bio)
	assert.Equal(t, "1999-09-09", u.Birthday)

	assertAppError(t, svc.UpdateProfile(ctx, "", models.ProfileUpdate{Bio: "x"}), models.CodeUnauthorized)
}
