package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"postboard/internal/database"
	"postboard/internal/models"
	"postboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return repository.NewGormStore(db)
}

// fakeResolver resolves every cloud:// id except those listed in fail.
type fakeResolver struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]bool
}

func (r *fakeResolver) Resolve(_ context.Context, ids []string) map[string]string {
	r.mu.Lock()
	r.calls = append(r.calls, ids)
	r.mu.Unlock()

	out := make(map[string]string)
	for _, id := range ids {
		if !strings.HasPrefix(id, "cloud://") || r.fail[id] {
			continue
		}
		out[id] = "https://cdn.test/" + strings.TrimPrefix(id, "cloud://")
	}
	return out
}

// postRepoStub overrides selected PostRepository methods.
type postRepoStub struct {
	repository.PostRepository
	getByIDFn func(context.Context, string) (*models.Post, error)
	listFn    func(context.Context, int, int) ([]*models.Post, error)
	createFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, string) error
}

func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, skip, limit int) ([]*models.Post, error) {
	return s.listFn(ctx, skip, limit)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:  func(_ context.Context, _ string) error { return nil },
	}
}

func seedUser(t *testing.T, store *repository.Store, openid, nick, avatar string) {
	t.Helper()
	require.NoError(t, store.Users.Upsert(context.Background(), openid, nick, avatar))
}

func seedPost(t *testing.T, store *repository.Store, p models.Post) *models.Post {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	require.NoError(t, store.Posts.Create(context.Background(), &p))
	return &p
}

func seedComment(t *testing.T, store *repository.Store, c models.Comment) {
	t.Helper()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	require.NoError(t, store.Comments.Create(context.Background(), &c))
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
