package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"postboard/internal/config"
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type MockFeed struct{ mock.Mock }

func (m *MockFeed) ListPosts(ctx context.Context, caller string, page service.Page) ([]*models.PostView, error) {
	args := m.Called(ctx, caller, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PostView), args.Error(1)
}

func (m *MockFeed) GetPostDetail(ctx context.Context, caller, postID string) (*models.PostView, error) {
	args := m.Called(ctx, caller, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PostView), args.Error(1)
}

func (m *MockFeed) GetComments(ctx context.Context, caller, postID string, page service.Page) (*models.CommentThread, error) {
	args := m.Called(ctx, caller, postID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommentThread), args.Error(1)
}

func (m *MockFeed) GetLikedPosts(ctx context.Context, caller string, page service.Page) ([]*models.PostView, error) {
	args := m.Called(ctx, caller, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PostView), args.Error(1)
}

func (m *MockFeed) GetProfile(ctx context.Context, caller string, page service.Page) (*models.ProfileFeed, error) {
	args := m.Called(ctx, caller, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProfileFeed), args.Error(1)
}

type MockPosts struct{ mock.Mock }

func (m *MockPosts) CreatePost(ctx context.Context, in service.CreatePostInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockPosts) DeletePost(ctx context.Context, in service.DeletePostInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockPosts) Vote(ctx context.Context, openid, postID string) (models.VoteResult, error) {
	args := m.Called(ctx, openid, postID)
	return args.Get(0).(models.VoteResult), args.Error(1)
}

type MockComments struct{ mock.Mock }

func (m *MockComments) AddComment(ctx context.Context, in service.AddCommentInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockComments) LikeComment(ctx context.Context, in service.LikeCommentInput) (models.LikeResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.LikeResult), args.Error(1)
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) Upsert(ctx context.Context, in service.UpsertUserInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockUsers) UpdateProfile(ctx context.Context, openid string, update models.ProfileUpdate) error {
	return m.Called(ctx, openid, update).Error(0)
}

type MockFiles struct{ mock.Mock }

func (m *MockFiles) Upload(ctx context.Context, in service.UploadInput) (*service.StoredFile, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StoredFile), args.Error(1)
}

func (m *MockFiles) Compress(ctx context.Context, openid, fileID string) (*service.StoredFile, error) {
	args := m.Called(ctx, openid, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StoredFile), args.Error(1)
}

type mockedServer struct {
	app      *fiber.App
	feed     *MockFeed
	posts    *MockPosts
	comments *MockComments
	users    *MockUsers
	files    *MockFiles
}

func newMockedServer(t *testing.T) *mockedServer {
	t.Helper()
	ms := &mockedServer{
		feed:     new(MockFeed),
		posts:    new(MockPosts),
		comments: new(MockComments),
		users:    new(MockUsers),
		files:    new(MockFiles),
	}
	s := &Server{
		config:   &config.Config{MaxUploadBytes: 1 << 20},
		auth:     middleware.NewAuthenticator(testSecret),
		feed:     ms.feed,
		posts:    ms.posts,
		comments: ms.comments,
		users:    ms.users,
		files:    ms.files,
	}
	ms.app = s.NewApp()
	s.SetupRoutes(ms.app)
	t.Cleanup(func() {
		ms.feed.AssertExpectations(t)
		ms.posts.AssertExpectations(t)
		ms.comments.AssertExpectations(t)
		ms.users.AssertExpectations(t)
		ms.files.AssertExpectations(t)
	})
	return ms
}

func bearer(t *testing.T, openid string) string {
	t.Helper()
	token, err := middleware.NewAuthenticator(testSecret).IssueToken(openid, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON sends body as JSON with an optional Authorization header and decodes the reply.
func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}
