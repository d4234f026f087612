package server

import (
	"errors"
	"net/http"
	"testing"

	"postboard/internal/models"
	"postboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProtectedRoutesRequireToken(t *testing.T) {
	ms := newMockedServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/posts"},
		{http.MethodDelete, "/api/posts/p1"},
		{http.MethodPost, "/api/posts/p1/vote"},
		{http.MethodPost, "/api/posts/p1/comments"},
		{http.MethodPost, "/api/comments/c1/like"},
		{http.MethodPost, "/api/users"},
		{http.MethodPut, "/api/users/me"},
		{http.MethodPatch, "/api/users/me/profile"},
		{http.MethodGet, "/api/users/me/profile"},
		{http.MethodGet, "/api/users/me/liked-posts"},
		{http.MethodPost, "/api/files"},
		{http.MethodPost, "/api/files/compress"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			status, body := doJSON(t, ms.app, r.method, r.path, "", map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, models.CodeUnauthorized, body["code"])
		})
	}
}

func TestListPosts(t *testing.T) {
	ms := newMockedServer(t)
	ms.feed.On("ListPosts", mock.Anything, "", service.Page{Skip: 0, Limit: 0}).
		Return([]*models.PostView{{Post: models.Post{ID: "p1"}, AuthorName: "A"}}, nil).Once()
	ms.feed.On("ListPosts", mock.Anything, "bob", service.Page{Skip: 10, Limit: 5}).
		Return([]*models.PostView{}, nil).Once()

	status, body := doJSON(t, ms.app, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	posts := body["posts"].([]any)
	assert.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].(map[string]any)["_id"])

	status, body = doJSON(t, ms.app, http.MethodGet, "/api/posts?skip=10&limit=5", bearer(t, "bob"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["posts"])
}

func TestListPosts_InternalErrorHidesCause(t *testing.T) {
	ms := newMockedServer(t)
	ms.feed.On("ListPosts", mock.Anything, "", mock.Anything).
		Return(nil, models.NewInternalError(errors.New("dial tcp: connection refused")))

	status, body := doJSON(t, ms.app, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, models.CodeInternal, body["code"])
	assert.NotContains(t, body, "error")
}

func TestGetPost(t *testing.T) {
	ms := newMockedServer(t)
	yes := true
	ms.feed.On("GetPostDetail", mock.Anything, "alice", "p1").
		Return(&models.PostView{Post: models.Post{ID: "p1"}, IsAuthor: &yes}, nil)
	ms.feed.On("GetPostDetail", mock.Anything, "", "missing").
		Return(nil, models.NewNotFoundError("Post", "missing"))

	status, body := doJSON(t, ms.app, http.MethodGet, "/api/posts/p1", bearer(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["post"].(map[string]any)["isAuthor"])

	status, body = doJSON(t, ms.app, http.MethodGet, "/api/posts/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, body["code"])
}

func TestGetComments(t *testing.T) {
	ms := newMockedServer(t)
	ms.feed.On("GetComments", mock.Anything, "", "p1", service.Page{Limit: 2}).
		Return(&models.CommentThread{Comments: []*models.CommentView{}, UserLikes: []string{}}, nil)

	status, body := doJSON(t, ms.app, http.MethodGet, "/api/posts/p1/comments?limit=2", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["comments"])
	assert.Equal(t, []any{}, body["userLikes"])
}

func TestCreatePost(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func(ms *mockedServer)
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]any{"content": "body", "imageUrls": []string{"cloud://b/1.jpg"}},
			mockSetup: func(ms *mockedServer) {
				ms.posts.On("CreatePost", mock.Anything, service.CreatePostInput{
					OpenID:    "alice",
					Content:   "body",
					ImageURLs: []string{"cloud://b/1.jpg"},
				}).Return("new-id", nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Legacy comma string",
			body: map[string]any{"content": "body", "imageUrls": "cloud://b/1.jpg,cloud://b/2.jpg"},
			mockSetup: func(ms *mockedServer) {
				ms.posts.On("CreatePost", mock.Anything, mock.MatchedBy(func(in service.CreatePostInput) bool {
					return len(in.ImageURLs) == 2
				})).Return("new-id", nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Validation",
			body: map[string]any{"title": "T"},
			mockSetup: func(ms *mockedServer) {
				ms.posts.On("CreatePost", mock.Anything, mock.Anything).
					Return("", models.NewValidationError("请输入正文内容"))
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newMockedServer(t)
			tt.mockSetup(ms)
			status, body := doJSON(t, ms.app, http.MethodPost, "/api/posts", bearer(t, "alice"), tt.body)
			assert.Equal(t, tt.expectedStatus, status)
			if status == http.StatusCreated {
				assert.Equal(t, "new-id", body["postId"])
			}
		})
	}
}

func TestCreatePost_MalformedBody(t *testing.T) {
	ms := newMockedServer(t)
	status, body := doJSON(t, ms.app, http.MethodPost, "/api/posts", bearer(t, "alice"), []int{1, 2})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["message"])
}

func TestDeletePost_Forbidden(t *testing.T) {
	ms := newMockedServer(t)
	ms.posts.On("DeletePost", mock.Anything, service.DeletePostInput{OpenID: "mallory", PostID: "p1"}).
		Return(models.NewForbiddenError("权限不足，无法删除他人帖子"))

	status, body := doJSON(t, ms.app, http.MethodDelete, "/api/posts/p1", bearer(t, "mallory"), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "权限不足，无法删除他人帖子", body["message"])
	assert.Equal(t, models.CodeForbidden, body["code"])
}

func TestVotePost(t *testing.T) {
	ms := newMockedServer(t)
	ms.posts.On("Vote", mock.Anything, "bob", "p1").Return(models.VoteResult{Votes: 3, IsVoted: true}, nil)

	status, body := doJSON(t, ms.app, http.MethodPost, "/api/posts/p1/vote", bearer(t, "bob"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["votes"])
	assert.Equal(t, true, body["isVoted"])
}

func TestAddComment_ReplyToAlias(t *testing.T) {
	ms := newMockedServer(t)
	ms.comments.On("AddComment", mock.Anything, service.AddCommentInput{
		OpenID: "bob", PostID: "p1", Content: "hi", ParentID: "c0",
	}).Return("c9", nil)

	status, body := doJSON(t, ms.app, http.MethodPost, "/api/posts/p1/comments", bearer(t, "bob"),
		map[string]any{"content": "hi", "replyTo": "c0"})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "c9", body["commentId"])
}

func TestLikeComment_PassesDesiredState(t *testing.T) {
	ms := newMockedServer(t)
	ms.comments.On("LikeComment", mock.Anything, service.LikeCommentInput{OpenID: "bob", CommentID: "c1", Liked: false}).
		Return(models.LikeResult{Likes: 0, Liked: false}, nil)

	status, body := doJSON(t, ms.app, http.MethodPost, "/api/comments/c1/like", bearer(t, "bob"),
		map[string]any{"isLiked": false})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["likes"])
	assert.Equal(t, false, body["liked"])
}

func TestUpsertUser_AvatarAliases(t *testing.T) {
	ms := newMockedServer(t)
	ms.users.On("Upsert", mock.Anything, service.UpsertUserInput{OpenID: "bob", NickName: "Bob", AvatarURL: "cloud://b/a.png"}).
		Return(nil).Twice()

	status, _ := doJSON(t, ms.app, http.MethodPost, "/api/users", bearer(t, "bob"),
		map[string]any{"nickName": "Bob", "avatarFileID": "cloud://b/a.png"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, ms.app, http.MethodPut, "/api/users/me", bearer(t, "bob"),
		map[string]any{"nickName": "Bob", "avatarUrl": "cloud://b/a.png", "_openid": "mallory"})
	assert.Equal(t, http.StatusOK, status)
}

func TestUpdateProfile(t *testing.T) {
	ms := newMockedServer(t)
	ms.users.On("UpdateProfile", mock.Anything, "bob", models.ProfileUpdate{Bio: "hi"}).Return(nil)
	ms.users.On("UpdateProfile", mock.Anything, "bob", models.ProfileUpdate{}).
		Return(models.NewValidationError("没有需要更新的内容"))

	status, _ := doJSON(t, ms.app, http.MethodPatch, "/api/users/me/profile", bearer(t, "bob"), map[string]any{"bio": "hi"})
	assert.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, ms.app, http.MethodPatch, "/api/users/me/profile", bearer(t, "bob"), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "没有需要更新的内容", body["message"])
}

func TestGetProfileAndLikedPosts(t *testing.T) {
	ms := newMockedServer(t)
	ms.feed.On("GetProfile", mock.Anything, "bob", service.Page{}).
		Return(&models.ProfileFeed{UserInfo: models.UserInfo{NickName: "Bob"}, Posts: []*models.PostView{}}, nil)
	ms.feed.On("GetLikedPosts", mock.Anything, "bob", service.Page{Limit: 3}).
		Return([]*models.PostView{}, nil)

	status, body := doJSON(t, ms.app, http.MethodGet, "/api/users/me/profile", bearer(t, "bob"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bob", body["userInfo"].(map[string]any)["nickName"])

	status, body = doJSON(t, ms.app, http.MethodGet, "/api/users/me/liked-posts?limit=3", bearer(t, "bob"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["posts"])
}

func TestUploadAndCompress(t *testing.T) {
	ms := newMockedServer(t)
	ms.files.On("Upload", mock.Anything, service.UploadInput{OpenID: "bob", CloudPath: "a.png", FileContent: "aGk="}).
		Return(&service.StoredFile{FileID: "cloud://test/a.png", CloudPath: "a.png"}, nil)
	ms.files.On("Compress", mock.Anything, "bob", "cloud://test/a.png").
		Return(&service.StoredFile{FileID: "cloud://test/compressed/a.jpg", CloudPath: "compressed/a.jpg"}, nil)

	status, body := doJSON(t, ms.app, http.MethodPost, "/api/files", bearer(t, "bob"),
		map[string]any{"cloudPath": "a.png", "fileContent": "aGk="})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "cloud://test/a.png", body["fileID"])

	status, body = doJSON(t, ms.app, http.MethodPost, "/api/files/compress", bearer(t, "bob"),
		map[string]any{"fileID": "cloud://test/a.png"})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "compressed/a.jpg", body["cloudPath"])
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	ms := newMockedServer(t)
	status, body := doJSON(t, ms.app, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, models.CodeNotFound, body["code"])
}

func TestLivenessCheck(t *testing.T) {
	ms := newMockedServer(t)
	status, body := doJSON(t, ms.app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["status"])
}
