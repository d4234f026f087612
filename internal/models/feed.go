package models

import "time"

// Placeholder author shown when the owner of a post or comment has no user record.
const (
	DefaultAuthorName   = "匿名用户"
	DefaultAuthorAvatar = ""
)

// Author is the display identity joined onto posts and comments.
type Author struct {
	Name   string
	Avatar string
}

// AuthorOf returns the display identity for u, or the placeholder when u is nil.
func AuthorOf(u *User) Author {
	if u == nil {
		return Author{Name: DefaultAuthorName, Avatar: DefaultAuthorAvatar}
	}
	name := u.NickName
	if name == "" {
		name = DefaultAuthorName
	}
	return Author{Name: name, Avatar: u.AvatarURL}
}

// PostView is a post decorated for the caller.
type PostView struct {
	Post
	AuthorName   string     `json:"authorName"`
	AuthorAvatar string     `json:"authorAvatar"`
	CommentCount int        `json:"commentCount"`
	IsVoted      bool       `json:"isVoted"`
	IsAuthor     *bool      `json:"isAuthor,omitempty"`
	LikeTime     *time.Time `json:"likeTime,omitempty"`
}

// CommentView is a comment decorated for the caller. Top-level comments carry
// their replies in ascending creation order.
type CommentView struct {
	Comment
	AuthorName   string         `json:"authorName"`
	AuthorAvatar string         `json:"authorAvatar"`
	Liked        bool           `json:"liked"`
	Replies      []*CommentView `json:"replies"`
}

// CommentThread is the assembled comment section of a post.
type CommentThread struct {
	Comments  []*CommentView `json:"comments"`
	UserLikes []string       `json:"userLikes"`
}

// UserInfo is the public part of a profile.
type UserInfo struct {
	NickName  string `json:"nickName"`
	AvatarURL string `json:"avatarUrl"`
	Birthday  string `json:"birthday"`
	Bio       string `json:"bio"`
}

// ProfileFeed is the caller's own profile plus a page of their posts.
type ProfileFeed struct {
	UserInfo UserInfo    `json:"userInfo"`
	Posts    []*PostView `json:"posts"`
}

// VoteResult is the outcome of a vote toggle.
type VoteResult struct {
	Votes   int  `json:"votes"`
	IsVoted bool `json:"isVoted"`
}

// LikeResult is the outcome of a comment like toggle.
type LikeResult struct {
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}
