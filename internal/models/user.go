package models

import "time"

// User is keyed by the caller identity issued by the platform.
type User struct {
	OpenID    string    `gorm:"column:openid;primaryKey;size:128" json:"_openid"`
	NickName  string    `gorm:"column:nick_name;size:64" json:"nickName"`
	AvatarURL string    `gorm:"column:avatar_url;size:512" json:"avatarUrl"`
	Birthday  string    `gorm:"size:32" json:"birthday"`
	Bio       string    `gorm:"type:text" json:"bio"`
	CreatedAt time.Time `json:"createTime"`
	UpdatedAt time.Time `json:"updateTime"`
}

// ProfileUpdate lists the profile fields to write. Empty fields are left untouched.
type ProfileUpdate struct {
	NickName  string
	AvatarURL string
	Birthday  string
	Bio       string
}

// Empty reports whether the update would write nothing.
func (u ProfileUpdate) Empty() bool {
	return u.NickName == "" && u.AvatarURL == "" && u.Birthday == "" && u.Bio == ""
}

// Fields returns the column/value pairs to write, keyed by column name.
func (u ProfileUpdate) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if u.NickName != "" {
		fields["nick_name"] = u.NickName
	}
	if u.AvatarURL != "" {
		fields["avatar_url"] = u.AvatarURL
	}
	if u.Birthday != "" {
		fields["birthday"] = u.Birthday
	}
	if u.Bio != "" {
		fields["bio"] = u.Bio
	}
	return fields
}

// Vote records that a user voted for a post. At most one per (voter, post).
type Vote struct {
	ID        string    `gorm:"primaryKey;size:64" json:"_id"`
	OpenID    string    `gorm:"column:openid;size:128;not null;uniqueIndex:idx_votes_log_voter_post,priority:1" json:"_openid"`
	PostID    string    `gorm:"column:post_id;size:64;not null;uniqueIndex:idx_votes_log_voter_post,priority:2" json:"postId"`
	CreatedAt time.Time `gorm:"index" json:"createTime"`
}

// TableName keeps the collection name shared with the document store.
func (Vote) TableName() string {
	return "votes_log"
}
