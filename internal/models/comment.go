package models

import "time"

// Comment is a comment on a post. A non-empty ParentID makes it a reply to a
// top-level comment of the same post; replies are never nested deeper.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:64" json:"_id"`
	PostID    string    `gorm:"column:post_id;size:64;not null;index" json:"postId"`
	ParentID  string    `gorm:"column:parent_id;size:64;index" json:"parentId,omitempty"`
	OpenID    string    `gorm:"column:openid;size:128;not null" json:"_openid"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `gorm:"index" json:"createTime"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}

// Like records that a user liked a comment. At most one per (user, comment).
type Like struct {
	ID        string    `gorm:"primaryKey;size:64" json:"_id"`
	UserID    string    `gorm:"column:user_id;size:128;not null;uniqueIndex:idx_comment_likes_user_comment,priority:1" json:"userId"`
	CommentID string    `gorm:"column:comment_id;size:64;not null;uniqueIndex:idx_comment_likes_user_comment,priority:2" json:"commentId"`
	CreatedAt time.Time `json:"createTime"`
}

// TableName keeps the collection name shared with the document store.
func (Like) TableName() string {
	return "comment_likes"
}
