// Package models contains the stored records and assembled read views of the board.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxImagesPerPost is the number of images a single post may reference.
const MaxImagesPerPost = 9

// Post is a published post. Image lists hold file identifiers, never URLs.
type Post struct {
	ID                string    `gorm:"primaryKey;size:64" json:"_id"`
	OpenID            string    `gorm:"column:openid;size:128;not null;index" json:"_openid"`
	Title             string    `gorm:"size:255" json:"title"`
	Content           string    `gorm:"type:text" json:"content"`
	ImageURL          string    `gorm:"column:image_url;size:512" json:"imageUrl,omitempty"`
	ImageURLs         ImageList `gorm:"column:image_urls;type:text" json:"imageUrls"`
	OriginalImageURL  string    `gorm:"column:original_image_url;size:512" json:"originalImageUrl,omitempty"`
	OriginalImageURLs ImageList `gorm:"column:original_image_urls;type:text" json:"originalImageUrls"`
	Votes             int       `gorm:"not null;default:0" json:"votes"`
	CreatedAt         time.Time `gorm:"index" json:"createTime"`
}

// Normalize coerces historical shapes into the current one. It must run after
// every store read: legacy records may only carry the scalar image fields.
func (p *Post) Normalize() {
	p.ImageURLs = NormalizeImageList([]string(p.ImageURLs))
	p.OriginalImageURLs = NormalizeImageList([]string(p.OriginalImageURLs))
	if len(p.ImageURLs) == 0 && strings.TrimSpace(p.ImageURL) != "" {
		p.ImageURLs = ImageList{strings.TrimSpace(p.ImageURL)}
	}
	if len(p.OriginalImageURLs) == 0 && strings.TrimSpace(p.OriginalImageURL) != "" {
		p.OriginalImageURLs = ImageList{strings.TrimSpace(p.OriginalImageURL)}
	}
}

// FileIDs returns every file identifier referenced by the post.
func (p *Post) FileIDs() []string {
	ids := make([]string, 0, len(p.ImageURLs)+len(p.OriginalImageURLs)+2)
	ids = append(ids, p.ImageURLs...)
	ids = append(ids, p.OriginalImageURLs...)
	if p.ImageURL != "" {
		ids = append(ids, p.ImageURL)
	}
	if p.OriginalImageURL != "" {
		ids = append(ids, p.OriginalImageURL)
	}
	return ids
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}
