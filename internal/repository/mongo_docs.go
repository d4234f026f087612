package repository

import (
	"time"

	"postboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// PostDocument is the stored shape of a post. Image fields are decoded raw
// because historical documents hold strings where arrays are expected.
type PostDocument struct {
	ID                string        `bson:"_id"`
	OpenID            string        `bson:"_openid"`
	Title             string        `bson:"title"`
	Content           string        `bson:"content"`
	ImageURL          string        `bson:"imageUrl,omitempty"`
	ImageURLs         bson.RawValue `bson:"imageUrls"`
	OriginalImageURL  string        `bson:"originalImageUrl,omitempty"`
	OriginalImageURLs bson.RawValue `bson:"originalImageUrls"`
	Votes             int           `bson:"votes"`
	CreateTime        time.Time     `bson:"createTime"`
}

// newPostDocument is the write shape; lists are always arrays.
type newPostDocument struct {
	ID                string    `bson:"_id"`
	OpenID            string    `bson:"_openid"`
	Title             string    `bson:"title"`
	Content           string    `bson:"content"`
	ImageURL          string    `bson:"imageUrl,omitempty"`
	ImageURLs         []string  `bson:"imageUrls"`
	OriginalImageURL  string    `bson:"originalImageUrl,omitempty"`
	OriginalImageURLs []string  `bson:"originalImageUrls"`
	Votes             int       `bson:"votes"`
	CreateTime        time.Time `bson:"createTime"`
}

func postToDocument(p *models.Post) *newPostDocument {
	return &newPostDocument{
		ID:                p.ID,
		OpenID:            p.OpenID,
		Title:             p.Title,
		Content:           p.Content,
		ImageURL:          p.ImageURL,
		ImageURLs:         models.NormalizeImageList([]string(p.ImageURLs)),
		OriginalImageURL:  p.OriginalImageURL,
		OriginalImageURLs: models.NormalizeImageList([]string(p.OriginalImageURLs)),
		Votes:             p.Votes,
		CreateTime:        p.CreatedAt,
	}
}

func documentToPost(doc *PostDocument) *models.Post {
	p := &models.Post{
		ID:                doc.ID,
		OpenID:            doc.OpenID,
		Title:             doc.Title,
		Content:           doc.Content,
		ImageURL:          doc.ImageURL,
		ImageURLs:         models.NormalizeImageList(rawImages(doc.ImageURLs)),
		OriginalImageURL:  doc.OriginalImageURL,
		OriginalImageURLs: models.NormalizeImageList(rawImages(doc.OriginalImageURLs)),
		Votes:             doc.Votes,
		CreatedAt:         doc.CreateTime,
	}
	p.Normalize()
	return p
}

// rawImages unwraps a stored image field into a value NormalizeImageList accepts.
func rawImages(v bson.RawValue) any {
	switch v.Type {
	case bsontype.Array:
		var items []interface{}
		if err := v.Unmarshal(&items); err != nil {
			return nil
		}
		return items
	case bsontype.String:
		return v.StringValue()
	default:
		return nil
	}
}

// CommentDocument is the stored shape of a comment.
type CommentDocument struct {
	ID         string    `bson:"_id"`
	PostID     string    `bson:"postId"`
	ParentID   string    `bson:"parentId,omitempty"`
	OpenID     string    `bson:"_openid"`
	Content    string    `bson:"content"`
	Likes      int       `bson:"likes"`
	CreateTime time.Time `bson:"createTime"`
}

func commentToDocument(c *models.Comment) *CommentDocument {
	return &CommentDocument{
		ID:         c.ID,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		OpenID:     c.OpenID,
		Content:    c.Content,
		Likes:      c.Likes,
		CreateTime: c.CreatedAt,
	}
}

func documentToComment(doc *CommentDocument) *models.Comment {
	return &models.Comment{
		ID:        doc.ID,
		PostID:    doc.PostID,
		ParentID:  doc.ParentID,
		OpenID:    doc.OpenID,
		Content:   doc.Content,
		Likes:     doc.Likes,
		CreatedAt: doc.CreateTime,
	}
}

// UserDocument is the stored shape of a user; _id equals _openid.
type UserDocument struct {
	ID         string    `bson:"_id"`
	OpenID     string    `bson:"_openid"`
	NickName   string    `bson:"nickName"`
	AvatarURL  string    `bson:"avatarUrl"`
	Birthday   string    `bson:"birthday,omitempty"`
	Bio        string    `bson:"bio,omitempty"`
	CreateTime time.Time `bson:"createTime"`
	UpdateTime time.Time `bson:"updateTime"`
}

func documentToUser(doc *UserDocument) *models.User {
	openid := doc.OpenID
	if openid == "" {
		openid = doc.ID
	}
	return &models.User{
		OpenID:    openid,
		NickName:  doc.NickName,
		AvatarURL: doc.AvatarURL,
		Birthday:  doc.Birthday,
		Bio:       doc.Bio,
		CreatedAt: doc.CreateTime,
		UpdatedAt: doc.UpdateTime,
	}
}

// profileSet maps a profile update onto document fields.
func profileSet(update models.ProfileUpdate, now time.Time) bson.M {
	set := bson.M{"updateTime": now}
	if update.NickName != "" {
		set["nickName"] = update.NickName
	}
	if update.AvatarURL != "" {
		set["avatarUrl"] = update.AvatarURL
	}
	if update.Birthday != "" {
		set["birthday"] = update.Birthday
	}
	if update.Bio != "" {
		set["bio"] = update.Bio
	}
	return set
}

// VoteDocument is a votes_log entry.
type VoteDocument struct {
	ID         string    `bson:"_id"`
	OpenID     string    `bson:"_openid"`
	PostID     string    `bson:"postId"`
	CreateTime time.Time `bson:"createTime"`
}

// LikeDocument is a comment_likes entry.
type LikeDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	CommentID  string    `bson:"commentId"`
	CreateTime time.Time `bson:"createTime"`
}

// countByPostsPipeline groups comments of the given posts by post.
func countByPostsPipeline(postIDs []string) []bson.M {
	return []bson.M{
		{"$match": bson.M{"postId": bson.M{"$in": postIDs}}},
		{"$group": bson.M{"_id": "$postId", "count": bson.M{"$sum": 1}}},
	}
}

// countByFieldPipeline groups an entire log collection by field.
func countByFieldPipeline(field string) []bson.M {
	return []bson.M{
		{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
	}
}

// driftedImagesFilter matches posts whose image lists are stored as strings.
func driftedImagesFilter() bson.M {
	return bson.M{"$or": []bson.M{
		{"imageUrls": bson.M{"$type": "string"}},
		{"originalImageUrls": bson.M{"$type": "string"}},
		{"imageUrls": bson.M{"$exists": false}},
	}}
}
