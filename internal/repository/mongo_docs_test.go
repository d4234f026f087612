package repository

import (
	"testing"
	"time"

	"postboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func decodePostDocument(t *testing.T, raw bson.M) *models.Post {
	t.Helper()
	data, err := bson.Marshal(raw)
	require.NoError(t, err)
	var doc PostDocument
	require.NoError(t, bson.Unmarshal(data, &doc))
	return documentToPost(&doc)
}

func TestDocumentToPost_NormalizesDriftedShapes(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	tests := []struct {
		name      string
		doc       bson.M
		images    models.ImageList
		originals models.ImageList
	}{
		{
			name:      "arrays",
			doc:       bson.M{"_id": "p1", "imageUrls": bson.A{"cloud://b/1.png", " ", "cloud://b/2.png"}, "originalImageUrls": bson.A{"cloud://b/1o.png"}},
			images:    models.ImageList{"cloud://b/1.png", "cloud://b/2.png"},
			originals: models.ImageList{"cloud://b/1o.png"},
		},
		{
			name:      "json string",
			doc:       bson.M{"_id": "p2", "imageUrls": `["cloud://b/1.png"]`},
			images:    models.ImageList{"cloud://b/1.png"},
			originals: models.ImageList{},
		},
		{
			name:      "comma string",
			doc:       bson.M{"_id": "p3", "imageUrls": "cloud://b/1.png,cloud://b/2.png"},
			images:    models.ImageList{"cloud://b/1.png", "cloud://b/2.png"},
			originals: models.ImageList{},
		},
		{
			name:      "legacy scalar only",
			doc:       bson.M{"_id": "p4", "imageUrl": "cloud://b/old.png", "originalImageUrl": "cloud://b/old-o.png"},
			images:    models.ImageList{"cloud://b/old.png"},
			originals: models.ImageList{"cloud://b/old-o.png"},
		},
		{
			name:      "missing",
			doc:       bson.M{"_id": "p5"},
			images:    models.ImageList{},
			originals: models.ImageList{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.doc["createTime"] = now
			post := decodePostDocument(t, tt.doc)
			assert.Equal(t, tt.images, post.ImageURLs)
			assert.Equal(t, tt.originals, post.OriginalImageURLs)
			assert.True(t, now.Equal(post.CreatedAt))
		})
	}
}

func TestPostToDocument_WritesArrays(t *testing.T) {
	doc := postToDocument(&models.Post{ID: "p1", OpenID: "alice"})
	assert.NotNil(t, doc.ImageURLs)
	assert.NotNil(t, doc.OriginalImageURLs)

	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, bson.A{}, raw["imageUrls"])
	assert.Equal(t, "alice", raw["_openid"])
	assert.NotContains(t, raw, "imageUrl")
}

func TestDocumentToUser_FallsBackToID(t *testing.T) {
	u := documentToUser(&UserDocument{ID: "alice", NickName: "A"})
	assert.Equal(t, "alice", u.OpenID)
	assert.Equal(t, "A", u.NickName)
}

func TestProfileSet_OnlyNonEmptyFields(t *testing.T) {
	now := time.Now()
	set := profileSet(models.ProfileUpdate{Bio: "hi"}, now)
	assert.Equal(t, bson.M{"bio": "hi", "updateTime": now}, set)
}

func TestCommentDocument_RoundTrip(t *testing.T) {
	c := &models.Comment{ID: "c1", PostID: "p1", ParentID: "c0", OpenID: "bob", Content: "x", Likes: 2}
	assert.Equal(t, c, documentToComment(commentToDocument(c)))
}

func TestCountByPostsPipeline(t *testing.T) {
	pipeline := countByPostsPipeline([]string{"p1", "p2"})
	require.Len(t, pipeline, 2)
	assert.Equal(t, bson.M{"postId": bson.M{"$in": []string{"p1", "p2"}}}, pipeline[0]["$match"])
	assert.Equal(t, "$postId", pipeline[1]["$group"].(bson.M)["_id"])

	assert.Equal(t, "$commentId", countByFieldPipeline("commentId")[0]["$group"].(bson.M)["_id"])
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 3, toInt(int32(3)))
	assert.Equal(t, 4, toInt(int64(4)))
	assert.Equal(t, 5, toInt(5.0))
	assert.Equal(t, 0, toInt(nil))
}
