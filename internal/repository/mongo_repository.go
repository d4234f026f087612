package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirstDoc = bson.D{{Key: "createTime", Value: -1}, {Key: "_id", Value: -1}}

// NewMongoStore bundles the MongoDB repositories.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:       &mongoUserRepository{users: db.Collection(CollectionUsers)},
		Posts:       &mongoPostRepository{posts: db.Collection(CollectionPosts)},
		Comments:    &mongoCommentRepository{comments: db.Collection(CollectionComments)},
		Votes:       &mongoVoteRepository{db: db},
		Likes:       &mongoLikeRepository{db: db},
		Maintenance: &mongoMaintenance{db: db},
	}
}

type mongoUserRepository struct {
	users *mongo.Collection
}

func (r *mongoUserRepository) GetByOpenID(ctx context.Context, openid string) (*models.User, error) {
	var doc UserDocument
	err := r.users.FindOne(ctx, bson.M{"_openid": openid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return documentToUser(&doc), nil
}

func (r *mongoUserRepository) GetByOpenIDs(ctx context.Context, openids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(openids))
	if len(openids) == 0 {
		return out, nil
	}

	cursor, err := r.users.Find(ctx, bson.M{"_openid": bson.M{"$in": openids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	var docs []UserDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for i := range docs {
		u := documentToUser(&docs[i])
		out[u.OpenID] = u
	}
	return out, nil
}

func (r *mongoUserRepository) Upsert(ctx context.Context, openid, nickName, avatarURL string) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"nickName":   nickName,
			"avatarUrl":  avatarURL,
			"updateTime": now,
		},
		"$setOnInsert": bson.M{"_id": openid, "createTime": now},
	}
	_, err := r.users.UpdateOne(ctx, bson.M{"_openid": openid}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, openid string, update models.ProfileUpdate) error {
	now := time.Now()
	doc := bson.M{
		"$set":         profileSet(update, now),
		"$setOnInsert": bson.M{"_id": openid, "createTime": now},
	}
	_, err := r.users.UpdateOne(ctx, bson.M{"_openid": openid}, doc, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

type mongoPostRepository struct {
	posts *mongo.Collection
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	if _, err := r.posts.InsertOne(ctx, postToDocument(post)); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var doc PostDocument
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return documentToPost(&doc), nil
}

func (r *mongoPostRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Post, error) {
	out := make(map[string]*models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	posts, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		out[p.ID] = p
	}
	return out, nil
}

func (r *mongoPostRepository) List(ctx context.Context, skip, limit int) ([]*models.Post, error) {
	opts := options.Find().SetSort(newestFirstDoc).SetSkip(int64(skip)).SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoPostRepository) ListByOwner(ctx context.Context, openid string, skip, limit int) ([]*models.Post, error) {
	opts := options.Find().SetSort(newestFirstDoc).SetSkip(int64(skip)).SetLimit(int64(limit))
	return r.find(ctx, bson.M{"_openid": openid}, opts)
}

func (r *mongoPostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Post, error) {
	cursor, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %w", err)
	}
	var docs []PostDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	posts := make([]*models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, documentToPost(&docs[i]))
	}
	return posts, nil
}

type mongoCommentRepository struct {
	comments *mongo.Collection
}

func (r *mongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	if _, err := r.comments.InsertOne(ctx, commentToDocument(comment)); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *mongoCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var doc CommentDocument
	err := r.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return documentToComment(&doc), nil
}

func (r *mongoCommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createTime", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.comments.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find comments: %w", err)
	}
	var docs []CommentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	comments := make([]*models.Comment, 0, len(docs))
	for i := range docs {
		comments = append(comments, documentToComment(&docs[i]))
	}
	return comments, nil
}

func (r *mongoCommentRepository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	return out, aggregateCounts(ctx, r.comments, countByPostsPipeline(postIDs), out)
}

// aggregateCounts runs a {_id, count} grouping pipeline into out.
func aggregateCounts(ctx context.Context, coll *mongo.Collection, pipeline []bson.M, out map[string]int) error {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", coll.Name(), err)
	}
	var rows []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return fmt.Errorf("failed to decode %s counts: %w", coll.Name(), err)
	}
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return nil
}
