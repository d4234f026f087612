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

// inTransaction runs fn inside a multi-document transaction.
func inTransaction(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)
	return session.WithTransaction(ctx, fn)
}

// incAndRead applies $inc to field and returns the updated value.
func incAndRead(sc mongo.SessionContext, coll *mongo.Collection, id, field string, delta int) (int, error) {
	var doc bson.M
	err := coll.FindOneAndUpdate(sc,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{field: 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return toInt(doc[field]), nil
}

func readCounter(sc mongo.SessionContext, coll *mongo.Collection, id, field string) (int, error) {
	var doc bson.M
	err := coll.FindOne(sc, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{field: 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return toInt(doc[field]), nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

type mongoVoteRepository struct {
	db *mongo.Database
}

func (r *mongoVoteRepository) Toggle(ctx context.Context, openid, postID string) (models.VoteResult, error) {
	posts := r.db.Collection(CollectionPosts)
	votes := r.db.Collection(CollectionVotes)

	out, err := inTransaction(ctx, r.db, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := readCounter(sc, posts, postID, "votes"); err != nil {
			return nil, err
		}

		res, err := votes.DeleteOne(sc, bson.M{"_openid": openid, "postId": postID})
		if err != nil {
			return nil, err
		}

		delta := -1
		if res.DeletedCount == 0 {
			doc := VoteDocument{ID: models.NewID(), OpenID: openid, PostID: postID, CreateTime: time.Now()}
			if _, err := votes.InsertOne(sc, doc); err != nil {
				return nil, err
			}
			delta = 1
		}

		count, err := incAndRead(sc, posts, postID, "votes", delta)
		if err != nil {
			return nil, err
		}
		return models.VoteResult{Votes: count, IsVoted: delta > 0}, nil
	})
	if err != nil {
		return models.VoteResult{}, err
	}
	return out.(models.VoteResult), nil
}

func (r *mongoVoteRepository) VotedPostIDs(ctx context.Context, openid string, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if openid == "" || len(postIDs) == 0 {
		return out, nil
	}

	cursor, err := r.db.Collection(CollectionVotes).Find(ctx,
		bson.M{"_openid": openid, "postId": bson.M{"$in": postIDs}},
		options.Find().SetProjection(bson.M{"postId": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find votes: %w", err)
	}
	var docs []VoteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode votes: %w", err)
	}
	for _, d := range docs {
		out[d.PostID] = true
	}
	return out, nil
}

func (r *mongoVoteRepository) ListByVoter(ctx context.Context, openid string) ([]*models.Vote, error) {
	cursor, err := r.db.Collection(CollectionVotes).Find(ctx,
		bson.M{"_openid": openid},
		options.Find().SetSort(newestFirstDoc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find votes: %w", err)
	}
	var docs []VoteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode votes: %w", err)
	}
	votes := make([]*models.Vote, 0, len(docs))
	for _, d := range docs {
		votes = append(votes, &models.Vote{ID: d.ID, OpenID: d.OpenID, PostID: d.PostID, CreatedAt: d.CreateTime})
	}
	return votes, nil
}

type mongoLikeRepository struct {
	db *mongo.Database
}

func (r *mongoLikeRepository) SetLiked(ctx context.Context, openid, commentID string, liked bool) (models.LikeResult, error) {
	comments := r.db.Collection(CollectionComments)
	likes := r.db.Collection(CollectionLikes)

	out, err := inTransaction(ctx, r.db, func(sc mongo.SessionContext) (interface{}, error) {
		current, err := readCounter(sc, comments, commentID, "likes")
		if err != nil {
			return nil, err
		}

		filter := bson.M{"userId": openid, "commentId": commentID}
		delta := 0
		if liked {
			n, err := likes.CountDocuments(sc, filter)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				doc := LikeDocument{ID: models.NewID(), UserID: openid, CommentID: commentID, CreateTime: time.Now()}
				if _, err := likes.InsertOne(sc, doc); err != nil {
					return nil, err
				}
				delta = 1
			}
		} else {
			res, err := likes.DeleteMany(sc, filter)
			if err != nil {
				return nil, err
			}
			delta = -int(res.DeletedCount)
		}

		if delta == 0 {
			return models.LikeResult{Likes: current, Liked: liked}, nil
		}
		count, err := incAndRead(sc, comments, commentID, "likes", delta)
		if err != nil {
			return nil, err
		}
		return models.LikeResult{Likes: count, Liked: liked}, nil
	})
	if err != nil {
		return models.LikeResult{}, err
	}
	return out.(models.LikeResult), nil
}

func (r *mongoLikeRepository) LikedCommentIDs(ctx context.Context, openid string, commentIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(commentIDs))
	if openid == "" || len(commentIDs) == 0 {
		return out, nil
	}

	cursor, err := r.db.Collection(CollectionLikes).Find(ctx,
		bson.M{"userId": openid, "commentId": bson.M{"$in": commentIDs}},
		options.Find().SetProjection(bson.M{"commentId": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find likes: %w", err)
	}
	var docs []LikeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode likes: %w", err)
	}
	for _, d := range docs {
		out[d.CommentID] = true
	}
	return out, nil
}
