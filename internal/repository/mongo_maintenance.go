package repository

import (
	"context"
	"fmt"

	"postboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoMaintenance struct {
	db *mongo.Database
}

func (m *mongoMaintenance) Clear(ctx context.Context, collection string) (int64, error) {
	if !isKnownCollection(collection) {
		return 0, fmt.Errorf("unknown collection %q", collection)
	}
	res, err := m.db.Collection(collection).DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return res.DeletedCount, nil
}

func (m *mongoMaintenance) NormalizeImageLists(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	posts := m.db.Collection(CollectionPosts)

	cursor, err := posts.Find(ctx, driftedImagesFilter(), options.Find().SetBatchSize(int32(batchSize)))
	if err != nil {
		return 0, fmt.Errorf("failed to find drifted posts: %w", err)
	}
	defer cursor.Close(ctx)

	fixed := 0
	writes := make([]mongo.WriteModel, 0, batchSize)
	flush := func() error {
		if len(writes) == 0 {
			return nil
		}
		res, err := posts.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return fmt.Errorf("failed to rewrite image lists: %w", err)
		}
		fixed += int(res.ModifiedCount)
		writes = writes[:0]
		return nil
	}

	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			return fixed, fmt.Errorf("failed to decode post: %w", err)
		}
		post := documentToPost(&doc)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": post.ID}).
			SetUpdate(bson.M{"$set": imageListsOf(post)}))
		if len(writes) >= batchSize {
			if err := flush(); err != nil {
				return fixed, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return fixed, err
	}
	return fixed, flush()
}

func (m *mongoMaintenance) ReconcileCounters(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	n, err := m.reconcile(ctx, CollectionVotes, "postId", CollectionPosts, "votes")
	if err != nil {
		return report, err
	}
	report.Posts = n

	n, err = m.reconcile(ctx, CollectionLikes, "commentId", CollectionComments, "likes")
	if err != nil {
		return report, err
	}
	report.Comments = n
	return report, nil
}

// reconcile sets target.counter to the number of log entries referencing each target.
func (m *mongoMaintenance) reconcile(ctx context.Context, logColl, refField, targetColl, counter string) (int64, error) {
	counts := make(map[string]int)
	if err := aggregateCounts(ctx, m.db.Collection(logColl), countByFieldPipeline(refField), counts); err != nil {
		return 0, err
	}

	target := m.db.Collection(targetColl)
	cursor, err := target.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{counter: 1}))
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", targetColl, err)
	}
	defer cursor.Close(ctx)

	var writes []mongo.WriteModel
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return 0, err
		}
		id, _ := doc["_id"].(string)
		want := counts[id]
		if toInt(doc[counter]) == want {
			continue
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{counter: want}}))
	}
	if err := cursor.Err(); err != nil {
		return 0, err
	}
	if len(writes) == 0 {
		return 0, nil
	}

	res, err := target.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile %s: %w", targetColl, err)
	}
	return res.ModifiedCount, nil
}

// EnsureIndexes creates the indexes the feed queries and toggles rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		CollectionPosts: {
			{Keys: bson.D{{Key: "createTime", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "_openid", Value: 1}, {Key: "createTime", Value: -1}}},
		},
		CollectionComments: {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createTime", Value: 1}}},
		},
		CollectionUsers: {
			{Keys: bson.D{{Key: "_openid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionVotes: {
			{Keys: bson.D{{Key: "_openid", Value: 1}, {Key: "postId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "_openid", Value: 1}, {Key: "createTime", Value: -1}}},
		},
		CollectionLikes: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "commentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// imageListsOf is the array form written back for a post.
func imageListsOf(p *models.Post) bson.M {
	return bson.M{
		"imageUrls":         []string(p.ImageURLs),
		"originalImageUrls": []string(p.OriginalImageURLs),
	}
}
