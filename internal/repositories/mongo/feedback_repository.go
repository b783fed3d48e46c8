package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/flowershop/admin-api/internal/domain"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

// FeedbackRepository reads comments through the order lines they were written on.
type FeedbackRepository struct {
	details *mongo.Collection
}

var _ repositories.FeedbackRepository = (*FeedbackRepository)(nil)

func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{details: db.Collection(orderDetailsCollection)}
}

type feedbackDocument struct {
	Content         string          `bson:"content"`
	NumberOfStars   float64         `bson:"numberOfStars"`
	NumberOfLikes   int             `bson:"numberOfLikes"`
	FeedbackBy      string          `bson:"feedbackBy"`
	CommentDate     time.Time       `bson:"commentDate"`
	ImageVideoFiles []assetDocument `bson:"imageVideoFiles"`
}

// ListByFlower returns non-deleted comments on lines of flowerID, oldest first. The author
// is the user's name, or the raw user id when that user has been deleted.
func (r *FeedbackRepository) ListByFlower(ctx context.Context, flowerID string) ([]domain.Feedback, error) {
	const op = "feedback.by_flower"
	fid, err := primitive.ObjectIDFromHex(flowerID)
	if err != nil {
		return nil, nil
	}
	cursor, err := r.details.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"flowerId": fid}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         commentsCollection,
			"localField":   "_id",
			"foreignField": "orderDetailId",
			"as":           "comments",
		}}},
		{{Key: "$unwind", Value: "$comments"}},
		{{Key: "$match", Value: bson.M{"comments.isDeleted": bson.M{"$ne": true}}}},
		{{Key: "$lookup", Value: bson.M{
			"from": usersCollection,
			"let":  bson.M{"userId": "$comments.userId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$_id", "$$userId"}},
					bson.M{"$eq": bson.A{"$isDeleted", false}},
				}}}},
			},
			"as": "user",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"content":       "$comments.content",
			"numberOfStars": "$comments.numberOfStars",
			"numberOfLikes": "$comments.numberOfLikes",
			"feedbackBy": bson.M{"$cond": bson.M{
				"if":   bson.M{"$eq": bson.A{bson.M{"$size": "$user"}, 0}},
				"then": bson.M{"$toString": "$comments.userId"},
				"else": bson.M{"$arrayElemAt": bson.A{"$user.name", 0}},
			}},
			"commentDate":     "$comments.commentDate",
			"imageVideoFiles": bson.M{"$ifNull": bson.A{"$comments.imageVideoFiles", bson.A{}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "commentDate", Value: 1}}}},
	})
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var docs []feedbackDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	out := make([]domain.Feedback, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.Feedback{
			Content:       doc.Content,
			NumberOfStars: doc.NumberOfStars,
			NumberOfLikes: doc.NumberOfLikes,
			FeedbackBy:    doc.FeedbackBy,
			CommentDate:   doc.CommentDate,
			Media:         toAssets(doc.ImageVideoFiles),
		})
	}
	return out, nil
}
