package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpec names the indexes created on one collection.
type IndexSpec struct {
	Collection string
	Models     []mongo.IndexModel
}

func liveUnique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{
		Keys: keys,
		Options: options.Index().
			SetName(name).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"isDeleted": false}),
	}
}

func plain(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

// Indexes lists every index the repositories rely on. Name uniqueness is only enforced among
// non-deleted documents, matching the soft delete model.
func Indexes() []IndexSpec {
	return []IndexSpec{
		{Collection: flowersCollection, Models: []mongo.IndexModel{
			liveUnique("uniq_live_name", bson.D{{Key: "name", Value: 1}}),
		}},
		{Collection: categoriesCollection, Models: []mongo.IndexModel{
			liveUnique("uniq_live_category_name", bson.D{{Key: "categoryName", Value: 1}}),
		}},
		{Collection: flowerCategoriesCollection, Models: []mongo.IndexModel{
			plain("by_flower", bson.D{{Key: "flowerId", Value: 1}}),
		}},
		{Collection: ordersCollection, Models: []mongo.IndexModel{
			plain("by_status", bson.D{{Key: "status", Value: 1}, {Key: "isDeleted", Value: 1}}),
		}},
		{Collection: orderDetailsCollection, Models: []mongo.IndexModel{
			plain("by_flower", bson.D{{Key: "flowerId", Value: 1}}),
			plain("by_order", bson.D{{Key: "orderId", Value: 1}}),
		}},
		{Collection: commentsCollection, Models: []mongo.IndexModel{
			plain("by_order_detail", bson.D{{Key: "orderDetailId", Value: 1}}),
		}},
		{Collection: usersCollection, Models: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
		}},
		{Collection: accountsCollection, Models: []mongo.IndexModel{
			liveUnique("uniq_live_user", bson.D{{Key: "userId", Value: 1}}),
			liveUnique("uniq_live_username", bson.D{{Key: "username", Value: 1}}),
		}},
	}
}

// EnsureIndexes creates the indexes from Indexes and returns the created index names.
// Existing indexes with the same definition are left alone by the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) ([]string, error) {
	var created []string
	for _, spec := range Indexes() {
		names, err := db.Collection(spec.Collection).Indexes().CreateMany(ctx, spec.Models)
		if err != nil {
			return created, fmt.Errorf("ensure indexes on %s: %w", spec.Collection, err)
		}
		for _, name := range names {
			created = append(created, spec.Collection+"."+name)
		}
	}
	return created, nil
}
