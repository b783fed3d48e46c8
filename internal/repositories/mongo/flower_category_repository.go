package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

type FlowerCategoryRepository struct {
	links *mongo.Collection
}

var _ repositories.FlowerCategoryRepository = (*FlowerCategoryRepository)(nil)

func NewFlowerCategoryRepository(db *mongo.Database) *FlowerCategoryRepository {
	return &FlowerCategoryRepository{links: db.Collection(flowerCategoriesCollection)}
}

func (r *FlowerCategoryRepository) Replace(ctx context.Context, flowerID string, categoryIDs []string) error {
	const op = "flowercategories.replace"
	fid, err := objectID(op, flowerID)
	if err != nil {
		return err
	}
	if _, err := r.links.DeleteMany(ctx, bson.M{"flowerId": fid}); err != nil {
		return pmongo.WrapError(op, err)
	}
	cids := objectIDs(categoryIDs)
	if len(cids) == 0 {
		return nil
	}
	docs := make([]any, 0, len(cids))
	for _, cid := range cids {
		docs = append(docs, flowerCategoryDocument{ID: primitive.NewObjectID(), FlowerID: fid, CategoryID: cid})
	}
	if _, err := r.links.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return pmongo.WrapError(op, err)
	}
	return nil
}

func (r *FlowerCategoryRepository) CategoryIDs(ctx context.Context, flowerID string) ([]string, error) {
	const op = "flowercategories.list"
	fid, err := primitive.ObjectIDFromHex(flowerID)
	if err != nil {
		return nil, nil
	}
	cursor, err := r.links.Find(ctx, bson.M{"flowerId": fid}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var docs []flowerCategoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.CategoryID)
	}
	return hexIDs(ids), nil
}
