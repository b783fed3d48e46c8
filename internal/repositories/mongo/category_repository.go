package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/flowershop/admin-api/internal/domain"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

type CategoryRepository struct {
	categories *mongo.Collection
	links      *mongo.Collection
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{
		categories: db.Collection(categoriesCollection),
		links:      db.Collection(flowerCategoriesCollection),
	}
}

func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) (domain.Category, error) {
	doc := categoryDocument{
		ID:           primitive.NewObjectID(),
		CategoryName: category.CategoryName,
		Description:  category.Description,
		Audit:        fromAudit(category.Audit),
	}
	if _, err := r.categories.InsertOne(ctx, doc); err != nil {
		return domain.Category{}, pmongo.WrapError("categories.insert", err)
	}
	return doc.toDomain(), nil
}

func (r *CategoryRepository) Update(ctx context.Context, category domain.Category) error {
	const op = "categories.update"
	id, err := objectID(op, category.ID)
	if err != nil {
		return err
	}
	res, err := r.categories.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{
			"categoryName": category.CategoryName,
			"description":  category.Description,
			"updatedAt":    category.UpdatedAt,
			"updatedBy":    category.UpdatedBy,
		}},
	)
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound(op)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	const op = "categories.get"
	id, err := objectID(op, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	var doc categoryDocument
	if err := r.categories.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&doc); err != nil {
		return domain.Category{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *CategoryRepository) FindByIDs(ctx context.Context, categoryIDs []string) ([]domain.Category, error) {
	const op = "categories.find_many"
	ids := objectIDs(categoryIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.categories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false})
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var docs []categoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	out := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (r *CategoryRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	filter := bson.M{"categoryName": name, "isDeleted": false}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	n, err := r.categories.CountDocuments(ctx, filter)
	if err != nil {
		return false, pmongo.WrapError("categories.name_taken", err)
	}
	return n > 0, nil
}

func (r *CategoryRepository) SoftDelete(ctx context.Context, categoryID string, stamp repositories.SoftDelete) error {
	const op = "categories.delete"
	id, err := objectID(op, categoryID)
	if err != nil {
		return err
	}
	res, err := r.categories.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		stampUpdate(stamp.Actor, stamp.At, bson.M{"isDeleted": true}),
	)
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound(op)
	}
	return nil
}

func (r *CategoryRepository) SoftDeleteMany(ctx context.Context, categoryIDs []string, stamp repositories.SoftDelete) (int64, error) {
	ids := objectIDs(categoryIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.categories.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false},
		stampUpdate(stamp.Actor, stamp.At, bson.M{"isDeleted": true}),
	)
	if err != nil {
		return 0, pmongo.WrapError("categories.delete_many", err)
	}
	return res.ModifiedCount, nil
}

func (r *CategoryRepository) List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Category], error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: notDeleted}},
		{{Key: "$match", Value: keywordMatch(query.Keyword, "categoryName", "description")}},
	}
	docs, total, err := aggregatePage[categoryDocument](ctx, "categories.list", r.categories, pipeline, query)
	if err != nil {
		return domain.Page[domain.Category]{}, err
	}
	items := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return domain.Page[domain.Category]{Items: items, Total: total}, nil
}

// ListForFlower walks the flowercategories links of flowerID, skipping deleted categories.
func (r *CategoryRepository) ListForFlower(ctx context.Context, flowerID string) ([]domain.CategoryRef, error) {
	const op = "categories.for_flower"
	id, err := primitive.ObjectIDFromHex(flowerID)
	if err != nil {
		return nil, nil
	}
	cursor, err := r.links.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"flowerId": id}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         categoriesCollection,
			"localField":   "categoryId",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$unwind", Value: "$category"}},
		{{Key: "$match", Value: bson.M{"category.isDeleted": false}}},
		{{Key: "$project", Value: bson.M{"_id": "$category._id", "categoryName": "$category.categoryName"}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var rows []struct {
		ID           primitive.ObjectID `bson:"_id"`
		CategoryName string             `bson:"categoryName"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	refs := make([]domain.CategoryRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, domain.CategoryRef{ID: row.ID.Hex(), CategoryName: row.CategoryName})
	}
	return refs, nil
}
