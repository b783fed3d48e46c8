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

// FlowerRepository stores flowers in the "flowers" collection.
type FlowerRepository struct {
	flowers *mongo.Collection
}

var _ repositories.FlowerRepository = (*FlowerRepository)(nil)

// NewFlowerRepository binds the repository to db.
func NewFlowerRepository(db *mongo.Database) *FlowerRepository {
	return &FlowerRepository{flowers: db.Collection(flowersCollection)}
}

func (r *FlowerRepository) Insert(ctx context.Context, flower domain.Flower) (domain.Flower, error) {
	doc := fromFlower(flower)
	doc.ID = primitive.NewObjectID()
	if _, err := r.flowers.InsertOne(ctx, doc); err != nil {
		return domain.Flower{}, pmongo.WrapError("flowers.insert", err)
	}
	return doc.toDomain(), nil
}

func (r *FlowerRepository) Update(ctx context.Context, flower domain.Flower) error {
	const op = "flowers.update"
	id, err := objectID(op, flower.ID)
	if err != nil {
		return err
	}
	doc := fromFlower(flower)
	set := bson.M{
		"name":            doc.Name,
		"habitat":         doc.Habitat,
		"growthTime":      doc.GrowthTime,
		"care":            doc.Care,
		"description":     doc.Description,
		"unitPrice":       doc.UnitPrice,
		"discount":        doc.Discount,
		"quantity":        doc.Quantity,
		"soldQuantity":    doc.SoldQuantity,
		"status":          doc.Status,
		"imageVideoFiles": doc.ImageVideoFiles,
		"updatedAt":       doc.Audit.UpdatedAt,
		"updatedBy":       doc.Audit.UpdatedBy,
	}
	res, err := r.flowers.UpdateOne(ctx, bson.M{"_id": id, "isDeleted": false}, bson.M{"$set": set})
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound(op)
	}
	return nil
}

func (r *FlowerRepository) FindByID(ctx context.Context, flowerID string) (domain.Flower, error) {
	const op = "flowers.get"
	id, err := objectID(op, flowerID)
	if err != nil {
		return domain.Flower{}, err
	}
	var doc flowerDocument
	if err := r.flowers.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&doc); err != nil {
		return domain.Flower{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *FlowerRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	filter := bson.M{"name": name, "isDeleted": false}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	n, err := r.flowers.CountDocuments(ctx, filter)
	if err != nil {
		return false, pmongo.WrapError("flowers.name_taken", err)
	}
	return n > 0, nil
}

func (r *FlowerRepository) SoftDelete(ctx context.Context, flowerID string, stamp repositories.SoftDelete) error {
	const op = "flowers.delete"
	id, err := objectID(op, flowerID)
	if err != nil {
		return err
	}
	res, err := r.flowers.UpdateOne(ctx,
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

func (r *FlowerRepository) SoftDeleteMany(ctx context.Context, flowerIDs []string, stamp repositories.SoftDelete) (int64, error) {
	ids := objectIDs(flowerIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.flowers.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false},
		stampUpdate(stamp.Actor, stamp.At, bson.M{"isDeleted": true}),
	)
	if err != nil {
		return 0, pmongo.WrapError("flowers.delete_many", err)
	}
	return res.ModifiedCount, nil
}

type flowerRowDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Image        string             `bson:"image"`
	Name         string             `bson:"name"`
	Habitat      string             `bson:"habitat"`
	UnitPrice    float64            `bson:"unitPrice"`
	Discount     float64            `bson:"discount"`
	Quantity     int                `bson:"quantity"`
	SoldQuantity int                `bson:"soldQuantity"`
	Status       string             `bson:"status"`
	Description  string             `bson:"description"`
	CreatedAt    time.Time          `bson:"createdAt"`
	CreatedBy    string             `bson:"createdBy"`
}

// List matches the keyword against name, habitat, description and linked category names.
func (r *FlowerRepository) List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.FlowerListItem], error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: notDeleted}},
		{{Key: "$lookup", Value: bson.M{
			"from":         flowerCategoriesCollection,
			"localField":   "_id",
			"foreignField": "flowerId",
			"as":           "links",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         categoriesCollection,
			"localField":   "links.categoryId",
			"foreignField": "_id",
			"as":           "categories",
		}}},
		{{Key: "$match", Value: keywordMatch(query.Keyword, "name", "habitat", "description", "categories.categoryName")}},
		{{Key: "$project", Value: bson.M{
			"image":        bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$imageVideoFiles.url", 0}}, ""}},
			"name":         1,
			"habitat":      1,
			"unitPrice":    1,
			"discount":     1,
			"quantity":     1,
			"soldQuantity": 1,
			"status":       1,
			"description":  1,
			"createdAt":    1,
			"createdBy":    1,
		}}},
	}

	rows, total, err := aggregatePage[flowerRowDocument](ctx, "flowers.list", r.flowers, pipeline, query)
	if err != nil {
		return domain.Page[domain.FlowerListItem]{}, err
	}
	items := make([]domain.FlowerListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.FlowerListItem{
			ID:           row.ID.Hex(),
			Image:        row.Image,
			Name:         row.Name,
			Habitat:      row.Habitat,
			UnitPrice:    row.UnitPrice,
			Discount:     row.Discount,
			Quantity:     row.Quantity,
			SoldQuantity: row.SoldQuantity,
			Status:       row.Status,
			Description:  row.Description,
			CreatedAt:    row.CreatedAt,
			CreatedBy:    row.CreatedBy,
		})
	}
	return domain.Page[domain.FlowerListItem]{Items: items, Total: total}, nil
}

func (r *FlowerRepository) FindByIDs(ctx context.Context, flowerIDs []string) ([]domain.Flower, error) {
	ids := objectIDs(flowerIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	flowers, err := r.find(ctx, "flowers.find_many", bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Flower, len(flowers))
	for _, f := range flowers {
		byID[f.ID] = f
	}
	ordered := make([]domain.Flower, 0, len(flowers))
	for _, id := range ids {
		if f, ok := byID[id.Hex()]; ok {
			ordered = append(ordered, f)
			delete(byID, id.Hex())
		}
	}
	return ordered, nil
}

func (r *FlowerRepository) Sample(ctx context.Context, size int) ([]domain.Flower, error) {
	if size <= 0 {
		return nil, nil
	}
	cursor, err := r.flowers.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: notDeleted}},
		{{Key: "$sample", Value: bson.M{"size": size}}},
	})
	if err != nil {
		return nil, pmongo.WrapError("flowers.sample", err)
	}
	return decodeFlowers(ctx, "flowers.sample", cursor)
}

func (r *FlowerRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.flowers.CountDocuments(ctx, notDeleted)
	if err != nil {
		return 0, pmongo.WrapError("flowers.count", err)
	}
	return n, nil
}

func (r *FlowerRepository) ListByCategoryNames(ctx context.Context, names []string) ([]domain.Flower, error) {
	const op = "flowers.by_category"
	cursor, err := r.flowers.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: notDeleted}},
		{{Key: "$lookup", Value: bson.M{
			"from":         flowerCategoriesCollection,
			"localField":   "_id",
			"foreignField": "flowerId",
			"as":           "links",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         categoriesCollection,
			"localField":   "links.categoryId",
			"foreignField": "_id",
			"as":           "categories",
		}}},
		{{Key: "$match", Value: bson.M{"categories": bson.M{"$elemMatch": bson.M{
			"categoryName": bson.M{"$in": names},
			"isDeleted":    false,
		}}}}},
		{{Key: "$project", Value: bson.M{"links": 0, "categories": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	return decodeFlowers(ctx, op, cursor)
}

func (r *FlowerRepository) find(ctx context.Context, op string, filter bson.M) ([]domain.Flower, error) {
	cursor, err := r.flowers.Find(ctx, filter)
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	return decodeFlowers(ctx, op, cursor)
}

func decodeFlowers(ctx context.Context, op string, cursor *mongo.Cursor) ([]domain.Flower, error) {
	var docs []flowerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	flowers := make([]domain.Flower, 0, len(docs))
	for _, doc := range docs {
		flowers = append(flowers, doc.toDomain())
	}
	return flowers, nil
}
