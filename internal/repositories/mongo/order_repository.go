package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowershop/admin-api/internal/domain"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

// OrderRepository reads orders and writes recomputed totals.
type OrderRepository struct {
	orders *mongo.Collection
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{orders: db.Collection(ordersCollection)}
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	const op = "orders.get"
	id, err := objectID(op, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	var doc orderDocument
	if err := r.orders.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&doc); err != nil {
		return domain.Order{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) FindByIDs(ctx context.Context, orderIDs []string) ([]domain.Order, error) {
	const op = "orders.find_many"
	ids := objectIDs(orderIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.orders.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "isDeleted": false},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.toDomain())
	}
	return orders, nil
}

func (r *OrderRepository) IDsByStatus(ctx context.Context, statuses []domain.OrderStatus) ([]string, error) {
	const op = "orders.ids_by_status"
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	cursor, err := r.orders.Find(ctx,
		bson.M{"status": bson.M{"$in": values}, "isDeleted": false},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.Hex())
	}
	return ids, nil
}

func (r *OrderRepository) UpdateTotal(ctx context.Context, orderID string, total float64, actor string, at time.Time) error {
	const op = "orders.update_total"
	id, err := objectID(op, orderID)
	if err != nil {
		return err
	}
	res, err := r.orders.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		stampUpdate(actor, at, bson.M{"totalPrice": total}),
	)
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound(op)
	}
	return nil
}

// OrderDetailRepository reads and reprices order lines.
type OrderDetailRepository struct {
	details *mongo.Collection
}

var _ repositories.OrderDetailRepository = (*OrderDetailRepository)(nil)

func NewOrderDetailRepository(db *mongo.Database) *OrderDetailRepository {
	return &OrderDetailRepository{details: db.Collection(orderDetailsCollection)}
}

func (r *OrderDetailRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderDetail, error) {
	const op = "orderdetails.by_order"
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, nil
	}
	cursor, err := r.details.Find(ctx, bson.M{"orderId": id}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var docs []orderDetailDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	details := make([]domain.OrderDetail, 0, len(docs))
	for _, doc := range docs {
		details = append(details, doc.toDomain())
	}
	return details, nil
}

func (r *OrderDetailRepository) Reprice(ctx context.Context, flowerID string, orderIDs []string, unitPrice, discount float64) ([]string, error) {
	const op = "orderdetails.reprice"
	fid, err := primitive.ObjectIDFromHex(flowerID)
	if err != nil {
		return nil, nil
	}
	oids := objectIDs(orderIDs)
	if len(oids) == 0 {
		return nil, nil
	}
	filter := bson.M{"flowerId": fid, "orderId": bson.M{"$in": oids}}

	affected, err := r.details.Distinct(ctx, "orderId", filter)
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	if len(affected) == 0 {
		return nil, nil
	}
	if _, err := r.details.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"unitPrice": unitPrice,
		"discount":  discount,
	}}); err != nil {
		return nil, pmongo.WrapError(op, err)
	}

	ids := make([]string, 0, len(affected))
	for _, v := range affected {
		if oid, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, oid.Hex())
		}
	}
	return ids, nil
}

func (r *OrderDetailRepository) SalesByFlower(ctx context.Context, orderIDs []string, limit int) ([]domain.FlowerSales, error) {
	const op = "orderdetails.sales"
	oids := objectIDs(orderIDs)
	if len(oids) == 0 {
		return nil, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"orderId": bson.M{"$in": oids}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$flowerId",
			"total": bson.M{"$sum": "$numberOfFlowers"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	cursor, err := r.details.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Total int64              `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	sales := make([]domain.FlowerSales, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, domain.FlowerSales{FlowerID: row.ID.Hex(), Quantity: row.Total})
	}
	return sales, nil
}
