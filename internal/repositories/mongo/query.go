package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowershop/admin-api/internal/domain"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
)

var notDeleted = bson.M{"isDeleted": false}

// keywordMatch builds a case-insensitive "contains" filter over fields. The keyword is
// matched literally.
func keywordMatch(keyword string, fields ...string) bson.M {
	if keyword == "" {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, field := range fields {
		or = append(or, bson.M{field: pattern})
	}
	return bson.M{"$or": or}
}

// sortDocument renders the requested order with _id as the final tie-break.
func sortDocument(fields []domain.SortField) bson.D {
	sort := make(bson.D, 0, len(fields)+1)
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: f.Field, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

type pagedResult[T any] struct {
	Items []T `bson:"items"`
	Total []struct {
		Count int64 `bson:"count"`
	} `bson:"total"`
}

// aggregatePage appends sort, paging and a $facet count to pipeline and decodes the result.
func aggregatePage[T any](ctx context.Context, op string, coll *mongo.Collection, pipeline mongo.Pipeline, query domain.ListQuery, opts ...*options.AggregateOptions) ([]T, int64, error) {
	items := bson.A{bson.M{"$sort": sortDocument(query.Sort)}}
	if skip := query.Skip(); skip > 0 {
		items = append(items, bson.M{"$skip": skip})
	}
	if limit := query.Limit(); limit > 0 {
		items = append(items, bson.M{"$limit": limit})
	}
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.M{
		"items": items,
		"total": bson.A{bson.M{"$count": "count"}},
	}}})

	cursor, err := coll.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, 0, pmongo.WrapError(op, err)
	}
	var results []pagedResult[T]
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, pmongo.WrapError(op, err)
	}
	if len(results) == 0 {
		return nil, 0, nil
	}
	var total int64
	if len(results[0].Total) > 0 {
		total = results[0].Total[0].Count
	}
	return results[0].Items, total, nil
}

// stampUpdate is the $set body for audit fields written on every mutation.
func stampUpdate(actor string, at time.Time, extra bson.M) bson.M {
	set := bson.M{"updatedAt": at, "updatedBy": actor}
	for k, v := range extra {
		set[k] = v
	}
	return bson.M{"$set": set}
}
