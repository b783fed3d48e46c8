package mongo

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowershop/admin-api/internal/domain"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

type UserRepository struct {
	users *mongo.Collection
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{users: db.Collection(usersCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	doc := userDocument{
		ID:          primitive.NewObjectID(),
		Name:        user.Name,
		Email:       strings.ToLower(user.Email),
		Role:        user.Role,
		Avatar:      user.Avatar,
		CitizenID:   user.CitizenID,
		PhoneNumber: user.PhoneNumber,
		Audit:       fromAudit(user.Audit),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return domain.User{}, pmongo.WrapError("users.insert", err)
	}
	return doc.toDomain(), nil
}

// Update overwrites the editable profile fields and returns the stored user.
func (r *UserRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	const op = "users.update"
	id, err := objectID(op, user.ID)
	if err != nil {
		return domain.User{}, err
	}
	var doc userDocument
	err = r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{
			"name":        user.Name,
			"email":       strings.ToLower(user.Email),
			"role":        user.Role,
			"avatar":      user.Avatar,
			"citizenId":   user.CitizenID,
			"phoneNumber": user.PhoneNumber,
			"updatedAt":   user.UpdatedAt,
			"updatedBy":   user.UpdatedBy,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return domain.User{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	const op = "users.get"
	id, err := objectID(op, userID)
	if err != nil {
		return domain.User{}, err
	}
	var doc userDocument
	if err := r.users.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&doc); err != nil {
		return domain.User{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

// EmailTaken includes soft-deleted users: an address stays reserved after deletion.
func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	n, err := r.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, pmongo.WrapError("users.email_taken", err)
	}
	return n > 0, nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, userID string, stamp repositories.SoftDelete) error {
	const op = "users.delete"
	id, err := objectID(op, userID)
	if err != nil {
		return err
	}
	res, err := r.users.UpdateOne(ctx,
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
