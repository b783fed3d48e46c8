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

// AccountRepository stores login accounts. List and View join from the users collection.
type AccountRepository struct {
	accounts *mongo.Collection
	users    *mongo.Collection
}

var _ repositories.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		accounts: db.Collection(accountsCollection),
		users:    db.Collection(usersCollection),
	}
}

func (r *AccountRepository) Insert(ctx context.Context, account domain.Account) (domain.Account, error) {
	const op = "accounts.insert"
	uid, err := primitive.ObjectIDFromHex(account.UserID)
	if err != nil {
		return domain.Account{}, pmongo.WrapError(op, err)
	}
	doc := accountDocument{
		ID:        primitive.NewObjectID(),
		UserID:    uid,
		Username:  account.Username,
		Password:  account.PasswordHash,
		IsActived: account.IsActived,
		Audit:     fromAudit(account.Audit),
	}
	if _, err := r.accounts.InsertOne(ctx, doc); err != nil {
		return domain.Account{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByUserID(ctx context.Context, userID string) (domain.Account, error) {
	const op = "accounts.get"
	uid, err := objectID(op, userID)
	if err != nil {
		return domain.Account{}, err
	}
	var doc accountDocument
	if err := r.accounts.FindOne(ctx, bson.M{"userId": uid, "isDeleted": false}).Decode(&doc); err != nil {
		return domain.Account{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	n, err := r.accounts.CountDocuments(ctx,
		bson.M{"username": username, "isDeleted": false},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, pmongo.WrapError("accounts.username_taken", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) SetActive(ctx context.Context, userID string, active bool, actor string, at time.Time) (domain.Account, error) {
	const op = "accounts.set_active"
	uid, err := objectID(op, userID)
	if err != nil {
		return domain.Account{}, err
	}
	var doc accountDocument
	err = r.accounts.FindOneAndUpdate(ctx,
		bson.M{"userId": uid, "isDeleted": false},
		stampUpdate(actor, at, bson.M{"isActived": active}),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return domain.Account{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) SetPassword(ctx context.Context, userID, passwordHash, actor string, at time.Time) error {
	const op = "accounts.set_password"
	uid, err := objectID(op, userID)
	if err != nil {
		return err
	}
	res, err := r.accounts.UpdateOne(ctx,
		bson.M{"userId": uid, "isDeleted": false},
		stampUpdate(actor, at, bson.M{"password": passwordHash}),
	)
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound(op)
	}
	return nil
}

func (r *AccountRepository) SoftDeleteByUser(ctx context.Context, userID string, stamp repositories.SoftDelete) error {
	const op = "accounts.delete"
	uid, err := objectID(op, userID)
	if err != nil {
		return err
	}
	res, err := r.accounts.UpdateOne(ctx,
		bson.M{"userId": uid, "isDeleted": false},
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

type accountViewDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Username    string             `bson:"username"`
	Avatar      string             `bson:"avatar"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Role        string             `bson:"role"`
	CitizenID   string             `bson:"citizenId"`
	PhoneNumber string             `bson:"phoneNumber"`
	IsActived   bool               `bson:"isActived"`
	CreatedAt   time.Time          `bson:"createdAt"`
	CreatedBy   string             `bson:"createdBy"`
}

func (d accountViewDocument) toDomain() domain.AccountView {
	return domain.AccountView{
		UserID:      d.ID.Hex(),
		Username:    d.Username,
		Avatar:      d.Avatar,
		Name:        d.Name,
		Email:       d.Email,
		Role:        d.Role,
		CitizenID:   d.CitizenID,
		PhoneNumber: d.PhoneNumber,
		IsActived:   d.IsActived,
		CreatedAt:   d.CreatedAt,
		CreatedBy:   d.CreatedBy,
	}
}

// accountJoin matches users and pairs each with its non-deleted account. Users without one drop out.
func accountJoin(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$lookup", Value: bson.M{
			"from": accountsCollection,
			"let":  bson.M{"id": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$userId", "$$id"}},
					bson.M{"$eq": bson.A{"$isDeleted", false}},
				}}}},
			},
			"as": "acc",
		}}},
		{{Key: "$unwind", Value: "$acc"}},
	}
}

var accountViewProjection = bson.M{
	"username":    "$acc.username",
	"avatar":      1,
	"name":        1,
	"email":       1,
	"role":        1,
	"citizenId":   1,
	"phoneNumber": 1,
	"isActived":   "$acc.isActived",
	"createdAt":   1,
	"createdBy":   1,
}

// List sorts with a case-insensitive collation so "an" and "An" order together.
func (r *AccountRepository) List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.AccountView], error) {
	pipeline := accountJoin(notDeleted)
	pipeline = append(pipeline,
		bson.D{{Key: "$match", Value: keywordMatch(query.Keyword, "role", "name", "email", "acc.username")}},
		bson.D{{Key: "$project", Value: accountViewProjection}},
	)
	collation := options.Aggregate().SetCollation(&options.Collation{Locale: "en", Strength: 1})
	docs, total, err := aggregatePage[accountViewDocument](ctx, "accounts.list", r.users, pipeline, query, collation)
	if err != nil {
		return domain.Page[domain.AccountView]{}, err
	}
	items := make([]domain.AccountView, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return domain.Page[domain.AccountView]{Items: items, Total: total}, nil
}

func (r *AccountRepository) View(ctx context.Context, userID string) (domain.AccountView, error) {
	const op = "accounts.view"
	uid, err := objectID(op, userID)
	if err != nil {
		return domain.AccountView{}, err
	}
	pipeline := accountJoin(bson.M{"_id": uid, "isDeleted": false})
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: accountViewProjection}})
	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.AccountView{}, pmongo.WrapError(op, err)
	}
	var docs []accountViewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return domain.AccountView{}, pmongo.WrapError(op, err)
	}
	if len(docs) == 0 {
		return domain.AccountView{}, pmongo.NotFound(op)
	}
	return docs[0].toDomain(), nil
}
