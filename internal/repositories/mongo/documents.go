package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/flowershop/admin-api/internal/domain"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
)

// Collection names match the existing storefront database.
const (
	flowersCollection          = "flowers"
	categoriesCollection       = "categories"
	flowerCategoriesCollection = "flowercategories"
	ordersCollection           = "orders"
	orderDetailsCollection     = "orderdetails"
	commentsCollection         = "comments"
	usersCollection            = "users"
	accountsCollection         = "accounts"
)

type assetDocument struct {
	URL      string `bson:"url"`
	PublicID string `bson:"public_id"`
}

type auditFields struct {
	CreatedAt time.Time  `bson:"createdAt"`
	CreatedBy string     `bson:"createdBy"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty"`
	UpdatedBy string     `bson:"updatedBy,omitempty"`
}

type flowerDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	Habitat         string             `bson:"habitat"`
	GrowthTime      string             `bson:"growthTime"`
	Care            string             `bson:"care"`
	Description     string             `bson:"description"`
	UnitPrice       float64            `bson:"unitPrice"`
	Discount        float64            `bson:"discount"`
	Quantity        int                `bson:"quantity"`
	SoldQuantity    int                `bson:"soldQuantity"`
	Status          string             `bson:"status"`
	StarsTotal      float64            `bson:"starsTotal"`
	ImageVideoFiles []assetDocument    `bson:"imageVideoFiles"`
	IsDeleted       bool               `bson:"isDeleted"`
	Audit           auditFields        `bson:",inline"`
}

type categoryDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	CategoryName string             `bson:"categoryName"`
	Description  string             `bson:"description"`
	IsDeleted    bool               `bson:"isDeleted"`
	Audit        auditFields        `bson:",inline"`
}

type flowerCategoryDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	FlowerID   primitive.ObjectID `bson:"flowerId"`
	CategoryID primitive.ObjectID `bson:"categoryId"`
}

type orderDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	OrderUserID   primitive.ObjectID `bson:"orderUserId"`
	OrderDate     time.Time          `bson:"orderDate"`
	ShipAddress   string             `bson:"shipAddress"`
	ShipPrice     float64            `bson:"shipPrice"`
	Discount      float64            `bson:"discount"`
	TotalPrice    float64            `bson:"totalPrice"`
	Status        string             `bson:"status"`
	PaymentMethod string             `bson:"paymentMethod"`
	Note          string             `bson:"note"`
	IsDeleted     bool               `bson:"isDeleted"`
	Audit         auditFields        `bson:",inline"`
}

type orderDetailDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OrderID         primitive.ObjectID `bson:"orderId"`
	FlowerID        primitive.ObjectID `bson:"flowerId"`
	UnitPrice       float64            `bson:"unitPrice"`
	Discount        float64            `bson:"discount"`
	NumberOfFlowers int                `bson:"numberOfFlowers"`
}

type userDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Role        string             `bson:"role"`
	Avatar      string             `bson:"avatar"`
	CitizenID   string             `bson:"citizenId"`
	PhoneNumber string             `bson:"phoneNumber"`
	IsDeleted   bool               `bson:"isDeleted"`
	Audit       auditFields        `bson:",inline"`
}

type accountDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	IsActived bool               `bson:"isActived"`
	IsDeleted bool               `bson:"isDeleted"`
	Audit     auditFields        `bson:",inline"`
}

func toAudit(a auditFields) domain.Audit {
	return domain.Audit{CreatedAt: a.CreatedAt, CreatedBy: a.CreatedBy, UpdatedAt: a.UpdatedAt, UpdatedBy: a.UpdatedBy}
}

func fromAudit(a domain.Audit) auditFields {
	return auditFields{CreatedAt: a.CreatedAt, CreatedBy: a.CreatedBy, UpdatedAt: a.UpdatedAt, UpdatedBy: a.UpdatedBy}
}

func toAssets(docs []assetDocument) []domain.Asset {
	if len(docs) == 0 {
		return nil
	}
	assets := make([]domain.Asset, 0, len(docs))
	for _, d := range docs {
		assets = append(assets, domain.Asset{URL: d.URL, PublicID: d.PublicID})
	}
	return assets
}

func fromAssets(assets []domain.Asset) []assetDocument {
	docs := make([]assetDocument, 0, len(assets))
	for _, a := range assets {
		docs = append(docs, assetDocument{URL: a.URL, PublicID: a.PublicID})
	}
	return docs
}

func (d flowerDocument) toDomain() domain.Flower {
	return domain.Flower{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Habitat:      d.Habitat,
		GrowthTime:   d.GrowthTime,
		Care:         d.Care,
		Description:  d.Description,
		UnitPrice:    d.UnitPrice,
		Discount:     d.Discount,
		Quantity:     d.Quantity,
		SoldQuantity: d.SoldQuantity,
		Status:       d.Status,
		StarsTotal:   d.StarsTotal,
		Media:        toAssets(d.ImageVideoFiles),
		IsDeleted:    d.IsDeleted,
		Audit:        toAudit(d.Audit),
	}
}

func fromFlower(f domain.Flower) flowerDocument {
	return flowerDocument{
		Name:            f.Name,
		Habitat:         f.Habitat,
		GrowthTime:      f.GrowthTime,
		Care:            f.Care,
		Description:     f.Description,
		UnitPrice:       f.UnitPrice,
		Discount:        f.Discount,
		Quantity:        f.Quantity,
		SoldQuantity:    f.SoldQuantity,
		Status:          f.Status,
		StarsTotal:      f.StarsTotal,
		ImageVideoFiles: fromAssets(f.Media),
		IsDeleted:       f.IsDeleted,
		Audit:           fromAudit(f.Audit),
	}
}

func (d categoryDocument) toDomain() domain.Category {
	return domain.Category{
		ID:           d.ID.Hex(),
		CategoryName: d.CategoryName,
		Description:  d.Description,
		IsDeleted:    d.IsDeleted,
		Audit:        toAudit(d.Audit),
	}
}

func (d orderDocument) toDomain() domain.Order {
	return domain.Order{
		ID:            d.ID.Hex(),
		OrderUserID:   d.OrderUserID.Hex(),
		OrderDate:     d.OrderDate,
		ShipAddress:   d.ShipAddress,
		ShipPrice:     d.ShipPrice,
		Discount:      d.Discount,
		TotalPrice:    d.TotalPrice,
		Status:        domain.OrderStatus(d.Status),
		PaymentMethod: d.PaymentMethod,
		Note:          d.Note,
		IsDeleted:     d.IsDeleted,
		Audit:         toAudit(d.Audit),
	}
}

func (d orderDetailDocument) toDomain() domain.OrderDetail {
	return domain.OrderDetail{
		ID:              d.ID.Hex(),
		OrderID:         d.OrderID.Hex(),
		FlowerID:        d.FlowerID.Hex(),
		UnitPrice:       d.UnitPrice,
		Discount:        d.Discount,
		NumberOfFlowers: d.NumberOfFlowers,
	}
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Email:       d.Email,
		Role:        d.Role,
		Avatar:      d.Avatar,
		CitizenID:   d.CitizenID,
		PhoneNumber: d.PhoneNumber,
		IsDeleted:   d.IsDeleted,
		Audit:       toAudit(d.Audit),
	}
}

func (d accountDocument) toDomain() domain.Account {
	return domain.Account{
		ID:           d.ID.Hex(),
		UserID:       d.UserID.Hex(),
		Username:     d.Username,
		PasswordHash: d.Password,
		IsActived:    d.IsActived,
		IsDeleted:    d.IsDeleted,
		Audit:        toAudit(d.Audit),
	}
}

// objectID parses a hex id; a malformed id can never match a document so it reports not found.
func objectID(op, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, pmongo.NotFound(op)
	}
	return oid, nil
}

// objectIDs parses ids, dropping malformed entries.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
