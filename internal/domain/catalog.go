package domain

import "time"

// Flower is a catalog item.
type Flower struct {
	ID           string
	Name         string
	Habitat      string
	GrowthTime   string
	Care         string
	Description  string
	UnitPrice    float64
	Discount     float64
	Quantity     int
	SoldQuantity int
	Status       string
	StarsTotal   float64
	Media        []Asset
	IsDeleted    bool
	Audit
}

// FlowerWithCategories is a flower plus its linked category ids, as returned after create and update.
type FlowerWithCategories struct {
	Flower
	CategoryIDs []string
}

// FlowerDetail is the full flower view including linked non-deleted categories.
type FlowerDetail struct {
	Flower
	Categories []CategoryRef
}

// CategoryRef is the compact form of a category attached to a flower.
type CategoryRef struct {
	ID           string
	CategoryName string
}

// FlowerListItem is one row of the admin flower grid.
type FlowerListItem struct {
	ID           string
	Image        string
	Name         string
	Habitat      string
	UnitPrice    float64
	Discount     float64
	Quantity     int
	SoldQuantity int
	Status       string
	Description  string
	CreatedAt    time.Time
	CreatedBy    string
}

// FlowerFeedItem is one row of the storefront flower feeds.
type FlowerFeedItem struct {
	ID        string
	Name      string
	Stars     float64
	UnitPrice float64
	Status    string
	Discount  float64
	Image     string
}

// FeedItemFromFlower projects a flower into a feed row.
func FeedItemFromFlower(f Flower) FlowerFeedItem {
	return FlowerFeedItem{
		ID:        f.ID,
		Name:      f.Name,
		Stars:     f.StarsTotal,
		UnitPrice: f.UnitPrice,
		Status:    f.Status,
		Discount:  f.Discount,
		Image:     f.PrimaryImage(),
	}
}

// PrimaryImage returns the url of the first asset, or "".
func (f Flower) PrimaryImage() string {
	if len(f.Media) == 0 {
		return ""
	}
	return f.Media[0].URL
}

// PriceChanged reports whether unit price or discount differ between two revisions.
func (f Flower) PriceChanged(next Flower) bool {
	return f.UnitPrice != next.UnitPrice || f.Discount != next.Discount
}

// Category groups flowers.
type Category struct {
	ID           string
	CategoryName string
	Description  string
	IsDeleted    bool
	Audit
}

// FlowerCategory links a flower to a category.
type FlowerCategory struct {
	ID         string
	FlowerID   string
	CategoryID string
}

// Feedback is a comment left on an order line of a flower.
type Feedback struct {
	Content       string
	NumberOfStars float64
	NumberOfLikes int
	FeedbackBy    string
	CommentDate   time.Time
	Media         []Asset
}

// Category names backing the decoration and gift feeds.
const (
	DecorationCategory = "Hoa trưng bày"
)

// GiftCategories lists the category names that make up the gift feed.
var GiftCategories = []string{"Hoa sinh nhật", "Hoa tốt nghiệp", "Hoa chúc mừng"}
