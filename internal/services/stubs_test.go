package services

import (
	"context"
	"errors"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/mail"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

var errStubUnexpected = errors.New("stub: unexpected call")

// recordingUnitOfWork runs fn directly and counts transactions.
type recordingUnitOfWork struct {
	calls int
}

func (u *recordingUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	u.calls++
	return fn(ctx)
}

type stubFlowerRepository struct {
	flowers       map[string]domain.Flower
	nameTaken     bool
	nameTakenErr  error
	inserted      []domain.Flower
	updated       []domain.Flower
	softDeleted   []string
	deleteMany    []string
	listPage      domain.Page[domain.FlowerListItem]
	listQuery     domain.ListQuery
	sampleSizes   []int
	count         int64
	byCategories  []domain.Flower
	categoryNames []string
	findByIDsArgs []string
}

var _ repositories.FlowerRepository = (*stubFlowerRepository)(nil)

func (s *stubFlowerRepository) Insert(_ context.Context, flower domain.Flower) (domain.Flower, error) {
	flower.ID = "665f00000000000000000001"
	s.inserted = append(s.inserted, flower)
	return flower, nil
}

func (s *stubFlowerRepository) Update(_ context.Context, flower domain.Flower) error {
	if _, ok := s.flowers[flower.ID]; !ok {
		return pmongo.NotFound("flowers.update")
	}
	s.updated = append(s.updated, flower)
	s.flowers[flower.ID] = flower
	return nil
}

func (s *stubFlowerRepository) FindByID(_ context.Context, flowerID string) (domain.Flower, error) {
	f, ok := s.flowers[flowerID]
	if !ok {
		return domain.Flower{}, pmongo.NotFound("flowers.findById")
	}
	return f, nil
}

func (s *stubFlowerRepository) NameTaken(context.Context, string, string) (bool, error) {
	return s.nameTaken, s.nameTakenErr
}

func (s *stubFlowerRepository) SoftDelete(_ context.Context, flowerID string, _ repositories.SoftDelete) error {
	s.softDeleted = append(s.softDeleted, flowerID)
	return nil
}

func (s *stubFlowerRepository) SoftDeleteMany(_ context.Context, flowerIDs []string, _ repositories.SoftDelete) (int64, error) {
	s.deleteMany = append(s.deleteMany, flowerIDs...)
	return int64(len(flowerIDs)), nil
}

func (s *stubFlowerRepository) List(_ context.Context, query domain.ListQuery) (domain.Page[domain.FlowerListItem], error) {
	s.listQuery = query
	return s.listPage, nil
}

func (s *stubFlowerRepository) FindByIDs(_ context.Context, flowerIDs []string) ([]domain.Flower, error) {
	s.findByIDsArgs = append([]string(nil), flowerIDs...)
	out := make([]domain.Flower, 0, len(flowerIDs))
	for _, id := range flowerIDs {
		if f, ok := s.flowers[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *stubFlowerRepository) Sample(_ context.Context, size int) ([]domain.Flower, error) {
	s.sampleSizes = append(s.sampleSizes, size)
	out := make([]domain.Flower, 0, size)
	for _, f := range s.flowers {
		if len(out) == size {
			break
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *stubFlowerRepository) Count(context.Context) (int64, error) {
	return s.count, nil
}

func (s *stubFlowerRepository) ListByCategoryNames(_ context.Context, names []string) ([]domain.Flower, error) {
	s.categoryNames = append([]string(nil), names...)
	return s.byCategories, nil
}

type stubCategoryRepository struct {
	categories  map[string]domain.Category
	nameTaken   bool
	inserted    []domain.Category
	updated     []domain.Category
	softDeleted []string
	deleteMany  []string
	refs        []domain.CategoryRef
}

var _ repositories.CategoryRepository = (*stubCategoryRepository)(nil)

func (s *stubCategoryRepository) Insert(_ context.Context, category domain.Category) (domain.Category, error) {
	category.ID = "665f0000000000000000c001"
	s.inserted = append(s.inserted, category)
	return category, nil
}

func (s *stubCategoryRepository) Update(_ context.Context, category domain.Category) error {
	s.updated = append(s.updated, category)
	return nil
}

func (s *stubCategoryRepository) FindByID(_ context.Context, categoryID string) (domain.Category, error) {
	c, ok := s.categories[categoryID]
	if !ok {
		return domain.Category{}, pmongo.NotFound("categories.findById")
	}
	return c, nil
}

func (s *stubCategoryRepository) FindByIDs(_ context.Context, categoryIDs []string) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if c, ok := s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCategoryRepository) NameTaken(context.Context, string, string) (bool, error) {
	return s.nameTaken, nil
}

func (s *stubCategoryRepository) SoftDelete(_ context.Context, categoryID string, _ repositories.SoftDelete) error {
	if _, ok := s.categories[categoryID]; !ok {
		return pmongo.NotFound("categories.softDelete")
	}
	s.softDeleted = append(s.softDeleted, categoryID)
	return nil
}

func (s *stubCategoryRepository) SoftDeleteMany(_ context.Context, categoryIDs []string, _ repositories.SoftDelete) (int64, error) {
	s.deleteMany = append(s.deleteMany, categoryIDs...)
	return int64(len(categoryIDs)), nil
}

func (s *stubCategoryRepository) List(context.Context, domain.ListQuery) (domain.Page[domain.Category], error) {
	items := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		items = append(items, c)
	}
	return domain.Page[domain.Category]{Items: items, Total: int64(len(items))}, nil
}

func (s *stubCategoryRepository) ListForFlower(context.Context, string) ([]domain.CategoryRef, error) {
	return s.refs, nil
}

type stubFlowerCategoryRepository struct {
	replaced map[string][]string
}

func (s *stubFlowerCategoryRepository) Replace(_ context.Context, flowerID string, categoryIDs []string) error {
	if s.replaced == nil {
		s.replaced = map[string][]string{}
	}
	s.replaced[flowerID] = append([]string(nil), categoryIDs...)
	return nil
}

func (s *stubFlowerCategoryRepository) CategoryIDs(_ context.Context, flowerID string) ([]string, error) {
	return s.replaced[flowerID], nil
}

// stubOrderStore backs both order repositories with the same in-memory data.
type stubOrderStore struct {
	orders       map[string]domain.Order
	details      []domain.OrderDetail
	statusesSeen [][]domain.OrderStatus
	totals       map[string]float64
	sales        []domain.FlowerSales
	salesOrders  []string
	salesLimit   int
}

func (s *stubOrderStore) ordersRepo() *stubOrderRepository   { return &stubOrderRepository{s} }
func (s *stubOrderStore) detailsRepo() *stubDetailRepository { return &stubDetailRepository{s} }

type stubOrderRepository struct{ store *stubOrderStore }

var _ repositories.OrderRepository = (*stubOrderRepository)(nil)

func (r *stubOrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	o, ok := r.store.orders[orderID]
	if !ok {
		return domain.Order{}, pmongo.NotFound("orders.findById")
	}
	return o, nil
}

func (r *stubOrderRepository) FindByIDs(_ context.Context, orderIDs []string) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if o, ok := r.store.orders[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *stubOrderRepository) IDsByStatus(_ context.Context, statuses []domain.OrderStatus) ([]string, error) {
	r.store.statusesSeen = append(r.store.statusesSeen, statuses)
	var ids []string
	for id, o := range r.store.orders {
		for _, st := range statuses {
			if o.Status == st {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (r *stubOrderRepository) UpdateTotal(_ context.Context, orderID string, total float64, _ string, _ time.Time) error {
	o, ok := r.store.orders[orderID]
	if !ok {
		return pmongo.NotFound("orders.updateTotal")
	}
	if r.store.totals == nil {
		r.store.totals = map[string]float64{}
	}
	r.store.totals[orderID] = total
	o.TotalPrice = total
	r.store.orders[orderID] = o
	return nil
}

type stubDetailRepository struct{ store *stubOrderStore }

var _ repositories.OrderDetailRepository = (*stubDetailRepository)(nil)

func (r *stubDetailRepository) ListByOrder(_ context.Context, orderID string) ([]domain.OrderDetail, error) {
	var out []domain.OrderDetail
	for _, d := range r.store.details {
		if d.OrderID == orderID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *stubDetailRepository) Reprice(_ context.Context, flowerID string, orderIDs []string, unitPrice, discount float64) ([]string, error) {
	in := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		in[id] = true
	}
	seen := map[string]bool{}
	var affected []string
	for i, d := range r.store.details {
		if d.FlowerID != flowerID || !in[d.OrderID] {
			continue
		}
		r.store.details[i].UnitPrice = unitPrice
		r.store.details[i].Discount = discount
		if !seen[d.OrderID] {
			seen[d.OrderID] = true
			affected = append(affected, d.OrderID)
		}
	}
	return affected, nil
}

func (r *stubDetailRepository) SalesByFlower(_ context.Context, orderIDs []string, limit int) ([]domain.FlowerSales, error) {
	r.store.salesOrders = append([]string(nil), orderIDs...)
	r.store.salesLimit = limit
	return r.store.sales, nil
}

type stubFeedbackRepository struct {
	feedback []domain.Feedback
}

func (s *stubFeedbackRepository) ListByFlower(context.Context, string) ([]domain.Feedback, error) {
	return s.feedback, nil
}

type stubAssetStore struct {
	uploaded  []domain.RawAsset
	deleted   []string
	uploadErr error
	next      int
}

func (s *stubAssetStore) Upload(_ context.Context, raw domain.RawAsset) (domain.Asset, error) {
	if s.uploadErr != nil {
		return domain.Asset{}, s.uploadErr
	}
	s.next++
	s.uploaded = append(s.uploaded, raw)
	id := "flowers/new-" + string(rune('0'+s.next))
	return domain.Asset{URL: "https://cdn.example/" + id, PublicID: id}, nil
}

func (s *stubAssetStore) DeleteByPublicID(_ context.Context, publicID string) error {
	s.deleted = append(s.deleted, publicID)
	return nil
}

type stubUserRepository struct {
	users      map[string]domain.User
	emailTaken bool
	emailArgs  []string
	inserted   []domain.User
	deleted    []string
}

var _ repositories.UserRepository = (*stubUserRepository)(nil)

func (s *stubUserRepository) Insert(_ context.Context, user domain.User) (domain.User, error) {
	user.ID = "665f0000000000000000a001"
	s.inserted = append(s.inserted, user)
	return user, nil
}

func (s *stubUserRepository) Update(_ context.Context, user domain.User) (domain.User, error) {
	if _, ok := s.users[user.ID]; !ok {
		return domain.User{}, pmongo.NotFound("users.update")
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *stubUserRepository) FindByID(_ context.Context, userID string) (domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, pmongo.NotFound("users.findById")
	}
	return u, nil
}

func (s *stubUserRepository) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	s.emailArgs = append(s.emailArgs, email+"|"+excludeID)
	return s.emailTaken, nil
}

func (s *stubUserRepository) SoftDelete(_ context.Context, userID string, _ repositories.SoftDelete) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubAccountRepository struct {
	accounts  map[string]domain.Account
	usernames map[string]bool
	inserted  []domain.Account
	passwords map[string]string
	deleted   []string
	views     map[string]domain.AccountView
}

var _ repositories.AccountRepository = (*stubAccountRepository)(nil)

func (s *stubAccountRepository) Insert(_ context.Context, account domain.Account) (domain.Account, error) {
	account.ID = "665f0000000000000000b001"
	s.inserted = append(s.inserted, account)
	return account, nil
}

func (s *stubAccountRepository) FindByUserID(_ context.Context, userID string) (domain.Account, error) {
	a, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, pmongo.NotFound("accounts.findByUserId")
	}
	return a, nil
}

func (s *stubAccountRepository) UsernameTaken(_ context.Context, username string) (bool, error) {
	return s.usernames[username], nil
}

func (s *stubAccountRepository) SetActive(_ context.Context, userID string, active bool, _ string, _ time.Time) (domain.Account, error) {
	a, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, pmongo.NotFound("accounts.setActive")
	}
	a.IsActived = active
	s.accounts[userID] = a
	return a, nil
}

func (s *stubAccountRepository) SetPassword(_ context.Context, userID, hash, _ string, _ time.Time) error {
	if s.passwords == nil {
		s.passwords = map[string]string{}
	}
	s.passwords[userID] = hash
	return nil
}

func (s *stubAccountRepository) SoftDeleteByUser(_ context.Context, userID string, _ repositories.SoftDelete) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

func (s *stubAccountRepository) List(context.Context, domain.ListQuery) (domain.Page[domain.AccountView], error) {
	return domain.Page[domain.AccountView]{}, errStubUnexpected
}

func (s *stubAccountRepository) View(_ context.Context, userID string) (domain.AccountView, error) {
	v, ok := s.views[userID]
	if !ok {
		return domain.AccountView{}, pmongo.NotFound("accounts.view")
	}
	return v, nil
}

type stubMailer struct{}

func (stubMailer) AccountCreated(to, username, password string) (mail.Message, error) {
	return mail.Message{To: to, Subject: "created", HTML: username + ":" + password}, nil
}

func (stubMailer) PasswordReset(to, password string) (mail.Message, error) {
	return mail.Message{To: to, Subject: "reset", HTML: password}, nil
}

type recordingSender struct {
	sent []mail.Message
	err  error
}

func (s *recordingSender) SendMail(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}
