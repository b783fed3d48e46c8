package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/services"
)

type stubFlowerService struct {
	created    services.CreateFlowerCommand
	updated    services.UpdateFlowerCommand
	deleted    services.DeleteFlowerCommand
	bulk       services.DeleteFlowersCommand
	listQuery  domain.ListQuery
	listResult domain.Page[services.FlowerListItem]
	detail     services.FlowerDetail
	feedback   []services.Feedback
	err        error
}

func (s *stubFlowerService) CreateFlower(_ context.Context, cmd services.CreateFlowerCommand) (services.FlowerWithCategories, error) {
	s.created = cmd
	if s.err != nil {
		return services.FlowerWithCategories{}, s.err
	}
	return services.FlowerWithCategories{
		Flower:      domain.Flower{ID: "665f00000000000000000001", Name: cmd.Name, UnitPrice: cmd.UnitPrice, Audit: domain.Audit{CreatedBy: cmd.ActorID}},
		CategoryIDs: cmd.CategoryIDs,
	}, nil
}

func (s *stubFlowerService) UpdateFlower(_ context.Context, cmd services.UpdateFlowerCommand) (services.FlowerWithCategories, error) {
	s.updated = cmd
	if s.err != nil {
		return services.FlowerWithCategories{}, s.err
	}
	return services.FlowerWithCategories{Flower: domain.Flower{ID: cmd.FlowerID, Name: cmd.Name}}, nil
}

func (s *stubFlowerService) DeleteFlower(_ context.Context, cmd services.DeleteFlowerCommand) error {
	s.deleted = cmd
	return s.err
}

func (s *stubFlowerService) DeleteFlowers(_ context.Context, cmd services.DeleteFlowersCommand) error {
	s.bulk = cmd
	return s.err
}

func (s *stubFlowerService) ListFlowers(_ context.Context, query services.ListQuery) (domain.Page[services.FlowerListItem], error) {
	s.listQuery = query
	return s.listResult, s.err
}

func (s *stubFlowerService) GetFlowerDetail(context.Context, string) (services.FlowerDetail, error) {
	return s.detail, s.err
}

func (s *stubFlowerService) GetFlowerFeedback(context.Context, string) ([]services.Feedback, error) {
	return s.feedback, s.err
}

type stubFeedService struct {
	limits      []int
	items       []services.FlowerFeedItem
	recalculate services.RecalculateOrderCommand
	order       services.Order
	err         error
}

func (s *stubFeedService) BestSellers(_ context.Context, limit int) ([]services.FlowerFeedItem, error) {
	s.limits = append(s.limits, limit)
	return s.items, s.err
}

func (s *stubFeedService) Suggested(_ context.Context, limit int) ([]services.FlowerFeedItem, error) {
	s.limits = append(s.limits, limit)
	return s.items, s.err
}

func (s *stubFeedService) Decoration(_ context.Context, limit int) ([]services.FlowerFeedItem, error) {
	s.limits = append(s.limits, limit)
	return s.items, s.err
}

func (s *stubFeedService) Gifts(_ context.Context, limit int) ([]services.FlowerFeedItem, error) {
	s.limits = append(s.limits, limit)
	return s.items, s.err
}

func (s *stubFeedService) RecalculateOrderTotal(_ context.Context, cmd services.RecalculateOrderCommand) (services.Order, error) {
	s.recalculate = cmd
	if s.err != nil {
		return services.Order{}, s.err
	}
	return s.order, nil
}

type stubCategoryService struct {
	saved     services.CategoryCommand
	created   bool
	deleted   services.DeleteCategoryCommand
	bulk      services.DeleteCategoriesCommand
	listQuery domain.ListQuery
	page      domain.Page[services.Category]
	err       error
}

func (s *stubCategoryService) ListCategories(_ context.Context, query services.ListQuery) (domain.Page[services.Category], error) {
	s.listQuery = query
	return s.page, s.err
}

func (s *stubCategoryService) GetCategory(_ context.Context, categoryID string) (services.Category, error) {
	return services.Category{ID: categoryID, CategoryName: "Gift"}, s.err
}

func (s *stubCategoryService) CreateCategory(_ context.Context, cmd services.CategoryCommand) (services.Category, error) {
	s.saved, s.created = cmd, true
	return services.Category{ID: "665f000000000000000000c1", CategoryName: cmd.CategoryName, Description: cmd.Description}, s.err
}

func (s *stubCategoryService) UpdateCategory(_ context.Context, cmd services.CategoryCommand) (services.Category, error) {
	s.saved = cmd
	return services.Category{ID: cmd.CategoryID, CategoryName: cmd.CategoryName}, s.err
}

func (s *stubCategoryService) DeleteCategory(_ context.Context, cmd services.DeleteCategoryCommand) error {
	s.deleted = cmd
	return s.err
}

func (s *stubCategoryService) DeleteCategories(_ context.Context, cmd services.DeleteCategoriesCommand) error {
	s.bulk = cmd
	return s.err
}

type stubAccountService struct {
	created   services.CreateAccountCommand
	updated   services.UpdateAccountCommand
	active    services.SetAccountActiveCommand
	deleted   services.DeleteAccountCommand
	resets    []services.ResetPasswordCommand
	listQuery domain.ListQuery
	page      domain.Page[services.AccountView]
	view      services.AccountView
	account   services.Account
	err       error
}

func (s *stubAccountService) ListAccounts(_ context.Context, query services.ListQuery) (domain.Page[services.AccountView], error) {
	s.listQuery = query
	return s.page, s.err
}

func (s *stubAccountService) GetAccount(context.Context, string) (services.AccountView, error) {
	return s.view, s.err
}

func (s *stubAccountService) CreateAccount(_ context.Context, cmd services.CreateAccountCommand) (services.User, error) {
	s.created = cmd
	if s.err != nil {
		return services.User{}, s.err
	}
	return services.User{ID: "665f000000000000000000a1", Name: cmd.Name, Email: cmd.Email, Role: cmd.Role}, nil
}

func (s *stubAccountService) UpdateAccount(_ context.Context, cmd services.UpdateAccountCommand) (services.User, error) {
	s.updated = cmd
	return services.User{ID: cmd.UserID, Name: cmd.Name}, s.err
}

func (s *stubAccountService) SetAccountActive(_ context.Context, cmd services.SetAccountActiveCommand) (services.Account, error) {
	s.active = cmd
	if s.err != nil {
		return services.Account{}, s.err
	}
	account := s.account
	account.UserID = cmd.UserID
	account.IsActived = cmd.IsActived
	return account, nil
}

func (s *stubAccountService) DeleteAccount(_ context.Context, cmd services.DeleteAccountCommand) error {
	s.deleted = cmd
	return s.err
}

func (s *stubAccountService) ResetPassword(_ context.Context, cmd services.ResetPasswordCommand) error {
	s.resets = append(s.resets, cmd)
	return s.err
}

// newTestRouter mounts routes the way the API router does, with an actor on every request.
func newTestRouter(routes func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(ActorMiddleware("X-Actor-ID"))
	routes(r)
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return body
}
