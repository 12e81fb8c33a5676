package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

var errBackend = errors.New("connection refused")

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.Email]; ok {
		return model.ErrUserAlreadyExists
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.users[email], nil
}

type mockProfileRepo struct {
	roles map[uuid.UUID]model.Role
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{roles: make(map[uuid.UUID]model.Role)}
}

func (m *mockProfileRepo) EnsureProfile(_ context.Context, userID uuid.UUID, _ string) (model.Role, error) {
	if r, ok := m.roles[userID]; ok {
		return r, nil
	}
	m.roles[userID] = model.RoleUser
	return model.RoleUser, nil
}

type mockProductRepo struct {
	products   map[uuid.UUID]*model.Product
	err        error
	lastFilter repository.ProductFilter
}

func newMockProductRepo(products ...*model.Product) *mockProductRepo {
	m := &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	if m.err != nil {
		return m.err
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, error) {
	m.lastFilter = f
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Product
	for _, p := range m.products {
		if p.Archived && !f.IncludeArchived {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) UpdateStock(_ context.Context, id uuid.UUID, stock int) error {
	p, ok := m.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Stock = stock
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.products, id)
	return nil
}

// mockOrderRepo takes stock from the product mock so checkout behaves like
// the transactional repository.
type mockOrderRepo struct {
	orders       map[uuid.UUID]*model.Order
	reservations map[uuid.UUID][]model.StockReservation
	products     *mockProductRepo
	createErr    error
	creates      int
}

func newMockOrderRepo(products *mockProductRepo) *mockOrderRepo {
	return &mockOrderRepo{
		orders:       make(map[uuid.UUID]*model.Order),
		reservations: make(map[uuid.UUID][]model.StockReservation),
		products:     products,
	}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order, res []model.StockReservation) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if m.products != nil {
		for _, r := range res {
			p, ok := m.products.products[r.ProductID]
			if !ok || p.Stock < r.Quantity {
				return model.ErrInsufficientStock
			}
		}
		for _, r := range res {
			m.products.products[r.ProductID].Stock -= r.Quantity
		}
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	cp := *order
	m.orders[order.ID] = &cp
	m.reservations[order.ID] = res
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, email string) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.CustomerEmail == email {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockOrderRepo) DeleteCancelled(ctx context.Context, id uuid.UUID) ([]model.StockReservation, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	if o.Status != model.OrderStatusCancelled {
		return nil, model.ErrOrderNotCancelled
	}
	released, _ := m.ReleaseReservations(ctx, id)
	delete(m.orders, id)
	return released, nil
}

func (m *mockOrderRepo) ReleaseReservations(_ context.Context, id uuid.UUID) ([]model.StockReservation, error) {
	res := m.reservations[id]
	delete(m.reservations, id)
	if m.products != nil {
		for _, r := range res {
			if p, ok := m.products.products[r.ProductID]; ok {
				p.Stock += r.Quantity
			}
		}
	}
	return res, nil
}

type failingCartRepo struct {
	repository.CartRepository
	failSave  bool
	failClear bool
}

func (f *failingCartRepo) Save(ctx context.Context, userID uuid.UUID, c *model.Cart) error {
	if f.failSave {
		return errBackend
	}
	return f.CartRepository.Save(ctx, userID, c)
}

func (f *failingCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if f.failClear {
		return errBackend
	}
	return f.CartRepository.Clear(ctx, userID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (r *recordingPublisher) PublishStatus(_ context.Context, ev model.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) statuses() []model.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OrderStatus, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Status
	}
	return out
}
