package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

// ProductInput is a full product record as entered in the admin panel.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Stock       int
	Sizes       []string
	Archived    bool
}

// AdminService is the inventory and order back office. Every method checks
// the caller's role itself.
type AdminService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	cache       *ProductCache
	events      EventPublisher
	policy      *bluemonday.Policy
	log         *slog.Logger
}

func NewAdminService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	cache *ProductCache,
	events EventPublisher,
	log *slog.Logger,
) *AdminService {
	if events == nil {
		events = noopPublisher{}
	}
	return &AdminService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		cache:       cache,
		events:      events,
		policy:      bluemonday.StrictPolicy(),
		log:         log,
	}
}

func requireAdmin(sess *model.Session) error {
	if sess == nil {
		return model.ErrAuthenticationRequired
	}
	if !sess.Role.IsAdmin() {
		return model.ErrForbidden
	}
	return nil
}

func (s *AdminService) ListProducts(ctx context.Context, sess *model.Session) ([]model.Product, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	products, err := s.productRepo.List(ctx, repository.ProductFilter{IncludeArchived: true})
	if err != nil {
		return nil, model.StorageFailure("list products", err)
	}
	return products, nil
}

func (s *AdminService) CreateProduct(ctx context.Context, sess *model.Session, in ProductInput) (*model.Product, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	p := &model.Product{}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, model.StorageFailure("create product", err)
	}
	return p, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, sess *model.Session, id uuid.UUID, in ProductInput) (*model.Product, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, model.StorageFailure("get product", err)
	}
	if p == nil {
		return nil, model.ErrProductNotFound
	}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}
	if err := s.productRepo.Update(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, model.StorageFailure("update product", err)
	}
	s.cache.Invalidate(ctx, id)
	return p, nil
}

// UpdateStock is the inline-edit path that touches nothing but stock.
func (s *AdminService) UpdateStock(ctx context.Context, sess *model.Session, id uuid.UUID, stock int) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", model.ErrValidation)
	}
	if err := s.productRepo.UpdateStock(ctx, id, stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		return model.StorageFailure("update stock", err)
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, sess *model.Session, id uuid.UUID) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		return model.StorageFailure("delete product", err)
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

func (s *AdminService) ListOrders(ctx context.Context, sess *model.Session) ([]model.Order, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, model.StorageFailure("list orders", err)
	}
	return orders, nil
}

// SetStatus moves an order forward. Asking for the status it already has is a
// no-op; terminal orders cannot move.
func (s *AdminService) SetStatus(ctx context.Context, sess *model.Session, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if _, err := model.ParseOrderStatus(string(status)); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, model.StorageFailure("get order", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransition(status, model.RoleAdmin) {
		return nil, fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, order.Status, status)
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, id, order.Status, status)
	if err != nil {
		return nil, model.StorageFailure("update order status", err)
	}
	if !ok {
		return nil, model.ErrInvalidTransition
	}
	order.Status = status
	publishStatus(ctx, s.events, s.log.With("order_id", id), id, status)
	return order, nil
}

// DeleteOrder removes a Cancelled order and returns any stock it still held.
func (s *AdminService) DeleteOrder(ctx context.Context, sess *model.Session, id uuid.UUID) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	released, err := s.orderRepo.DeleteCancelled(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) || errors.Is(err, model.ErrOrderNotCancelled) {
			return err
		}
		return model.StorageFailure("delete order", err)
	}
	ids := make([]uuid.UUID, len(released))
	for i, r := range released {
		ids[i] = r.ProductID
	}
	s.cache.Invalidate(ctx, ids...)
	s.log.Info("order deleted", "order_id", id, "released", len(released))
	return nil
}

func (s *AdminService) apply(p *model.Product, in ProductInput) error {
	name := s.clean(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", model.ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", model.ErrValidation)
	}
	imageURL, err := cleanURL(in.ImageURL)
	if err != nil {
		return err
	}
	sizes, err := s.cleanSizes(in.Sizes)
	if err != nil {
		return err
	}

	p.Name = name
	p.Description = s.clean(in.Description)
	p.Price = in.Price
	p.Category = s.clean(in.Category)
	p.ImageURL = imageURL
	p.Stock = in.Stock
	p.Sizes = sizes
	p.Archived = in.Archived
	return nil
}

// clean strips markup from admin-entered text while keeping plain characters
// such as '&' readable.
func (s *AdminService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *AdminService) cleanSizes(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		size := s.clean(raw)
		if size == "" {
			return nil, fmt.Errorf("%w: empty size label", model.ErrValidation)
		}
		if _, dup := seen[size]; dup {
			return nil, fmt.Errorf("%w: duplicate size %q", model.ErrValidation, size)
		}
		seen[size] = struct{}{}
		out = append(out, size)
	}
	return out, nil
}

func cleanURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: image url must be http or https", model.ErrValidation)
	}
	return u.String(), nil
}
