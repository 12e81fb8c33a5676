package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/cart"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

const unknownItemName = "Unknown Item"

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	cache     *ProductCache
	events    EventPublisher
	log       *slog.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	cache *ProductCache,
	events EventPublisher,
	log *slog.Logger,
) *OrderService {
	if events == nil {
		events = noopPublisher{}
	}
	return &OrderService{orderRepo: orderRepo, cartRepo: cartRepo, cache: cache, events: events, log: log}
}

// PlaceOrder turns the shopper's cart into a Pending order. Stock for every
// product in the cart is taken in the same transaction that records the order.
// On any failure the stored cart is left exactly as it was. Malformed lines
// are sanitized, never rejected; the order total is always the live cart total.
func (s *OrderService) PlaceOrder(ctx context.Context, sess *model.Session) (*model.Order, error) {
	if sess == nil {
		return nil, model.ErrAuthenticationRequired
	}

	c, err := s.cartRepo.Load(ctx, sess.UserID)
	if err != nil {
		return nil, model.StorageFailure("load cart", err)
	}
	if len(c.Lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	items := snapshotItems(c.Lines)
	total := cart.Total(*c)
	if itemsTotal := sumItems(items); !total.Equal(itemsTotal) {
		s.log.Error("cart total disagrees with order items",
			"user_id", sess.UserID,
			"cart_total", total.String(),
			"items_total", itemsTotal.String(),
		)
	}

	order := &model.Order{
		CustomerEmail: sess.Email,
		TotalPrice:    total,
		Items:         items,
		Status:        model.OrderStatusPending,
	}
	reservations := cart.Reservations(*c)
	if err := s.orderRepo.Create(ctx, order, reservations); err != nil {
		if errors.Is(err, model.ErrInsufficientStock) {
			return nil, err
		}
		return nil, model.StorageFailure("place order", err)
	}

	ids := make([]uuid.UUID, len(reservations))
	for i, res := range reservations {
		ids[i] = res.ProductID
	}
	s.cache.Invalidate(ctx, ids...)

	log := s.log.With("order_id", order.ID, "user_id", sess.UserID)
	if err := s.cartRepo.Clear(ctx, sess.UserID); err != nil {
		log.Error("clear cart after checkout", "error", err)
	}
	publishStatus(ctx, s.events, log, order.ID, order.Status)
	log.Info("order placed", "total", order.TotalPrice.String())
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, sess *model.Session) ([]model.Order, error) {
	if sess == nil {
		return nil, model.ErrAuthenticationRequired
	}
	orders, err := s.orderRepo.ListByCustomer(ctx, sess.Email)
	if err != nil {
		return nil, model.StorageFailure("list orders", err)
	}
	return orders, nil
}

// CancelMine cancels one of the shopper's own Pending orders. Other shoppers'
// orders are reported as not found.
func (s *OrderService) CancelMine(ctx context.Context, sess *model.Session, orderID uuid.UUID) (*model.Order, error) {
	if sess == nil {
		return nil, model.ErrAuthenticationRequired
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, model.StorageFailure("get order", err)
	}
	if order == nil || order.CustomerEmail != sess.Email {
		return nil, model.ErrOrderNotFound
	}
	if !order.Status.CanTransition(model.OrderStatusCancelled, model.RoleUser) {
		return nil, model.ErrInvalidTransition
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, model.OrderStatusCancelled)
	if err != nil {
		return nil, model.StorageFailure("cancel order", err)
	}
	if !ok {
		return nil, model.ErrInvalidTransition
	}
	order.Status = model.OrderStatusCancelled
	publishStatus(ctx, s.events, s.log.With("order_id", orderID, "user_id", sess.UserID), orderID, order.Status)
	return order, nil
}

// publishStatus never fails the caller; the order is already committed.
func publishStatus(ctx context.Context, events EventPublisher, log *slog.Logger, id uuid.UUID, status model.OrderStatus) {
	ev := model.OrderEvent{OrderID: id, Status: status, At: time.Now().UTC()}
	if err := events.PublishStatus(ctx, ev); err != nil {
		log.Error("publish order status", "status", status, "error", err)
	}
}

// snapshotItems copies what the order needs out of the cart. Malformed lines
// are coerced instead of rejected.
func snapshotItems(lines []model.CartLine) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		item := model.OrderItem{Name: strings.TrimSpace(l.Name), Price: l.UnitPrice, Quantity: l.Quantity}
		if item.Name == "" {
			item.Name = unknownItemName
		}
		if item.Price.IsNegative() {
			item.Price = decimal.Zero
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		items = append(items, item)
	}
	return items
}

func sumItems(items []model.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
