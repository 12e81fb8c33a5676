package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the closed set of identities the storefront knows about.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts only the two known roles.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// IsAdmin reports whether the role grants access to the admin panel.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	CreatedAt time.Time
}

type Profile struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// Session is the authenticated identity cached for a shopper.
type Session struct {
	UserID uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Stock       int
	Sizes       []string
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasSize reports whether size is one of the product's size labels.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// CartLine is one product+size entry of a shopper's cart. SelectedSize is empty
// when the product has no sizes.
type CartLine struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ImageURL       string          `json:"image_url"`
	AvailableSizes []string        `json:"available_sizes"`
	SelectedSize   string          `json:"selected_size,omitempty"`
	Quantity       int             `json:"quantity"`
	StockSnapshot  int             `json:"stock_snapshot"`
}

// Cart is ordered for display only.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.TrimSpace(s)); st {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether role may move an order from s to next.
// Re-applying the current status is handled by callers as a no-op.
func (s OrderStatus) CanTransition(next OrderStatus, role Role) bool {
	if s.Terminal() || s == next {
		return false
	}
	switch role {
	case RoleUser:
		return s == OrderStatusPending && next == OrderStatusCancelled
	case RoleAdmin:
		switch s {
		case OrderStatusPending:
			return next == OrderStatusShipped || next == OrderStatusDelivered || next == OrderStatusCancelled
		case OrderStatusShipped:
			return next == OrderStatusDelivered || next == OrderStatusCancelled
		}
		return false
	default:
		return false
	}
}

// OrderItem is a value snapshot taken at checkout; it never refers back to the catalog.
type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type Order struct {
	ID            uuid.UUID
	CustomerEmail string
	TotalPrice    decimal.Decimal
	Items         []OrderItem
	Status        OrderStatus
	CreatedAt     time.Time
}

// StockReservation is the quantity of a product taken from stock by an order.
type StockReservation struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderEvent is published whenever an order enters a new status.
type OrderEvent struct {
	OrderID uuid.UUID   `json:"order_id"`
	Status  OrderStatus `json:"status"`
	At      time.Time   `json:"at"`
}
