package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/model"
)

// --- Auth ---

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	ID    uuid.UUID  `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type AuthResponse struct {
	Token   string          `json:"token"`
	Session SessionResponse `json:"session"`
}

// --- Product ---

type SearchProductsRequest struct {
	Query    string `form:"q"`
	Category string `form:"category"`
}

type ProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock" binding:"min=0"`
	Sizes       []string        `json:"sizes"`
	Archived    bool            `json:"is_archived"`
}

type UpdateStockRequest struct {
	Stock *int `json:"stock" binding:"required,min=0"`
}

type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url"`
	Stock        int             `json:"stock"`
	Sizes        []string        `json:"sizes"`
	Archived     bool            `json:"is_archived"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	Categories []string          `json:"categories,omitempty"`
	Total      int               `json:"total"`
}

// --- Cart ---

type AddLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Size      string    `json:"size"`
}

type QuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type SizeRequest struct {
	Size string `json:"size" binding:"required"`
}

type CartLineResponse struct {
	Index          int             `json:"index"`
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ImageURL       string          `json:"image_url"`
	AvailableSizes []string        `json:"available_sizes"`
	SelectedSize   string          `json:"selected_size,omitempty"`
	Quantity       int             `json:"quantity"`
	StockSnapshot  int             `json:"stock_snapshot"`
}

type CartResponse struct {
	Lines        []CartLineResponse `json:"lines"`
	Total        decimal.Decimal    `json:"total"`
	TotalDisplay string             `json:"total_display"`
	Added        *bool              `json:"added,omitempty"`
}

// --- Order ---

type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	CustomerEmail string              `json:"customer_email"`
	Status        model.OrderStatus   `json:"status"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	TotalDisplay  string              `json:"total_display"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

type OrderItemResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
