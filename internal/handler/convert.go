package handler

import (
	"github.com/flicky/storefront/internal/cart"
	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/model"
)

func toSessionResponse(s *model.Session) dto.SessionResponse {
	return dto.SessionResponse{ID: s.UserID, Email: s.Email, Role: s.Role}
}

func toProductResponse(p *model.Product, money *format.Money) dto.ProductResponse {
	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	return dto.ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		PriceDisplay: money.Format(p.Price),
		Category:     p.Category,
		ImageURL:     p.ImageURL,
		Stock:        p.Stock,
		Sizes:        sizes,
		Archived:     p.Archived,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProductList(products []model.Product, money *format.Money) []dto.ProductResponse {
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i], money))
	}
	return items
}

func toCartResponse(c *model.Cart, money *format.Money) dto.CartResponse {
	lines := make([]dto.CartLineResponse, 0, len(c.Lines))
	for i, l := range c.Lines {
		lines = append(lines, dto.CartLineResponse{
			Index:          i,
			ProductID:      l.ProductID,
			Name:           l.Name,
			UnitPrice:      l.UnitPrice,
			ImageURL:       l.ImageURL,
			AvailableSizes: l.AvailableSizes,
			SelectedSize:   l.SelectedSize,
			Quantity:       l.Quantity,
			StockSnapshot:  l.StockSnapshot,
		})
	}
	total := cart.Total(*c)
	return dto.CartResponse{Lines: lines, Total: total, TotalDisplay: money.Format(total)}
}

func toOrderResponse(o *model.Order, money *format.Money) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	return dto.OrderResponse{
		ID:            o.ID,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		TotalPrice:    o.TotalPrice,
		TotalDisplay:  money.Format(o.TotalPrice),
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderList(orders []model.Order, money *format.Money) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i], money))
	}
	return dto.OrderListResponse{Orders: items, Total: len(items)}
}
