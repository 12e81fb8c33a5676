package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/service"
)

type adminService interface {
	ListProducts(ctx context.Context, sess *model.Session) ([]model.Product, error)
	CreateProduct(ctx context.Context, sess *model.Session, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, sess *model.Session, id uuid.UUID, in service.ProductInput) (*model.Product, error)
	UpdateStock(ctx context.Context, sess *model.Session, id uuid.UUID, stock int) error
	DeleteProduct(ctx context.Context, sess *model.Session, id uuid.UUID) error
	ListOrders(ctx context.Context, sess *model.Session) ([]model.Order, error)
	SetStatus(ctx context.Context, sess *model.Session, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, sess *model.Session, id uuid.UUID) error
}

type AdminHandler struct {
	svc   adminService
	money *format.Money
}

func NewAdminHandler(svc adminService, money *format.Money) *AdminHandler {
	return &AdminHandler{svc: svc, money: money}
}

func (h *AdminHandler) ListProducts(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		writeError(c, err)
		return
	}
	items := toProductList(products, h.money)
	c.JSON(http.StatusOK, dto.ProductListResponse{Products: items, Total: len(items)})
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.CreateProduct(c.Request.Context(), middleware.GetSession(c), toProductInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(p, h.money))
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.UpdateProduct(c.Request.Context(), middleware.GetSession(c), id, toProductInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p, h.money))
}

func (h *AdminHandler) UpdateStock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.UpdateStock(c.Request.Context(), middleware.GetSession(c), id, *req.Stock); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	orders, err := h.svc.ListOrders(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders, h.money))
}

func (h *AdminHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := h.svc.SetStatus(c.Request.Context(), middleware.GetSession(c), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order, h.money))
}

func (h *AdminHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteOrder(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toProductInput(req dto.ProductRequest) service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		Sizes:       req.Sizes,
		Archived:    req.Archived,
	}
}
