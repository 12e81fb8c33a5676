package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/model"
)

type orderService interface {
	PlaceOrder(ctx context.Context, sess *model.Session) (*model.Order, error)
	ListMine(ctx context.Context, sess *model.Session) ([]model.Order, error)
	CancelMine(ctx context.Context, sess *model.Session, orderID uuid.UUID) (*model.Order, error)
}

type OrderHandler struct {
	svc   orderService
	money *format.Money
}

func NewOrderHandler(svc orderService, money *format.Money) *OrderHandler {
	return &OrderHandler{svc: svc, money: money}
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	order, err := h.svc.PlaceOrder(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order, h.money))
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	orders, err := h.svc.ListMine(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders, h.money))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.svc.CancelMine(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order, h.money))
}
