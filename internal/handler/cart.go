package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/model"
)

type cartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	AddLine(ctx context.Context, userID, productID uuid.UUID, size string) (*model.Cart, bool, error)
	SetQuantity(ctx context.Context, userID uuid.UUID, index, delta int) (*model.Cart, error)
	ChangeSize(ctx context.Context, userID uuid.UUID, index int, size string) (*model.Cart, error)
	RemoveLine(ctx context.Context, userID uuid.UUID, index int) (*model.Cart, error)
	Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Cart, error)
}

type sessionWatcher interface {
	Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Session, error)
}

type CartHandler struct {
	svc      cartService
	sessions sessionWatcher
	money    *format.Money
	log      *slog.Logger
}

func NewCartHandler(svc cartService, sessions sessionWatcher, money *format.Money, log *slog.Logger) *CartHandler {
	return &CartHandler{svc: svc, sessions: sessions, money: money, log: log}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.Get(c.Request.Context(), middleware.GetSession(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart, h.money))
}

func (h *CartHandler) AddLine(c *gin.Context) {
	var req dto.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, added, err := h.svc.AddLine(c.Request.Context(), middleware.GetSession(c).UserID, req.ProductID, req.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := toCartResponse(cart, h.money)
	resp.Added = &added
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *CartHandler) SetQuantity(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	var req dto.QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.SetQuantity(c.Request.Context(), middleware.GetSession(c).UserID, index, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart, h.money))
}

func (h *CartHandler) ChangeSize(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	var req dto.SizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.ChangeSize(c.Request.Context(), middleware.GetSession(c).UserID, index, req.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart, h.money))
}

func (h *CartHandler) RemoveLine(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	cart, err := h.svc.RemoveLine(c.Request.Context(), middleware.GetSession(c).UserID, index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart, h.money))
}

// Events streams the shopper's cart as server-sent events. The current cart is
// sent first. The stream ends with a signed_out event when the session goes away.
func (h *CartHandler) Events(c *gin.Context) {
	sess := middleware.GetSession(c)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	carts, err := h.svc.Watch(ctx, sess.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	sessions, err := h.sessions.Watch(ctx, sess.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	current, err := h.svc.Get(ctx, sess.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	log := h.log.With("user_id", sess.UserID)
	log.Debug("cart stream opened")
	defer log.Debug("cart stream closed")

	c.SSEvent("cart", toCartResponse(current, h.money))
	c.Writer.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case cart, ok := <-carts:
			if !ok {
				return
			}
			c.SSEvent("cart", toCartResponse(cart, h.money))
		case s, ok := <-sessions:
			if !ok {
				return
			}
			if s == nil {
				c.SSEvent("signed_out", gin.H{})
				c.Writer.Flush()
				return
			}
			c.SSEvent("session", toSessionResponse(s))
		}
		c.Writer.Flush()
	}
}
