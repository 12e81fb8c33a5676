package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/format"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/service"
)

type catalogService interface {
	Search(ctx context.Context, term, category string) (*service.SearchResult, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

type ProductHandler struct {
	svc   catalogService
	money *format.Money
}

func NewProductHandler(svc catalogService, money *format.Money) *ProductHandler {
	return &ProductHandler{svc: svc, money: money}
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.SearchProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Search(c.Request.Context(), req.Query, req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	items := toProductList(res.Products, h.money)
	c.JSON(http.StatusOK, dto.ProductListResponse{Products: items, Categories: res.Categories, Total: len(items)})
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p, h.money))
}
