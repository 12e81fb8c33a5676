package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

// SearchResult carries the matching products and the distinct categories
// among them, in the order they first appear.
type SearchResult struct {
	Products   []model.Product
	Categories []string
}

// CatalogService serves shopper-facing reads. Archived products never leave it.
type CatalogService struct {
	productRepo repository.ProductRepository
	cache       *ProductCache
}

func NewCatalogService(productRepo repository.ProductRepository, cache *ProductCache) *CatalogService {
	return &CatalogService{productRepo: productRepo, cache: cache}
}

// Search callers are expected to debounce keystroke-driven input.
func (s *CatalogService) Search(ctx context.Context, term, category string) (*SearchResult, error) {
	products, err := s.productRepo.List(ctx, repository.ProductFilter{
		Search:   strings.TrimSpace(term),
		Category: strings.TrimSpace(category),
	})
	if err != nil {
		return nil, model.StorageFailure("search products", err)
	}

	res := &SearchResult{Products: make([]model.Product, 0, len(products)), Categories: []string{}}
	seen := make(map[string]struct{})
	for _, p := range products {
		if p.Archived {
			continue
		}
		res.Products = append(res.Products, p)
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		res.Categories = append(res.Categories, p.Category)
	}
	return res, nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if p := s.cache.Get(ctx, id); p != nil {
		if p.Archived {
			return nil, model.ErrProductNotFound
		}
		return p, nil
	}

	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, model.StorageFailure("get product", err)
	}
	if p == nil || p.Archived {
		return nil, model.ErrProductNotFound
	}
	s.cache.Put(ctx, p)
	return p, nil
}
