package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/cart"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

// CartService applies cart rules to the stored cart, then saves it. Saving
// notifies every watcher of the shopper's cart.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	c, err := s.cartRepo.Load(ctx, userID)
	if err != nil {
		return nil, model.StorageFailure("load cart", err)
	}
	return c, nil
}

// AddLine reports whether the cart changed. A sold-out product or a line at its
// stock bound leaves the cart as it was and nothing is saved.
func (s *CartService) AddLine(ctx context.Context, userID, productID uuid.UUID, size string) (*model.Cart, bool, error) {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, false, model.StorageFailure("get product", err)
	}
	if p == nil || p.Archived {
		return nil, false, model.ErrProductNotFound
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	changed, err := cart.AddLine(c, p, size)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return c, false, nil
	}
	if err := s.save(ctx, userID, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *CartService) SetQuantity(ctx context.Context, userID uuid.UUID, index, delta int) (*model.Cart, error) {
	return s.mutate(ctx, userID, func(c *model.Cart) error {
		return cart.SetQuantity(c, index, delta)
	})
}

func (s *CartService) ChangeSize(ctx context.Context, userID uuid.UUID, index int, size string) (*model.Cart, error) {
	return s.mutate(ctx, userID, func(c *model.Cart) error {
		return cart.ChangeSize(c, index, size)
	})
}

func (s *CartService) RemoveLine(ctx context.Context, userID uuid.UUID, index int) (*model.Cart, error) {
	return s.mutate(ctx, userID, func(c *model.Cart) error {
		return cart.RemoveLine(c, index)
	})
}

func (s *CartService) Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Cart, error) {
	ch, err := s.cartRepo.Watch(ctx, userID)
	if err != nil {
		return nil, model.StorageFailure("watch cart", err)
	}
	return ch, nil
}

func (s *CartService) mutate(ctx context.Context, userID uuid.UUID, fn func(*model.Cart) error) (*model.Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CartService) save(ctx context.Context, userID uuid.UUID, c *model.Cart) error {
	if err := s.cartRepo.Save(ctx, userID, c); err != nil {
		return model.StorageFailure("save cart", err)
	}
	return nil
}
