package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/store"
)

// CartRepository keeps one cart per shopper in the key-value store.
type CartRepository interface {
	// Load never fails for a missing cart; it returns an empty one.
	Load(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	Save(ctx context.Context, userID uuid.UUID, cart *model.Cart) error
	Clear(ctx context.Context, userID uuid.UUID) error
	// Watch streams every saved cart. A cleared cart arrives as an empty one.
	Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Cart, error)
}

type kvCartRepo struct{ kv store.Store }

func NewCartRepository(kv store.Store) CartRepository {
	return &kvCartRepo{kv: kv}
}

func (r *kvCartRepo) Load(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	raw, err := r.kv.Get(ctx, store.CartKey(userID.String()))
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return decodeCart(raw)
}

func (r *kvCartRepo) Save(ctx context.Context, userID uuid.UUID, cart *model.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.kv.Set(ctx, store.CartKey(userID.String()), raw, 0); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *kvCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.kv.Delete(ctx, store.CartKey(userID.String())); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *kvCartRepo) Watch(ctx context.Context, userID uuid.UUID) (<-chan *model.Cart, error) {
	changes, err := r.kv.Watch(ctx, store.CartKey(userID.String()))
	if err != nil {
		return nil, fmt.Errorf("watch cart: %w", err)
	}
	out := make(chan *model.Cart)
	go func() {
		defer close(out)
		for ch := range changes {
			cart, err := decodeCart(ch.Value)
			if err != nil {
				continue
			}
			select {
			case out <- cart:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func decodeCart(raw []byte) (*model.Cart, error) {
	cart := &model.Cart{Lines: []model.CartLine{}}
	if len(raw) == 0 {
		return cart, nil
	}
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = []model.CartLine{}
	}
	return cart, nil
}
