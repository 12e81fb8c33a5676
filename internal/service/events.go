package service

import (
	"context"

	"github.com/flicky/storefront/internal/model"
)

// EventPublisher announces order status changes to asynchronous consumers.
type EventPublisher interface {
	PublishStatus(ctx context.Context, event model.OrderEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishStatus(context.Context, model.OrderEvent) error { return nil }
