package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
	"github.com/flicky/storefront/internal/service"
)

const (
	statusQueueName = "orders.status"
	dlxExchange     = "orders.dlx"
	dlqQueueName    = "orders.dlq"
	idempotencyTTL  = 24 * time.Hour
)

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, statusQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(statusQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": statusQueueName,
	}); err != nil {
		return fmt.Errorf("declare status queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

// StatusWorker consumes order status events. A cancellation returns the
// order's reserved stock exactly once.
type StatusWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	cache       *service.ProductCache
	redisClient *redis.Client
	log         *slog.Logger
}

func NewStatusWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	cache *service.ProductCache,
	redisClient *redis.Client,
	log *slog.Logger,
) *StatusWorker {
	return &StatusWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		cache:       cache,
		redisClient: redisClient,
		log:         log,
	}
}

// Run consumes until ctx is done or the broker closes the delivery channel.
func (w *StatusWorker) Run(ctx context.Context) error {
	msgs, err := w.channel.Consume(statusQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	w.log.Info("status worker started")
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			w.processMessage(ctx, msg)
		case <-ctx.Done():
			w.log.Info("status worker stopped")
			return nil
		}
	}
}

func (w *StatusWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var ev model.OrderEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.OrderID == uuid.Nil {
		w.log.Error("malformed status event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", ev.OrderID, "status", ev.Status)

	if ev.Status != model.OrderStatusCancelled {
		log.Info("order status changed")
		_ = msg.Ack(false)
		return
	}

	idempotencyKey := "order_released:" + ev.OrderID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("reservations already released, skipping")
		_ = msg.Ack(false)
		return
	}

	released, err := w.orderRepo.ReleaseReservations(ctx, ev.OrderID)
	if err != nil {
		log.Error("release reservations failed", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	ids := make([]uuid.UUID, len(released))
	for i, r := range released {
		ids[i] = r.ProductID
	}
	w.cache.Invalidate(ctx, ids...)

	_ = msg.Ack(false)
	log.Info("reservations released", "products", len(released))
}
