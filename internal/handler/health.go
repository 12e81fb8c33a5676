package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const readyTimeout = 2 * time.Second

type dependency struct {
	name string
	ping func(ctx context.Context) error
}

type HealthHandler struct {
	deps []dependency
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{deps: []dependency{
		{name: "postgres", ping: dbPool.Ping},
		{name: "redis", ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		{name: "rabbitmq", ping: func(context.Context) error {
			if amqpConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}},
	}}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for _, d := range h.deps {
		if err := d.ping(ctx); err != nil {
			body[d.name] = "unavailable"
			body["status"] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[d.name] = "connected"
	}
	c.JSON(status, body)
}
