package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront/internal/model"
)

type OrderRepository interface {
	// Create takes every reservation out of stock and inserts the order in one
	// transaction. A shortfall on any product aborts the whole order.
	Create(ctx context.Context, order *model.Order, reservations []model.StockReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByCustomer(ctx context.Context, email string) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	// UpdateStatus moves an order from one status to another and reports
	// whether the order was still in the from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)
	// DeleteCancelled refuses to delete anything that is not Cancelled.
	DeleteCancelled(ctx context.Context, id uuid.UUID) ([]model.StockReservation, error)
	// ReleaseReservations returns the order's reserved quantities to stock once.
	ReleaseReservations(ctx context.Context, id uuid.UUID) ([]model.StockReservation, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order, reservations []model.StockReservation) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, res := range reservations {
		if err := decrementStock(ctx, tx, res); err != nil {
			return err
		}
	}

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, customer_email, total_price, items, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`,
		order.ID, order.CustomerEmail, order.TotalPrice, items, order.Status,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if len(reservations) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"order_reservations"},
			[]string{"order_id", "product_id", "quantity"},
			pgx.CopyFromSlice(len(reservations), func(i int) ([]any, error) {
				return []any{order.ID, reservations[i].ProductID, reservations[i].Quantity}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert reservations: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

const orderColumns = `id, customer_email, total_price, items, status, created_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	var items []byte
	if err := row.Scan(&o.ID, &o.CustomerEmail, &o.TotalPrice, &items, &o.Status, &o.CreatedAt); err != nil {
		return err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return fmt.Errorf("decode order items: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByCustomer(ctx context.Context, email string) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_email = $1 ORDER BY created_at DESC`, email)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`, id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgOrderRepo) DeleteCancelled(ctx context.Context, id uuid.UUID) ([]model.StockReservation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status model.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if status != model.OrderStatusCancelled {
		return nil, model.ErrOrderNotCancelled
	}

	released, err := releaseReservations(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND status = $2`, id, model.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, model.ErrOrderNotCancelled
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return released, nil
}

func (r *pgOrderRepo) ReleaseReservations(ctx context.Context, id uuid.UUID) ([]model.StockReservation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	released, err := releaseReservations(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit release: %w", err)
	}
	return released, nil
}

func releaseReservations(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.StockReservation, error) {
	rows, err := tx.Query(ctx,
		`DELETE FROM order_reservations WHERE order_id = $1 RETURNING product_id, quantity`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("release reservations: %w", err)
	}
	var released []model.StockReservation
	for rows.Next() {
		var res model.StockReservation
		if err := rows.Scan(&res.ProductID, &res.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		released = append(released, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("release reservations: %w", err)
	}

	for _, res := range released {
		if err := incrementStock(ctx, tx, res); err != nil {
			return nil, err
		}
	}
	return released, nil
}
