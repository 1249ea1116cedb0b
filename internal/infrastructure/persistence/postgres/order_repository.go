package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/domain"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, order_key, payment_method, amount_cents, currency, status,
		       transaction_id, captured, installments, created_at, updated_at`

// OrderRepository persists the order aggregate. Notes carried on a loaded
// aggregate are pending audit lines and get inserted on the next Update.
type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
            id, order_key, payment_method, amount_cents, currency, status,
            transaction_id, captured, installments, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	o := toDBModel(order)
	_, err := r.db.Pool.Exec(ctx, query,
		o.ID,
		o.OrderKey,
		o.PaymentMethod,
		o.AmountCents,
		o.Currency,
		o.Status,
		o.TransactionID,
		o.Captured,
		o.Installments,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// FindByID retrieves an order
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	return scanOrder(row, id)
}

// findByIDForUpdate retrieves an order with a row-level lock.
func (r *OrderRepository) findByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	row := tx.QueryRow(ctx, query, id)
	return scanOrder(row, id)
}

// Update writes the aggregate and appends any pending notes.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.persist(ctx, r.db.Pool, order)
}

// WithOrderLock runs fn against the order inside a transaction holding a
// row lock on it, so overlapping notifications for the same order serialize
// their read-modify-write. The mutated aggregate is persisted on nil return.
func (r *OrderRepository) WithOrderLock(ctx context.Context, id int64, fn func(order *domain.Order) error) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := r.findByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := fn(order); err != nil {
		return err
	}

	if err := r.persist(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindStalePending returns orders still awaiting payment after olderThan
// that already carry a transaction id, oldest first.
func (r *OrderRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN ('PENDING', 'ON_HOLD')
		  AND transaction_id <> ''
		  AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o dbOrder
		err := rows.Scan(
			&o.ID, &o.OrderKey, &o.PaymentMethod, &o.AmountCents, &o.Currency,
			&o.Status, &o.TransactionID, &o.Captured, &o.Installments,
			&o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, toDomain(&o))
	}
	return orders, rows.Err()
}

// FindNotes returns an order's audit notes, oldest first.
func (r *OrderRepository) FindNotes(ctx context.Context, orderID int64) ([]domain.OrderNote, error) {
	query := `SELECT order_id, note, created_at FROM order_notes WHERE order_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *OrderRepository) persist(ctx context.Context, q Executor, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, transaction_id = $3, captured = $4,
		    installments = $5, updated_at = $6
		WHERE id = $1
	`

	o := toDBModel(order)
	tag, err := q.Exec(ctx, query,
		o.ID, o.Status, o.TransactionID, o.Captured, o.Installments, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotFoundError(order.ID)
	}

	for _, note := range order.Notes {
		_, err := q.Exec(ctx,
			`INSERT INTO order_notes (order_id, note, created_at) VALUES ($1, $2, $3)`,
			note.OrderID, note.Note, note.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append order note: %w", err)
		}
	}
	order.Notes = nil

	return nil
}

func scanOrder(row pgx.Row, id int64) (*domain.Order, error) {
	var o dbOrder
	err := row.Scan(
		&o.ID, &o.OrderKey, &o.PaymentMethod, &o.AmountCents, &o.Currency,
		&o.Status, &o.TransactionID, &o.Captured, &o.Installments,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return toDomain(&o), nil
}
