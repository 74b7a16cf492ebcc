package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/shopspring/decimal"
)

// OrderRepository is the adapter to the order store.
type OrderRepository interface {
	// Create inserts an order and its line items. Re-running it for an existing reference is a no-op.
	Create(ctx context.Context, q database.Querier, order models.Order) error
	// FindByReference loads an order with its items. Returns pkg.ErrUnknownOrder when missing.
	FindByReference(ctx context.Context, q database.Querier, reference string) (models.Order, error)
	// ConfirmPayment moves a pending order to confirmed. It reports false when the order was
	// not pending, so a concurrent writer that already confirmed it is never overwritten.
	ConfirmPayment(ctx context.Context, q database.Querier, reference, receiptURL string, confirmedAt time.Time) (bool, error)
	// AddNote appends a free-text note to the order history.
	AddNote(ctx context.Context, q database.Querier, reference, note string) error
}

type OrderRepositoryImpl struct {
}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (o OrderRepositoryImpl) Create(ctx context.Context, q database.Querier, order models.Order) error {
	if order.Reference == "" {
		return errors.New("order reference cannot be empty")
	}
	status := order.PaymentStatus
	if status == "" {
		status = pkg.PaymentStatusPending
	}
	now := time.Now().UTC()
	_, err := q.Exec(ctx, `
						INSERT INTO orders (reference, payment_status, receipt_url, confirmed_at, customer_name, customer_email, customer_phone, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING`,
		order.Reference,
		status,
		order.ReceiptURL,
		order.ConfirmedAt,
		order.Customer.Name,
		order.Customer.Email,
		order.Customer.Phone,
		now,
		now,
	)
	if err != nil {
		return err
	}
	for i, item := range order.Items {
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		_, err = q.Exec(ctx, `
						INSERT INTO order_items (order_reference, position, name, quantity, unit_value)
						VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
			order.Reference,
			position,
			item.Name,
			item.Quantity,
			item.UnitValue.StringFixed(2),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (o OrderRepositoryImpl) FindByReference(ctx context.Context, q database.Querier, reference string) (models.Order, error) {
	var order models.Order
	err := q.QueryRow(ctx, `
						SELECT reference, payment_status, receipt_url, confirmed_at, customer_name, customer_email, customer_phone, created_at, updated_at
						FROM orders WHERE reference = $1`, reference).Scan(
		&order.Reference,
		&order.PaymentStatus,
		&order.ReceiptURL,
		&order.ConfirmedAt,
		&order.Customer.Name,
		&order.Customer.Email,
		&order.Customer.Phone,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: %s", pkg.ErrUnknownOrder, reference)
	}
	if err != nil {
		return models.Order{}, err
	}

	rows, err := q.Query(ctx, `
						SELECT position, name, quantity, unit_value::text
						FROM order_items WHERE order_reference = $1 ORDER BY position`, reference)
	if err != nil {
		return models.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item  models.LineItem
			value string
		)
		if err = rows.Scan(&item.Position, &item.Name, &item.Quantity, &value); err != nil {
			return models.Order{}, err
		}
		if item.UnitValue, err = decimal.NewFromString(value); err != nil {
			return models.Order{}, fmt.Errorf("order %s item %d: %w", reference, item.Position, err)
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (o OrderRepositoryImpl) ConfirmPayment(ctx context.Context, q database.Querier, reference, receiptURL string, confirmedAt time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
						UPDATE orders SET payment_status = $1, receipt_url = $2, confirmed_at = $3, updated_at = NOW()
						WHERE reference = $4 AND payment_status = $5`,
		pkg.PaymentStatusConfirmed, receiptURL, confirmedAt, reference, pkg.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (o OrderRepositoryImpl) AddNote(ctx context.Context, q database.Querier, reference, note string) error {
	_, err := q.Exec(ctx, `INSERT INTO order_notes (order_reference, note) VALUES ($1, $2)`, reference, note)
	return err
}
