package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
)

// AuditRepository is the append-only log of confirmed payments. It intentionally has no
// update or delete operation, and the table rejects both at the database level.
type AuditRepository interface {
	// Append inserts the record once per order reference. It reports false when a record
	// for the reference already exists.
	Append(ctx context.Context, q database.Querier, record models.AuditRecord) (bool, error)
	// FindByReference returns the record of an order, if any.
	FindByReference(ctx context.Context, q database.Querier, reference string) (models.AuditRecord, bool, error)
	// List returns records most-recent-first.
	List(ctx context.Context, q database.Querier, limit, offset int) ([]models.AuditRecord, error)
}

type AuditRepositoryImpl struct {
}

func NewAuditRepository() AuditRepository {
	return &AuditRepositoryImpl{}
}

func (a AuditRepositoryImpl) Append(ctx context.Context, q database.Querier, record models.AuditRecord) (bool, error) {
	if record.OrderReference == "" || record.ReceiptURL == "" {
		return false, errors.New("audit record requires order reference and receipt url")
	}
	tag, err := q.Exec(ctx, `
						INSERT INTO payment_audit (order_reference, receipt_url, recorded_at)
						VALUES ($1, $2, $3) ON CONFLICT (order_reference) DO NOTHING`,
		record.OrderReference,
		record.ReceiptURL,
		record.RecordedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (a AuditRepositoryImpl) FindByReference(ctx context.Context, q database.Querier, reference string) (models.AuditRecord, bool, error) {
	var record models.AuditRecord
	err := q.QueryRow(ctx, `
						SELECT id, order_reference, receipt_url, recorded_at
						FROM payment_audit WHERE order_reference = $1`, reference).Scan(
		&record.ID, &record.OrderReference, &record.ReceiptURL, &record.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AuditRecord{}, false, nil
	}
	if err != nil {
		return models.AuditRecord{}, false, err
	}
	return record, true, nil
}

func (a AuditRepositoryImpl) List(ctx context.Context, q database.Querier, limit, offset int) ([]models.AuditRecord, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("invalid page: limit=%d offset=%d", limit, offset)
	}
	rows, err := q.Query(ctx, `
						SELECT id, order_reference, receipt_url, recorded_at
						FROM payment_audit
						ORDER BY recorded_at DESC, id DESC
						LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.AuditRecord, 0, limit)
	for rows.Next() {
		var record models.AuditRecord
		if err = rows.Scan(&record.ID, &record.OrderReference, &record.ReceiptURL, &record.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
