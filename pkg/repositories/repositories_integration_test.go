package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/testutils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := testutils.StartPostgres(t)
	logger := zap.NewNop()
	require.NoError(t, database.RunMigrations(logger, dsn))
	// Re-running is a no-op.
	require.NoError(t, database.RunMigrations(logger, dsn))
	version, dirty, err := database.SchemaVersion(dsn)
	require.NoError(t, err)
	require.Equal(t, uint(2), version)
	require.False(t, dirty)
	db, disconnect, err := database.New(context.Background(), logger, database.Config{PrimaryDSN: dsn, MaxConns: 5, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(disconnect)
	return db
}

func sampleOrder(reference string) models.Order {
	return models.Order{
		Reference: reference,
		Customer:  models.Customer{Name: "Ana Silva", Email: "ana@example.com", Phone: "+5511999990000"},
		Items: []models.LineItem{
			{Name: "Widget", Quantity: 2, UnitValue: decimal.RequireFromString("19.99")},
			{Name: "Gift wrap", Quantity: 1, UnitValue: decimal.RequireFromString("2.5")},
		},
	}
}

func TestRepositories_Postgres(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	orders := NewOrderRepository()
	audits := NewAuditRepository()

	t.Run("order round trip", func(t *testing.T) {
		require.NoError(t, orders.Create(ctx, db, sampleOrder("ORD-1001")))
		require.NoError(t, orders.Create(ctx, db, sampleOrder("ORD-1001")), "create is idempotent")

		order, err := orders.FindByReference(ctx, db, "ORD-1001")
		require.NoError(t, err)
		assert.Equal(t, pkg.PaymentStatusPending, order.PaymentStatus)
		assert.Nil(t, order.ReceiptURL)
		assert.Nil(t, order.ConfirmedAt)
		assert.Equal(t, "ana@example.com", order.Customer.Email)
		require.Len(t, order.Items, 2)
		assert.Equal(t, 1, order.Items[0].Position)
		assert.Equal(t, "19.99", order.Items[0].UnitValue.StringFixed(2))
		assert.Equal(t, "2.50", order.Items[1].UnitValue.StringFixed(2))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := orders.FindByReference(ctx, db, "ORD-404")
		assert.ErrorIs(t, err, pkg.ErrUnknownOrder)
	})

	t.Run("confirm is compare-and-set", func(t *testing.T) {
		require.NoError(t, orders.Create(ctx, db, sampleOrder("ORD-2002")))
		confirmedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

		won, err := orders.ConfirmPayment(ctx, db, "ORD-2002", "https://r/1", confirmedAt)
		require.NoError(t, err)
		assert.True(t, won)

		won, err = orders.ConfirmPayment(ctx, db, "ORD-2002", "https://r/2", confirmedAt.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, won)

		order, err := orders.FindByReference(ctx, db, "ORD-2002")
		require.NoError(t, err)
		assert.True(t, order.IsConfirmed())
		assert.Equal(t, "https://r/1", *order.ReceiptURL)
		assert.True(t, confirmedAt.Equal(*order.ConfirmedAt))

		won, err = orders.ConfirmPayment(ctx, db, "ORD-404", "https://r/3", confirmedAt)
		require.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("notes", func(t *testing.T) {
		require.NoError(t, orders.AddNote(ctx, db, "ORD-1001", "Checkout QR code: https://qr"))
		assert.Error(t, orders.AddNote(ctx, db, "ORD-404", "orphan"), "notes need an existing order")
	})

	t.Run("audit append is once per order", func(t *testing.T) {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, ref := range []string{"ORD-A", "ORD-B", "ORD-C"} {
			inserted, err := audits.Append(ctx, db, models.AuditRecord{OrderReference: ref, ReceiptURL: "https://r/" + ref, RecordedAt: base.Add(time.Duration(i) * time.Minute)})
			require.NoError(t, err)
			assert.True(t, inserted)
		}
		inserted, err := audits.Append(ctx, db, models.AuditRecord{OrderReference: "ORD-A", ReceiptURL: "https://r/other", RecordedAt: base})
		require.NoError(t, err)
		assert.False(t, inserted)

		record, found, err := audits.FindByReference(ctx, db, "ORD-A")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "https://r/ORD-A", record.ReceiptURL)

		_, found, err = audits.FindByReference(ctx, db, "ORD-Z")
		require.NoError(t, err)
		assert.False(t, found)

		page, err := audits.List(ctx, db, 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "ORD-C", page[0].OrderReference)
		assert.Equal(t, "ORD-B", page[1].OrderReference)

		page, err = audits.List(ctx, db, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "ORD-A", page[0].OrderReference)

		_, err = audits.List(ctx, db, 0, 0)
		assert.Error(t, err)
	})

	t.Run("audit rows cannot be changed", func(t *testing.T) {
		_, err := db.Exec(ctx, `UPDATE payment_audit SET receipt_url = 'x' WHERE order_reference = 'ORD-A'`)
		assert.ErrorContains(t, err, "append-only")
		_, err = db.Exec(ctx, `DELETE FROM payment_audit WHERE order_reference = 'ORD-A'`)
		assert.ErrorContains(t, err, "append-only")
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		require.NoError(t, orders.Create(ctx, db, sampleOrder("ORD-3003")))
		err := db.WithTransaction(ctx, func(ctx context.Context, q database.Querier) error {
			if _, err := orders.ConfirmPayment(ctx, q, "ORD-3003", "https://r/1", time.Now()); err != nil {
				return err
			}
			_, err := audits.Append(ctx, q, models.AuditRecord{})
			return err
		})
		require.Error(t, err)

		order, err := orders.FindByReference(ctx, db, "ORD-3003")
		require.NoError(t, err)
		assert.Equal(t, pkg.PaymentStatusPending, order.PaymentStatus)
	})
}
