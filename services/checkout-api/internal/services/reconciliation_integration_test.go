package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingAuditRepo struct {
	repositories.AuditRepository
}

func (failingAuditRepo) Append(context.Context, database.Querier, models.AuditRecord) (bool, error) {
	return false, errors.New("disk full")
}

func startStore(t *testing.T) *database.DB {
	t.Helper()
	dsn := testutils.StartPostgres(t)
	logger := zap.NewNop()
	require.NoError(t, database.RunMigrations(logger, dsn))
	db, disconnect, err := database.New(context.Background(), logger, database.Config{PrimaryDSN: dsn, MaxConns: 20, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(disconnect)
	return db
}

func TestReconciliation_Postgres(t *testing.T) {
	db := startStore(t)
	ctx := context.Background()
	orderRepo := repositories.NewOrderRepository()
	auditRepo := repositories.NewAuditRepository()
	require.NoError(t, orderRepo.Create(ctx, db, widgetOrder("ORD-1001")))
	require.NoError(t, orderRepo.Create(ctx, db, widgetOrder("ORD-2002")))

	newEngine := func(audits repositories.AuditRepository) ReconciliationService {
		return NewReconciliationService(ReconciliationConfig{
			Logger:       zap.NewNop(),
			Store:        db,
			OrderRepo:    orderRepo,
			AuditRepo:    audits,
			StatusClient: &fakeStatusClient{result: PaymentStatusResult{Status: pkg.ProviderStatusPaid, ReceiptURL: "https://r/1"}},
			// Without a lease, concurrent callbacks rely on the conditional update alone.
			Locker:          failingLocker{},
			Settings:        PaymentMethodSettings{Handle: "merchant-x", Enabled: true},
			ConfirmationURL: confirmationPage,
			Timeout:         10 * time.Second,
		})
	}

	t.Run("concurrent callbacks confirm once", func(t *testing.T) {
		engine := newEngine(auditRepo)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := engine.HandleReturn(ctx, "trace", ReturnCallback{OrderReference: "ORD-1001"})
				assert.NoError(t, err)
				assert.Equal(t, confirmationPage, result.RedirectURL)
			}()
		}
		wg.Wait()

		order, err := orderRepo.FindByReference(ctx, db, "ORD-1001")
		require.NoError(t, err)
		assert.True(t, order.IsConfirmed())
		assert.Equal(t, "https://r/1", *order.ReceiptURL)

		records, err := auditRepo.List(ctx, db, 50, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "ORD-1001", records[0].OrderReference)

		var notes int
		require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM order_notes WHERE order_reference = $1`, "ORD-1001").Scan(&notes))
		assert.Equal(t, 1, notes)
	})

	t.Run("failed audit append rolls back the confirmation", func(t *testing.T) {
		result, err := newEngine(failingAuditRepo{auditRepo}).HandleReturn(ctx, "trace", ReturnCallback{OrderReference: "ORD-2002"})

		assert.ErrorIs(t, err, pkg.ErrPersistence)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		order, err := orderRepo.FindByReference(ctx, db, "ORD-2002")
		require.NoError(t, err)
		assert.Equal(t, pkg.PaymentStatusPending, order.PaymentStatus)
		assert.Nil(t, order.ReceiptURL)

		result, err = newEngine(auditRepo).HandleReturn(ctx, "trace", ReturnCallback{OrderReference: "ORD-2002"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, result.Outcome)
	})
}
