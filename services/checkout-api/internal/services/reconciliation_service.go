package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/cache"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/observability"
	"go.uber.org/zap"
)

type ReconcileOutcome string

const (
	OutcomeConfirmed        ReconcileOutcome = "confirmed"
	OutcomeAlreadyConfirmed ReconcileOutcome = "already_confirmed"
	OutcomeUnpaid           ReconcileOutcome = "unpaid"
	OutcomeUnknown          ReconcileOutcome = "unknown"
	OutcomeUnknownOrder     ReconcileOutcome = "unknown_order"
	OutcomeRejected         ReconcileOutcome = "rejected"
	OutcomeFailed           ReconcileOutcome = "failed"
)

const confirmationNote = "Payment confirmed via hosted checkout. Receipt: %s"

// ReturnCallback is what the buyer's browser brings back from the provider. None of it is trusted.
type ReturnCallback struct {
	OrderReference string
	Signature      string
}

// ReturnResult always carries a redirect target, whatever the outcome.
type ReturnResult struct {
	RedirectURL string
	Outcome     ReconcileOutcome
}

// ReconciliationService turns a payment return into at most one Pending to Confirmed transition.
type ReconciliationService interface {
	// HandleReturn reconciles one callback. The returned error describes a non-fatal failure
	// that has already been logged; callers redirect to ReturnResult.RedirectURL regardless.
	HandleReturn(ctx context.Context, traceID string, callback ReturnCallback) (ReturnResult, error)
}

type ReconciliationConfig struct {
	Logger          *zap.Logger
	Store           database.Store
	OrderRepo       repositories.OrderRepository
	AuditRepo       repositories.AuditRepository
	StatusClient    PaymentStatusClient
	Locker          cache.Locker
	Limiter         pkg.RateLimiter
	Publisher       PaymentEventPublisher
	Settings        PaymentMethodSettings
	ConfirmationURL string
	SigningKey      []byte
	Timeout         time.Duration
	Now             func() time.Time
}

type ReconciliationServiceImpl struct {
	ReconciliationConfig
}

func NewReconciliationService(cfg ReconciliationConfig) ReconciliationService {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Publisher == nil {
		cfg.Publisher = NoopPaymentEventPublisher{}
	}
	if cfg.Locker == nil {
		cfg.Locker = cache.NewLocalLocker(10 * time.Second)
	}
	return &ReconciliationServiceImpl{ReconciliationConfig: cfg}
}

func (r *ReconciliationServiceImpl) HandleReturn(ctx context.Context, traceID string, callback ReturnCallback) (ReturnResult, error) {
	start := time.Now()
	// Used verbatim: the return URL was signed over the stored reference as-is.
	reference := callback.OrderReference
	logger := r.Logger.With(zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderReference, reference))

	// The buyer may close the tab mid-way; the confirmation must not be cut short by that.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	defer cancel()

	outcome, err := r.reconcile(ctx, logger, reference, callback.Signature)

	observability.ReconcileOutcomes.WithLabelValues(string(outcome)).Inc()
	observability.ReconcileLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("payment_return_not_reconciled", zap.String("outcome", string(outcome)), zap.Error(err))
	} else {
		logger.Info("payment_return_reconciled", zap.String("outcome", string(outcome)))
	}
	return ReturnResult{RedirectURL: r.ConfirmationURL, Outcome: outcome}, err
}

func (r *ReconciliationServiceImpl) reconcile(ctx context.Context, logger *zap.Logger, reference, signature string) (ReconcileOutcome, error) {
	if utils.IsEmpty(reference) {
		return OutcomeUnknownOrder, pkg.NewAppError(pkg.ErrUnknownOrderCode, "missing order reference", pkg.ErrUnknownOrder)
	}
	if len(r.SigningKey) > 0 && !utils.VerifyReference(reference, signature, r.SigningKey) {
		return OutcomeRejected, pkg.NewAppError(pkg.ErrUnknownOrderCode, "return signature mismatch", pkg.ErrInvalidSignature)
	}

	release, err := r.Locker.Acquire(ctx, reference)
	if err != nil {
		// The conditional update still guarantees a single confirmation.
		observability.LeaseFailures.Inc()
		logger.Warn("reconcile_lease_not_acquired", zap.Error(err))
	} else {
		defer release()
	}

	order, err := r.OrderRepo.FindByReference(ctx, r.Store, reference)
	if err != nil {
		if errors.Is(err, pkg.ErrUnknownOrder) {
			return OutcomeUnknownOrder, pkg.NewAppError(pkg.ErrUnknownOrderCode, "order not found", err)
		}
		return OutcomeFailed, persistenceError("failed to load order", err)
	}

	if order.IsConfirmed() {
		if err = r.ensureAudit(ctx, logger, r.Store, order); err != nil {
			return OutcomeFailed, persistenceError("failed to repair audit record", err)
		}
		return OutcomeAlreadyConfirmed, nil
	}

	if r.Limiter != nil && !r.Limiter.Allow(ctx) {
		return OutcomeUnknown, pkg.NewAppError(pkg.ErrStatusCheckCode, "status check throttled",
			fmt.Errorf("%w: %w", pkg.ErrStatusCheck, pkg.ErrRateLimitExceeded))
	}

	status, err := r.StatusClient.FetchStatus(ctx, r.Settings.Handle)
	if err != nil {
		return OutcomeUnknown, err
	}
	if status.OrderReference != "" && status.OrderReference != reference {
		return OutcomeUnknown, pkg.NewAppError(pkg.ErrStatusCheckCode, "provider status belongs to another order",
			fmt.Errorf("%w: provider reported order %s", pkg.ErrStatusCheck, status.OrderReference))
	}
	if status.Status != pkg.ProviderStatusPaid {
		return OutcomeUnpaid, nil
	}

	confirmedAt := r.Now()
	won := false
	err = r.Store.WithTransaction(ctx, func(ctx context.Context, q database.Querier) error {
		var txErr error
		won, txErr = r.OrderRepo.ConfirmPayment(ctx, q, reference, status.ReceiptURL, confirmedAt)
		if txErr != nil {
			return txErr
		}
		if !won {
			// A concurrent writer confirmed first; keep its receipt and only fill a missing audit.
			current, txErr := r.OrderRepo.FindByReference(ctx, q, reference)
			if txErr != nil {
				return txErr
			}
			return r.ensureAudit(ctx, logger, q, current)
		}
		if _, txErr = r.AuditRepo.Append(ctx, q, models.AuditRecord{
			OrderReference: reference,
			ReceiptURL:     status.ReceiptURL,
			RecordedAt:     confirmedAt,
		}); txErr != nil {
			return txErr
		}
		return r.OrderRepo.AddNote(ctx, q, reference, fmt.Sprintf(confirmationNote, status.ReceiptURL))
	})
	if err != nil {
		return OutcomeFailed, persistenceError("failed to record confirmation", err)
	}
	if !won {
		return OutcomeAlreadyConfirmed, nil
	}

	order.PaymentStatus = pkg.PaymentStatusConfirmed
	order.ReceiptURL = &status.ReceiptURL
	order.ConfirmedAt = &confirmedAt
	if event, ok := order.ToConfirmedEvent(); ok {
		if err = r.Publisher.PublishConfirmed(event); err != nil {
			logger.Warn("payment_event_publish_failed", zap.Error(err))
		}
	}
	return OutcomeConfirmed, nil
}

// ensureAudit appends the audit record of a confirmed order when it is missing.
func (r *ReconciliationServiceImpl) ensureAudit(ctx context.Context, logger *zap.Logger, q database.Querier, order models.Order) error {
	if !order.IsConfirmed() {
		return fmt.Errorf("order %s is not confirmed", order.Reference)
	}
	if order.ReceiptURL == nil || order.ConfirmedAt == nil {
		return fmt.Errorf("order %s is confirmed without receipt data", order.Reference)
	}
	_, found, err := r.AuditRepo.FindByReference(ctx, q, order.Reference)
	if err != nil || found {
		return err
	}
	inserted, err := r.AuditRepo.Append(ctx, q, models.AuditRecord{
		OrderReference: order.Reference,
		ReceiptURL:     *order.ReceiptURL,
		RecordedAt:     *order.ConfirmedAt,
	})
	if err != nil {
		return err
	}
	if inserted {
		logger.Warn("audit_record_repaired")
	}
	return nil
}

func persistenceError(msg string, err error) error {
	return pkg.NewAppError(pkg.ErrPersistenceCode, msg, fmt.Errorf("%w: %w", pkg.ErrPersistence, err))
}
