package services

import (
	"context"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"
	"go.uber.org/zap"
)

const (
	DefaultAuditPageSize = 50
	MaxAuditPageSize     = 200
)

// AuditService is the read side of the payment audit log.
type AuditService interface {
	ListAuditRecords(ctx context.Context, traceID string, limit, offset int) ([]views.AuditRecord, error)
}

type AuditServiceImpl struct {
	logger    *zap.Logger
	store     database.Store
	auditRepo repositories.AuditRepository
}

func NewAuditService(logger *zap.Logger, store database.Store, auditRepo repositories.AuditRepository) AuditService {
	return &AuditServiceImpl{logger: logger, store: store, auditRepo: auditRepo}
}

func (a *AuditServiceImpl) ListAuditRecords(ctx context.Context, traceID string, limit, offset int) ([]views.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultAuditPageSize
	}
	if limit > MaxAuditPageSize {
		limit = MaxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}
	records, err := a.auditRepo.List(ctx, a.store, limit, offset)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, a.logger, err)
	}
	out := make([]views.AuditRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.ToView())
	}
	return out, nil
}
