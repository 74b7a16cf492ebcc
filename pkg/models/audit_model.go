package models

import (
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"
)

// AuditRecord maps to the append-only table `payment_audit`.
type AuditRecord struct {
	ID             int64
	OrderReference string
	ReceiptURL     string
	RecordedAt     time.Time
}

func (a AuditRecord) ToView() views.AuditRecord {
	return views.AuditRecord{
		OrderReference: a.OrderReference,
		ReceiptURL:     a.ReceiptURL,
		RecordedAt:     a.RecordedAt,
	}
}
