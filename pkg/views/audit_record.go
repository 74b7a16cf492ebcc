package views

import "time"

type AuditRecord struct {
	OrderReference string    `json:"orderReference"`
	ReceiptURL     string    `json:"receiptUrl"`
	RecordedAt     time.Time `json:"recordedAt"`
}
