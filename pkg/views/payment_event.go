package views

import "time"

const EventPaymentConfirmed = "payment.confirmed"

// PaymentConfirmedEvent is published once an order transitions to confirmed.
type PaymentConfirmedEvent struct {
	EventType      string    `json:"eventType"`
	OrderReference string    `json:"orderReference"`
	ReceiptURL     string    `json:"receiptUrl"`
	ConfirmedAt    time.Time `json:"confirmedAt"`
}
