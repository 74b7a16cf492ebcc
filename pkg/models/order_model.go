package models

import (
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"
	"github.com/shopspring/decimal"
)

// Order maps to table `orders` with its `order_items`.
type Order struct {
	Reference     string
	PaymentStatus pkg.PaymentStatus
	ReceiptURL    *string
	ConfirmedAt   *time.Time
	Customer      Customer
	Items         []LineItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

// LineItem maps to table `order_items`; Position keeps the checkout ordering stable.
type LineItem struct {
	Position  int
	Name      string
	Quantity  int
	UnitValue decimal.Decimal
}

func (o Order) IsConfirmed() bool {
	return o.PaymentStatus == pkg.PaymentStatusConfirmed
}

// ToConfirmedEvent builds the event published after a confirmation. It returns false when
// the order does not carry confirmation data.
func (o Order) ToConfirmedEvent() (views.PaymentConfirmedEvent, bool) {
	if !o.IsConfirmed() || o.ReceiptURL == nil || o.ConfirmedAt == nil {
		return views.PaymentConfirmedEvent{}, false
	}
	return views.PaymentConfirmedEvent{
		EventType:      views.EventPaymentConfirmed,
		OrderReference: o.Reference,
		ReceiptURL:     *o.ReceiptURL,
		ConfirmedAt:    *o.ConfirmedAt,
	}, true
}
