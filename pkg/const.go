package pkg

const HeaderTraceId string = "X-Trace-Id"

// Log field keys
const (
	TraceId        string = "trace_id"
	OrderReference string = "order_reference"
	MerchantHandle string = "merchant_handle"
)

// PaymentStatus is the order-side payment state. Confirmed is terminal.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

// ProviderStatus is the normalized answer of the payment provider status check.
type ProviderStatus string

const (
	ProviderStatusPaid    ProviderStatus = "paid"
	ProviderStatusUnpaid  ProviderStatus = "unpaid"
	ProviderStatusUnknown ProviderStatus = "unknown"
)

// Callback query parameters
const (
	ParamOrderNsu  string = "order_nsu"
	ParamSignature string = "sig"
)
