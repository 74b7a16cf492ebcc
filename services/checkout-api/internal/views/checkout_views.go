package views

import pkgviews "github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"

type APIResponse struct {
	Data any `json:"data"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	QRCodeURL   string `json:"qrCodeUrl,omitempty"`
}

type PaymentMethodResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// AuditQuery is bound from the query string of the audit listing.
type AuditQuery struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

type AuditPage struct {
	Records []pkgviews.AuditRecord `json:"records"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}
