package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
)

// ReturnPath is where the provider sends the buyer back after checkout.
const ReturnPath = "/payment-return"

// PaymentMethodSettings is the merchant-facing configuration of the hosted checkout method.
type PaymentMethodSettings struct {
	Handle      string
	Title       string
	Description string
	Enabled     bool
}

// LinkOptions are the deployment-level inputs of BuildCheckoutLink.
type LinkOptions struct {
	CheckoutBaseURL string
	QRCodeBaseURL   string // empty disables the QR reference
	ReturnBaseURL   string
	SigningKey      []byte // nil leaves the return URL unsigned
}

type CheckoutLink struct {
	CheckoutURL string
	QRCodeURL   string // empty when it could not be built
}

type checkoutItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Value    string `json:"value"`
}

// BuildCheckoutLink derives the hosted checkout URL for an order. The output depends only on
// its inputs: query keys are emitted sorted and items keep their stored position order.
func BuildCheckoutLink(order models.Order, merchantHandle string, opts LinkOptions) (CheckoutLink, error) {
	if utils.IsEmpty(merchantHandle) {
		return CheckoutLink{}, pkg.NewAppError(pkg.ErrInvalidHandleCode, "merchant handle is required", pkg.ErrInvalidHandle)
	}
	if err := validateForCheckout(order); err != nil {
		return CheckoutLink{}, pkg.NewAppError(pkg.ErrInvalidOrderCode, "order cannot be checked out", err)
	}

	items := make([]checkoutItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, checkoutItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Value:    item.UnitValue.StringFixed(2),
		})
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return CheckoutLink{}, pkg.NewAppError(pkg.ErrInvalidOrderCode, "order items cannot be encoded", fmt.Errorf("%w: %v", pkg.ErrInvalidOrder, err))
	}

	params := url.Values{}
	params.Set("items", string(itemsJSON))
	params.Set(pkg.ParamOrderNsu, order.Reference)
	params.Set("customer_name", order.Customer.Name)
	params.Set("customer_email", order.Customer.Email)
	params.Set("customer_cellphone", order.Customer.Phone)
	params.Set("redirect_url", ReturnURL(opts.ReturnBaseURL, order.Reference, opts.SigningKey))

	checkoutURL := strings.TrimRight(opts.CheckoutBaseURL, "/") + "/" + url.PathEscape(strings.TrimSpace(merchantHandle)) + "?" + params.Encode()
	return CheckoutLink{
		CheckoutURL: checkoutURL,
		QRCodeURL:   qrCodeURL(opts.QRCodeBaseURL, checkoutURL),
	}, nil
}

// ReturnURL is the callback URL for a reference, signed when a key is configured.
func ReturnURL(baseURL, reference string, signingKey []byte) string {
	q := url.Values{}
	q.Set(pkg.ParamOrderNsu, reference)
	if len(signingKey) > 0 {
		q.Set(pkg.ParamSignature, utils.SignReference(reference, signingKey))
	}
	return strings.TrimRight(baseURL, "/") + ReturnPath + "?" + q.Encode()
}

func validateForCheckout(order models.Order) error {
	if utils.IsEmpty(order.Reference) {
		return fmt.Errorf("%w: empty reference", pkg.ErrInvalidOrder)
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("%w: %s has no line items", pkg.ErrInvalidOrder, order.Reference)
	}
	for _, item := range order.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %s item %q has quantity %d", pkg.ErrInvalidOrder, order.Reference, item.Name, item.Quantity)
		}
		if item.UnitValue.IsNegative() {
			return fmt.Errorf("%w: %s item %q has negative value", pkg.ErrInvalidOrder, order.Reference, item.Name)
		}
	}
	return nil
}

func qrCodeURL(base, payload string) string {
	if utils.IsEmpty(base) {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	q := u.Query()
	q.Set("chl", payload)
	u.RawQuery = q.Encode()
	return u.String()
}
