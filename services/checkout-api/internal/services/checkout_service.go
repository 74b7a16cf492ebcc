package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"go.uber.org/zap"
)

// CheckoutService starts the hosted checkout for an existing order.
type CheckoutService interface {
	StartCheckout(ctx context.Context, traceID, reference string) (CheckoutLink, error)
	PaymentMethod() PaymentMethodSettings
}

type CheckoutServiceImpl struct {
	logger    *zap.Logger
	store     database.Store
	orderRepo repositories.OrderRepository
	settings  PaymentMethodSettings
	linkOpts  LinkOptions
}

func NewCheckoutService(logger *zap.Logger, store database.Store, orderRepo repositories.OrderRepository, settings PaymentMethodSettings, linkOpts LinkOptions) CheckoutService {
	return &CheckoutServiceImpl{
		logger:    logger,
		store:     store,
		orderRepo: orderRepo,
		settings:  settings,
		linkOpts:  linkOpts,
	}
}

func (c *CheckoutServiceImpl) PaymentMethod() PaymentMethodSettings {
	return c.settings
}

func (c *CheckoutServiceImpl) StartCheckout(ctx context.Context, traceID, reference string) (CheckoutLink, error) {
	logger := c.logger.With(zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderReference, reference))
	if !c.settings.Enabled {
		return CheckoutLink{}, pkg.NewAppError(pkg.ErrPaymentMethodDisabledCode, "payment method is disabled", pkg.ErrPaymentMethodDisabled)
	}

	order, err := c.orderRepo.FindByReference(ctx, c.store, reference)
	if err != nil {
		if errors.Is(err, pkg.ErrUnknownOrder) {
			return CheckoutLink{}, pkg.NewAppError(pkg.ErrUnknownOrderCode, "order not found", err)
		}
		return CheckoutLink{}, pkg.HandleSQLError(traceID, logger, err)
	}
	if order.IsConfirmed() {
		return CheckoutLink{}, pkg.NewAppError(pkg.ErrInvalidOrderCode, "order is already paid",
			fmt.Errorf("%w: %s is confirmed", pkg.ErrInvalidOrder, reference))
	}

	link, err := BuildCheckoutLink(order, c.settings.Handle, c.linkOpts)
	if err != nil {
		return CheckoutLink{}, err
	}

	if link.QRCodeURL == "" {
		logger.Warn("qr_code_url_unavailable")
	} else if err = c.orderRepo.AddNote(ctx, c.store, reference, "Checkout QR code: "+link.QRCodeURL); err != nil {
		logger.Warn("qr_code_note_not_recorded", zap.Error(err))
	}
	logger.Info("checkout_link_built", zap.String(pkg.MerchantHandle, c.settings.Handle))
	return link, nil
}
