package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/observability"
	"go.uber.org/zap"
)

const (
	statusCheckPath = "/invoices/public/checkout/payment_check/"
	maxStatusBody   = 64 << 10
)

// PaymentStatusResult is the normalized provider answer.
type PaymentStatusResult struct {
	Status     pkg.ProviderStatus
	ReceiptURL string
	// OrderReference is the order_nsu echoed by the provider, empty when it sends none.
	OrderReference string
	FetchedAt      time.Time
}

// PaymentStatusClient asks the provider whether the merchant's last checkout settled.
// Any error wraps pkg.ErrStatusCheck and must be read as Unknown, never as unpaid.
type PaymentStatusClient interface {
	FetchStatus(ctx context.Context, merchantHandle string) (PaymentStatusResult, error)
}

type StatusClientConfig struct {
	BaseURL     string
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

type PaymentStatusClientImpl struct {
	logger *zap.Logger
	client *http.Client
	cfg    StatusClientConfig
	now    func() time.Time
}

func NewPaymentStatusClient(logger *zap.Logger, cfg StatusClientConfig) PaymentStatusClient {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	return &PaymentStatusClientImpl{
		logger: logger,
		client: utils.NewHTTPClient(utils.WithClientTimeout(cfg.Timeout)),
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type statusResponse struct {
	Status     *string `json:"status"`
	ReceiptURL string  `json:"receipt_url"`
	OrderNsu   string  `json:"order_nsu"`
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (r retryableError) Error() string { return r.err.Error() }
func (r retryableError) Unwrap() error { return r.err }

func (p *PaymentStatusClientImpl) FetchStatus(ctx context.Context, merchantHandle string) (PaymentStatusResult, error) {
	if utils.IsEmpty(merchantHandle) {
		return PaymentStatusResult{}, pkg.NewAppError(pkg.ErrInvalidHandleCode, "merchant handle is required", pkg.ErrInvalidHandle)
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + statusCheckPath + url.PathEscape(merchantHandle)

	attempt := 0
	var result PaymentStatusResult
	operation := func() error {
		attempt++
		res, err := p.fetchOnce(ctx, endpoint)
		if err == nil {
			observability.StatusCheckAttempts.WithLabelValues("ok").Inc()
			result = res
			return nil
		}
		var retryable retryableError
		if errors.As(err, &retryable) {
			observability.StatusCheckAttempts.WithLabelValues("transient").Inc()
			p.logger.Warn("status_check_attempt_failed",
				zap.String(pkg.MerchantHandle, merchantHandle),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		observability.StatusCheckAttempts.WithLabelValues("permanent").Inc()
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.BaseBackoff
	b.MaxInterval = p.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.MaxAttempts-1)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return PaymentStatusResult{}, pkg.NewAppError(pkg.ErrStatusCheckCode, "payment status check failed",
			fmt.Errorf("%w: after %d attempt(s): %v", pkg.ErrStatusCheck, attempt, err))
	}
	return result, nil
}

func (p *PaymentStatusClientImpl) fetchOnce(ctx context.Context, endpoint string) (PaymentStatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PaymentStatusResult{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return PaymentStatusResult{}, ctx.Err()
		}
		return PaymentStatusResult{}, retryableError{err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return PaymentStatusResult{}, retryableError{err}
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
		return PaymentStatusResult{}, retryableError{fmt.Errorf("provider responded %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return PaymentStatusResult{}, fmt.Errorf("provider responded %d", resp.StatusCode)
	}

	var parsed statusResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		return PaymentStatusResult{}, fmt.Errorf("malformed provider response: %w", err)
	}
	if parsed.Status == nil || utils.IsEmpty(*parsed.Status) {
		return PaymentStatusResult{}, errors.New("provider response without status")
	}

	result := PaymentStatusResult{
		Status:         pkg.ProviderStatusUnpaid,
		OrderReference: strings.TrimSpace(parsed.OrderNsu),
		FetchedAt:      p.now(),
	}
	if strings.EqualFold(strings.TrimSpace(*parsed.Status), string(pkg.ProviderStatusPaid)) {
		receipt := strings.TrimSpace(parsed.ReceiptURL)
		if receipt == "" {
			return PaymentStatusResult{}, errors.New("provider reported paid without receipt_url")
		}
		result.Status = pkg.ProviderStatusPaid
		result.ReceiptURL = receipt
	}
	return result, nil
}
