package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/cache"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"
	"github.com/shopspring/decimal"
)

var errNoSQL = errors.New("memory store does not run SQL")

// memStore stands in for a store without transactions: a failing step leaves earlier writes in place.
type memStore struct {
	txCount int32
}

func (m *memStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNoSQL
}
func (m *memStore) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errNoSQL }
func (m *memStore) QueryRow(context.Context, string, ...any) pgx.Row      { return nil }
func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, q database.Querier) error) error {
	atomic.AddInt32(&m.txCount, 1)
	return fn(ctx, m)
}

type memOrders struct {
	mu          sync.Mutex
	orders      map[string]models.Order
	notes       map[string][]string
	confirmWins int
	findErr     error
	noteErr     error
}

func newMemOrders(orders ...models.Order) *memOrders {
	m := &memOrders{orders: map[string]models.Order{}, notes: map[string][]string{}}
	for _, o := range orders {
		if o.PaymentStatus == "" {
			o.PaymentStatus = pkg.PaymentStatusPending
		}
		m.orders[o.Reference] = o
	}
	return m
}

func (m *memOrders) Create(_ context.Context, _ database.Querier, order models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.Reference]; !ok {
		m.orders[order.Reference] = order
	}
	return nil
}

func (m *memOrders) FindByReference(_ context.Context, _ database.Querier, reference string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return models.Order{}, m.findErr
	}
	o, ok := m.orders[reference]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %s", pkg.ErrUnknownOrder, reference)
	}
	return o, nil
}

func (m *memOrders) ConfirmPayment(_ context.Context, _ database.Querier, reference, receiptURL string, confirmedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[reference]
	if !ok || o.PaymentStatus != pkg.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = pkg.PaymentStatusConfirmed
	o.ReceiptURL = &receiptURL
	o.ConfirmedAt = &confirmedAt
	m.orders[reference] = o
	m.confirmWins++
	return true, nil
}

func (m *memOrders) AddNote(_ context.Context, _ database.Querier, reference, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noteErr != nil {
		return m.noteErr
	}
	m.notes[reference] = append(m.notes[reference], note)
	return nil
}

func (m *memOrders) get(reference string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[reference]
}

type memAudits struct {
	mu        sync.Mutex
	records   []models.AuditRecord
	failNext  int
	lastLimit int
}

func (m *memAudits) Append(_ context.Context, _ database.Querier, record models.AuditRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return false, errors.New("audit store unavailable")
	}
	for _, r := range m.records {
		if r.OrderReference == record.OrderReference {
			return false, nil
		}
	}
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, record)
	return true, nil
}

func (m *memAudits) FindByReference(_ context.Context, _ database.Querier, reference string) (models.AuditRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.OrderReference == reference {
			return r, true, nil
		}
	}
	return models.AuditRecord{}, false, nil
}

func (m *memAudits) List(_ context.Context, _ database.Querier, limit, offset int) ([]models.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := append([]models.AuditRecord(nil), m.records...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if offset >= len(out) {
		return []models.AuditRecord{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAudits) all() []models.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditRecord(nil), m.records...)
}

type fakeStatusClient struct {
	calls  int32
	result PaymentStatusResult
	err    error
	delay  time.Duration
}

func (f *fakeStatusClient) FetchStatus(ctx context.Context, merchantHandle string) (PaymentStatusResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return PaymentStatusResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeStatusClient) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// failingLocker never grants the lease, leaving the conditional update as the only guard.
type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string) (cache.ReleaseFunc, error) {
	return nil, cache.ErrLockNotAcquired
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context) bool { return false }

type memPublisher struct {
	mu     sync.Mutex
	events []views.PaymentConfirmedEvent
	err    error
}

func (m *memPublisher) PublishConfirmed(event views.PaymentConfirmedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memPublisher) Close() {}

func (m *memPublisher) published() []views.PaymentConfirmedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]views.PaymentConfirmedEvent(nil), m.events...)
}

func widgetOrder(reference string) models.Order {
	return models.Order{
		Reference:     reference,
		PaymentStatus: pkg.PaymentStatusPending,
		Customer:      models.Customer{Name: "Ana Silva", Email: "ana@example.com", Phone: "+5511999990000"},
		Items: []models.LineItem{
			{Position: 1, Name: "Widget", Quantity: 2, UnitValue: decimal.RequireFromString("19.99")},
		},
	}
}
