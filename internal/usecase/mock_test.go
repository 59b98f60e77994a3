//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
	"trading-journal/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the callback immediately with NoTX unless overridden.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock AccountRepository ----

type MockAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account

	SaveFunc                   func(ctx context.Context, tx repository.Tx, a *model.Account) error
	FindByIDFunc               func(ctx context.Context, tx repository.Tx, id string) (*model.Account, error)
	FindByEmailFunc            func(ctx context.Context, tx repository.Tx, email string) (*model.Account, error)
	FindByCustomerRefFunc      func(ctx context.Context, tx repository.Tx, ref string) (*model.Account, error)
	FindBySubscriptionRefFunc  func(ctx context.Context, tx repository.Tx, ref string) (*model.Account, error)
	ListTrialsEndingBeforeFunc func(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Account, error)
	MarkTrialReminderSentFunc  func(ctx context.Context, tx repository.Tx, accountID string, at time.Time) error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *MockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *MockAccountRepo) find(match func(*model.Account) bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return m.find(func(a *model.Account) bool { return a.ID == id })
}

func (m *MockAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, tx, email)
	}
	return m.find(func(a *model.Account) bool { return a.Email == email })
}

func (m *MockAccountRepo) FindByCustomerRef(ctx context.Context, tx repository.Tx, ref string) (*model.Account, error) {
	if m.FindByCustomerRefFunc != nil {
		return m.FindByCustomerRefFunc(ctx, tx, ref)
	}
	return m.find(func(a *model.Account) bool {
		return a.BillingCustomerRef != nil && *a.BillingCustomerRef == ref
	})
}

func (m *MockAccountRepo) FindBySubscriptionRef(ctx context.Context, tx repository.Tx, ref string) (*model.Account, error) {
	if m.FindBySubscriptionRefFunc != nil {
		return m.FindBySubscriptionRefFunc(ctx, tx, ref)
	}
	return m.find(func(a *model.Account) bool {
		return a.BillingSubscriptionRef != nil && *a.BillingSubscriptionRef == ref
	})
}

func (m *MockAccountRepo) ListTrialsEndingBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Account, error) {
	if m.ListTrialsEndingBeforeFunc != nil {
		return m.ListTrialsEndingBeforeFunc(ctx, tx, cutoff, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []*model.Account
	for _, a := range m.accounts {
		if a.TrialEnd != nil && a.TrialEnd.Before(cutoff) && a.TrialEnd.After(now) &&
			a.TrialReminderSentAt == nil && !a.PaymentExempt {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAccountRepo) MarkTrialReminderSent(ctx context.Context, tx repository.Tx, accountID string, at time.Time) error {
	if m.MarkTrialReminderSentFunc != nil {
		return m.MarkTrialReminderSentFunc(ctx, tx, accountID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountID]; ok {
		a.TrialReminderSentAt = &at
	}
	return nil
}

// ---- Mock PositionRepository ----

type MockPositionRepo struct {
	mu        sync.Mutex
	positions map[string]*model.Position

	SaveFunc             func(ctx context.Context, tx repository.Tx, p *model.Position) error
	FindOldestActiveFunc func(ctx context.Context, tx repository.Tx, accountID, ticker string) (*model.Position, error)
	CloseLotFunc         func(ctx context.Context, tx repository.Tx, p *model.Position) (bool, error)
}

var _ repository.PositionRepository = (*MockPositionRepo)(nil)

func NewMockPositionRepo() *MockPositionRepo {
	return &MockPositionRepo{positions: make(map[string]*model.Position)}
}

func (m *MockPositionRepo) Save(ctx context.Context, tx repository.Tx, p *model.Position) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.positions[p.ID] = &cp
	return nil
}

func (m *MockPositionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.positions[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockPositionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Position
	for _, p := range m.positions {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPositionRepo) FindOldestActive(ctx context.Context, tx repository.Tx, accountID, ticker string) (*model.Position, error) {
	if m.FindOldestActiveFunc != nil {
		return m.FindOldestActiveFunc(ctx, tx, accountID, ticker)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *model.Position
	for _, p := range m.positions {
		if p.AccountID != accountID || p.Ticker != ticker || !p.IsActive {
			continue
		}
		if oldest == nil || p.ID < oldest.ID {
			oldest = p
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *oldest
	return &cp, nil
}

// CloseLot mirrors the conditional update: it only applies when the stored
// lot is still active, and reports whether this caller flipped it.
func (m *MockPositionRepo) CloseLot(ctx context.Context, tx repository.Tx, p *model.Position) (bool, error) {
	if m.CloseLotFunc != nil {
		return m.CloseLotFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.positions[p.ID]
	if !ok || !stored.IsActive {
		return false, nil
	}
	cp := *p
	m.positions[p.ID] = &cp
	return true, nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu       sync.Mutex
	payments []*model.Payment

	AppendFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo { return &MockPaymentRepo{} }

// Append enforces the invoice_ref uniqueness the real store gets from its
// unique index.
func (m *MockPaymentRepo) Append(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.InvoiceRef == p.InvoiceRef {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *MockPaymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, offset, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.payments {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.payments {
		if p.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *MockPaymentRepo) All() []*model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Payment, len(m.payments))
	copy(out, m.payments)
	return out
}

// ---- Mock BillingGateway ----

type MockBillingGateway struct {
	EnsureCustomerFunc        func(ctx context.Context, accountID, email string) (string, error)
	CreateCheckoutSessionFunc func(ctx context.Context, customerRef, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error)
	CreatePortalSessionFunc   func(ctx context.Context, customerRef, returnURL string) (string, error)
	GetSubscriptionFunc       func(ctx context.Context, subscriptionRef string) (*model.SubscriptionSnapshot, error)
	SetCancelFunc             func(ctx context.Context, subscriptionRef string, cancel bool) error
}

var _ adapter.BillingGateway = (*MockBillingGateway)(nil)

func (m *MockBillingGateway) Name() string { return "mock" }

func (m *MockBillingGateway) EnsureCustomer(ctx context.Context, accountID, email string) (string, error) {
	if m.EnsureCustomerFunc != nil {
		return m.EnsureCustomerFunc(ctx, accountID, email)
	}
	return "cus_mock", nil
}

func (m *MockBillingGateway) CreateCheckoutSession(ctx context.Context, customerRef, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, customerRef, accountID, successURL, cancelURL)
	}
	return &adapter.CheckoutSession{SessionRef: "cs_mock", URL: "https://example.test/checkout"}, nil
}

func (m *MockBillingGateway) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	if m.CreatePortalSessionFunc != nil {
		return m.CreatePortalSessionFunc(ctx, customerRef, returnURL)
	}
	return "https://example.test/portal", nil
}

func (m *MockBillingGateway) GetSubscription(ctx context.Context, subscriptionRef string) (*model.SubscriptionSnapshot, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, subscriptionRef)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBillingGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	if m.SetCancelFunc != nil {
		return m.SetCancelFunc(ctx, subscriptionRef, cancel)
	}
	return nil
}

// ---- Mock NotificationSender ----

type MockMailer struct {
	mu   sync.Mutex
	Sent []struct {
		To       string
		Template string
		Vars     map[string]string
	}

	SendTemplateFunc func(ctx context.Context, to, template string, vars map[string]string) error
}

var _ adapter.NotificationSender = (*MockMailer)(nil)

func (m *MockMailer) SendTemplate(ctx context.Context, to, template string, vars map[string]string) error {
	if m.SendTemplateFunc != nil {
		return m.SendTemplateFunc(ctx, to, template, vars)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, struct {
		To       string
		Template string
		Vars     map[string]string
	}{to, template, vars})
	return nil
}

func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ---- Mock PriceLookup ----

type MockPriceLookup struct {
	Prices map[string]float64

	LatestPriceFunc func(ctx context.Context, ticker string) (float64, error)
}

var _ adapter.PriceLookup = (*MockPriceLookup)(nil)

func (m *MockPriceLookup) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	if m.LatestPriceFunc != nil {
		return m.LatestPriceFunc(ctx, ticker)
	}
	if price, ok := m.Prices[ticker]; ok {
		return price, nil
	}
	return 0, domain.ErrNotFound
}
