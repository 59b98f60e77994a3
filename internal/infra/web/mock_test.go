//go:build !integration

package web_test

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
	"trading-journal/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock EntitlementUseCase ----

type MockEntitlementUC struct {
	HasAccessFunc             func(ctx context.Context, accountID string) (bool, error)
	StatusFunc                func(ctx context.Context, accountID string) (*model.EntitlementSnapshot, error)
	CreateCheckoutSessionFunc func(ctx context.Context, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error)
	CancelAtPeriodEndFunc     func(ctx context.Context, accountID string) (*model.Account, error)
	ReactivateFunc            func(ctx context.Context, accountID string) (*model.Account, error)
	PaymentHistoryFunc        func(ctx context.Context, accountID string, offset, limit int) ([]*model.Payment, int, error)
}

var _ usecase.EntitlementUseCase = (*MockEntitlementUC)(nil)

func (m *MockEntitlementUC) HasAccess(ctx context.Context, accountID string) (bool, error) {
	if m.HasAccessFunc != nil {
		return m.HasAccessFunc(ctx, accountID)
	}
	return true, nil
}

func (m *MockEntitlementUC) Status(ctx context.Context, accountID string) (*model.EntitlementSnapshot, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, accountID)
	}
	return &model.EntitlementSnapshot{HasAccess: true}, nil
}

func (m *MockEntitlementUC) StartTrial(ctx context.Context, accountID string) (*model.Account, error) {
	return &model.Account{ID: accountID}, nil
}

func (m *MockEntitlementUC) MarkPaymentExempt(ctx context.Context, accountID string) (*model.Account, error) {
	return &model.Account{ID: accountID}, nil
}

func (m *MockEntitlementUC) ClearPaymentExempt(ctx context.Context, accountID string) (*model.Account, error) {
	return &model.Account{ID: accountID}, nil
}

func (m *MockEntitlementUC) CancelAtPeriodEnd(ctx context.Context, accountID string) (*model.Account, error) {
	if m.CancelAtPeriodEndFunc != nil {
		return m.CancelAtPeriodEndFunc(ctx, accountID)
	}
	return &model.Account{ID: accountID, CancelAtPeriodEnd: true}, nil
}

func (m *MockEntitlementUC) Reactivate(ctx context.Context, accountID string) (*model.Account, error) {
	if m.ReactivateFunc != nil {
		return m.ReactivateFunc(ctx, accountID)
	}
	return &model.Account{ID: accountID}, nil
}

func (m *MockEntitlementUC) CreateCheckoutSession(ctx context.Context, accountID, successURL, cancelURL string) (*adapter.CheckoutSession, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, accountID, successURL, cancelURL)
	}
	return &adapter.CheckoutSession{SessionRef: "cs_1", URL: "https://example.test/checkout"}, nil
}

func (m *MockEntitlementUC) CreatePortalSession(ctx context.Context, accountID, returnURL string) (string, error) {
	return "https://example.test/portal", nil
}

func (m *MockEntitlementUC) PaymentHistory(ctx context.Context, accountID string, offset, limit int) ([]*model.Payment, int, error) {
	if m.PaymentHistoryFunc != nil {
		return m.PaymentHistoryFunc(ctx, accountID, offset, limit)
	}
	return nil, 0, nil
}

// ---- Mock PortfolioUseCase ----

type MockPortfolioUC struct {
	OpenPositionFunc  func(ctx context.Context, accountID, ticker string, entryPrice float64, entryDate string, shares int64) (*model.Position, error)
	ClosePositionFunc func(ctx context.Context, accountID, ticker string, exitPrice float64, exitDate, reason string) (*usecase.CloseResult, error)
	DashboardFunc     func(ctx context.Context, accountID string) (*model.Dashboard, error)
}

var _ usecase.PortfolioUseCase = (*MockPortfolioUC)(nil)

func (m *MockPortfolioUC) OpenPosition(ctx context.Context, accountID, ticker string, entryPrice float64, entryDate string, shares int64) (*model.Position, error) {
	if m.OpenPositionFunc != nil {
		return m.OpenPositionFunc(ctx, accountID, ticker, entryPrice, entryDate, shares)
	}
	return nil, domain.ErrInvalidArgument
}

func (m *MockPortfolioUC) ClosePosition(ctx context.Context, accountID, ticker string, exitPrice float64, exitDate, reason string) (*usecase.CloseResult, error) {
	if m.ClosePositionFunc != nil {
		return m.ClosePositionFunc(ctx, accountID, ticker, exitPrice, exitDate, reason)
	}
	return nil, domain.ErrNotFound
}

func (m *MockPortfolioUC) Dashboard(ctx context.Context, accountID string) (*model.Dashboard, error) {
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx, accountID)
	}
	return &model.Dashboard{}, nil
}

// ---- Mock ReconcilerUseCase ----

type MockReconcilerUC struct {
	ReconcileFunc func(ctx context.Context, ev *model.BillingEvent) error

	Events []*model.BillingEvent
}

var _ usecase.ReconcilerUseCase = (*MockReconcilerUC)(nil)

func (m *MockReconcilerUC) Reconcile(ctx context.Context, ev *model.BillingEvent) error {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, ev)
	}
	m.Events = append(m.Events, ev)
	return nil
}
