package model

import (
	"crypto/rand"
	"strings"
	"time"

	"trading-journal/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Position is one discrete trade lot: created on open, mutated exactly once
// on close. Lot IDs are ULIDs so lexicographic order equals open order,
// which is what the FIFO close policy sorts by.
type Position struct {
	ID         string
	AccountID  string
	Ticker     string
	EntryPrice float64
	EntryDate  string
	Shares     int64
	IsActive   bool
	OpenedAt   time.Time

	// Exit fields, nil until the lot is closed
	ExitPrice  *float64
	ExitDate   *string
	ExitReason *string
	ClosedAt   *time.Time
	Profit     *float64
	ReturnPct  *float64
}

// NormalizeTicker upper-cases and trims a ticker symbol for storage.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func NewPosition(accountID, ticker string, entryPrice float64, entryDate string, shares int64, now time.Time) (*Position, error) {
	ticker = NormalizeTicker(ticker)
	if accountID == "" || ticker == "" || entryDate == "" {
		return nil, domain.ErrInvalidArgument
	}
	if entryPrice < 0 || shares < 1 {
		return nil, domain.ErrInvalidArgument
	}
	return &Position{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		AccountID:  accountID,
		Ticker:     ticker,
		EntryPrice: entryPrice,
		EntryDate:  entryDate,
		Shares:     shares,
		IsActive:   true,
		OpenedAt:   now,
	}, nil
}

// Close sets the exit fields and the realized outcome atomically on the
// in-memory lot. A zero entry price has no defined return percentage, so it
// fails before any field is touched.
func (p *Position) Close(exitPrice float64, exitDate, reason string, now time.Time) error {
	if !p.IsActive {
		return domain.ErrNotFound
	}
	if exitPrice < 0 || exitDate == "" {
		return domain.ErrInvalidArgument
	}
	if p.EntryPrice == 0 {
		return domain.ErrInvalidArgument
	}
	profit, returnPct := RealizedOutcome(p.EntryPrice, exitPrice, p.Shares)

	p.IsActive = false
	p.ExitPrice = &exitPrice
	p.ExitDate = &exitDate
	p.ExitReason = &reason
	p.ClosedAt = &now
	p.Profit = &profit
	p.ReturnPct = &returnPct
	return nil
}

// RealizedOutcome computes profit and return percentage for a closed lot.
// Decimal arithmetic keeps intermediate products exact; callers round only
// at the serialization boundary.
func RealizedOutcome(entryPrice, exitPrice float64, shares int64) (profit, returnPct float64) {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	n := decimal.NewFromInt(shares)

	diff := exit.Sub(entry)
	profit, _ = diff.Mul(n).Float64()
	if entry.IsZero() {
		return profit, 0
	}
	returnPct, _ = diff.Div(entry).Mul(decimal.NewFromInt(100)).Float64()
	return profit, returnPct
}

// UnrealizedOutcome values an open lot against a current market price.
func UnrealizedOutcome(entryPrice, currentPrice float64, shares int64) (profit, returnPct float64) {
	return RealizedOutcome(entryPrice, currentPrice, shares)
}
