// File: internal/usecase/portfolio_uc.go
package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
	"trading-journal/internal/domain/ports/repository"
)

// Compile-time check
var _ PortfolioUseCase = (*portfolioUC)(nil)

// CloseResult pairs the closed lot with the realized summary returned to
// the caller.
type CloseResult struct {
	Position  *model.Position
	Profit    float64
	ReturnPct float64
}

// PortfolioUseCase is the position ledger plus its read-side projections.
type PortfolioUseCase interface {
	OpenPosition(ctx context.Context, accountID, ticker string, entryPrice float64, entryDate string, shares int64) (*model.Position, error)
	ClosePosition(ctx context.Context, accountID, ticker string, exitPrice float64, exitDate, reason string) (*CloseResult, error)
	Dashboard(ctx context.Context, accountID string) (*model.Dashboard, error)
}

type portfolioUC struct {
	accounts  repository.AccountRepository
	positions repository.PositionRepository
	prices    adapter.PriceLookup

	priceTimeout time.Duration
	log          *zerolog.Logger
}

func NewPortfolioUseCase(
	accounts repository.AccountRepository,
	positions repository.PositionRepository,
	prices adapter.PriceLookup,
	priceTimeout time.Duration,
	logger *zerolog.Logger,
) *portfolioUC {
	if priceTimeout <= 0 {
		priceTimeout = 500 * time.Millisecond
	}
	l := logger.With().Str("component", "PortfolioUC").Logger()
	return &portfolioUC{accounts: accounts, positions: positions, prices: prices, priceTimeout: priceTimeout, log: &l}
}

func (u *portfolioUC) OpenPosition(ctx context.Context, accountID, ticker string, entryPrice float64, entryDate string, shares int64) (*model.Position, error) {
	if _, err := u.accounts.FindByID(ctx, repository.NoTX, accountID); err != nil {
		return nil, err
	}
	p, err := model.NewPosition(accountID, ticker, entryPrice, entryDate, shares, time.Now())
	if err != nil {
		return nil, err
	}
	if err := u.positions.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", accountID).Str("ticker", p.Ticker).Int64("shares", shares).Msg("position opened")
	return p, nil
}

// ClosePosition closes the earliest-opened active lot for the ticker (FIFO).
// The persisted write is conditional on the lot still being active, so of
// two racing closers exactly one wins; the loser sees ErrNotFound because
// from its point of view no active lot remains.
func (u *portfolioUC) ClosePosition(ctx context.Context, accountID, ticker string, exitPrice float64, exitDate, reason string) (*CloseResult, error) {
	ticker = model.NormalizeTicker(ticker)
	if ticker == "" || exitPrice < 0 || exitDate == "" {
		return nil, domain.ErrInvalidArgument
	}

	p, err := u.positions.FindOldestActive(ctx, repository.NoTX, accountID, ticker)
	if err != nil {
		return nil, err
	}
	if err := p.Close(exitPrice, exitDate, reason, time.Now()); err != nil {
		return nil, err
	}
	won, err := u.positions.CloseLot(ctx, repository.NoTX, p)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrNotFound
	}

	u.log.Info().Str("account_id", accountID).Str("ticker", ticker).
		Float64("profit", *p.Profit).Msg("position closed")
	return &CloseResult{Position: p, Profit: *p.Profit, ReturnPct: *p.ReturnPct}, nil
}

// Dashboard recomputes the whole projection per request; per-account lot
// counts are small, so correctness beats caching here.
func (u *portfolioUC) Dashboard(ctx context.Context, accountID string) (*model.Dashboard, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	all, err := u.positions.ListByAccount(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}

	var active, closed []*model.Position
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		} else {
			closed = append(closed, p)
		}
	}

	d := &model.Dashboard{}
	d.Owner.Name = acc.Name
	d.Owner.Email = acc.Email
	d.Owner.Since = acc.CreatedAt
	d.Holdings = model.BuildHoldings(active)
	u.attachPrices(ctx, d.Holdings)

	// Most recently closed first, regardless of what order the repository
	// yields. ID (time-ordered) breaks ties between same-instant closes.
	sort.Slice(closed, func(i, j int) bool {
		ci, cj := closed[i].ClosedAt, closed[j].ClosedAt
		switch {
		case ci == nil:
			return false
		case cj == nil:
			return true
		case !ci.Equal(*cj):
			return ci.After(*cj)
		}
		return closed[i].ID > closed[j].ID
	})
	d.HistoricalTrades = closed
	if len(closed) > 10 {
		d.RecentTrades = closed[:10]
	} else {
		d.RecentTrades = closed
	}

	now := time.Now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	d.YTD = model.BuildPerformance(closed, yearStart)
	d.AllTime = model.BuildPerformance(closed, time.Time{})
	d.Stats = model.BuildStats(closed)

	d.Summary.TotalActivePositions = len(active)
	d.Summary.UniqueTickers = len(d.Holdings)
	d.Summary.TotalTrades = len(closed)
	for _, h := range d.Holdings {
		d.Summary.TotalInvested += h.TotalInvested
	}
	return d, nil
}

// attachPrices resolves current prices for each holding, best-effort and
// bounded: lookups run concurrently under one short deadline, and any
// failure leaves the holding's price nil without failing the aggregation.
func (u *portfolioUC) attachPrices(ctx context.Context, holdings []model.Holding) {
	if len(holdings) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, u.priceTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range holdings {
		h := &holdings[i]
		g.Go(func() error {
			// Exchange suffixes such as .TO are stripped before lookup.
			bare := strings.SplitN(h.Ticker, ".", 2)[0]
			price, err := u.prices.LatestPrice(ctx, bare)
			if err != nil {
				u.log.Debug().Err(err).Str("ticker", h.Ticker).Msg("price lookup failed")
				return nil
			}
			h.CurrentPrice = &price
			if h.AvgEntryPrice > 0 {
				profit, returnPct := model.UnrealizedOutcome(h.AvgEntryPrice, price, h.TotalShares)
				h.UnrealizedProfit = &profit
				h.UnrealizedReturnPct = &returnPct
			}
			return nil
		})
	}
	_ = g.Wait()
}
