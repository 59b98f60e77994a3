package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ProfitFactor is |avgWin / avgLoss| as a tagged value. Undefined marks the
// no-losers-with-winners case; it must never leak a raw floating-point
// infinity into serialized output.
type ProfitFactor struct {
	Defined bool
	Ratio   float64
}

func (f ProfitFactor) MarshalJSON() ([]byte, error) {
	if !f.Defined {
		return []byte(`"N/A"`), nil
	}
	return decimal.NewFromFloat(f.Ratio).Round(2).MarshalJSON()
}

// HoldingLot is one constituent open lot kept on a holding for
// traceability.
type HoldingLot struct {
	ID         string
	EntryPrice float64
	EntryDate  string
	Shares     int64
}

// Holding is the read-time merge of all active lots for one ticker into a
// single share-weighted position.
type Holding struct {
	Ticker              string
	TotalShares         int64
	AvgEntryPrice       float64
	TotalInvested       float64
	CurrentPrice        *float64 // nil when the price lookup had nothing
	UnrealizedProfit    *float64
	UnrealizedReturnPct *float64
	Lots                []HoldingLot
}

// PerformanceWindow aggregates realized results over a set of closed lots.
type PerformanceWindow struct {
	Trades    int
	Profit    float64
	Invested  float64
	ReturnPct float64
}

// TradingStats summarizes closed-trade outcomes. Ties (profit == 0) count
// as neither winners nor losers.
type TradingStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	AvgWin        float64
	AvgLoss       float64
	ProfitFactor  ProfitFactor
	LargestWin    float64
	LargestLoss   float64
}

// Dashboard is the full read-side projection for one account, recomputed
// per request.
type Dashboard struct {
	Owner struct {
		Name  string
		Email string
		Since time.Time
	}
	Summary struct {
		TotalActivePositions int
		UniqueTickers        int
		TotalInvested        float64
		TotalTrades          int
	}
	Holdings         []Holding
	YTD              PerformanceWindow
	AllTime          PerformanceWindow
	Stats            TradingStats
	RecentTrades     []*Position
	HistoricalTrades []*Position
}

// BuildHoldings groups active lots by ticker and merges each group via
// share-weighted average entry price. Output order is by ticker for
// deterministic responses.
func BuildHoldings(active []*Position) []Holding {
	byTicker := make(map[string][]*Position)
	for _, p := range active {
		byTicker[p.Ticker] = append(byTicker[p.Ticker], p)
	}

	out := make([]Holding, 0, len(byTicker))
	for ticker, lots := range byTicker {
		var shares int64
		cost := decimal.Zero
		h := Holding{Ticker: ticker}
		for _, p := range lots {
			shares += p.Shares
			cost = cost.Add(decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromInt(p.Shares)))
			h.Lots = append(h.Lots, HoldingLot{
				ID:         p.ID,
				EntryPrice: p.EntryPrice,
				EntryDate:  p.EntryDate,
				Shares:     p.Shares,
			})
		}
		h.TotalShares = shares
		h.TotalInvested, _ = cost.Float64()
		if shares > 0 {
			h.AvgEntryPrice, _ = cost.Div(decimal.NewFromInt(shares)).Float64()
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// BuildPerformance computes realized profit, invested capital and return
// percentage over the closed lots whose ClosedAt is not before `since`.
// A zero `since` means all-time.
func BuildPerformance(closed []*Position, since time.Time) PerformanceWindow {
	var w PerformanceWindow
	profit := decimal.Zero
	invested := decimal.Zero
	for _, p := range closed {
		if !since.IsZero() && (p.ClosedAt == nil || p.ClosedAt.Before(since)) {
			continue
		}
		w.Trades++
		if p.Profit != nil {
			profit = profit.Add(decimal.NewFromFloat(*p.Profit))
		}
		invested = invested.Add(decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromInt(p.Shares)))
	}
	w.Profit, _ = profit.Float64()
	w.Invested, _ = invested.Float64()
	if invested.IsPositive() {
		w.ReturnPct, _ = profit.Div(invested).Mul(decimal.NewFromInt(100)).Float64()
	}
	return w
}

// BuildStats derives the trading statistics block from closed lots.
func BuildStats(closed []*Position) TradingStats {
	var s TradingStats
	s.TotalTrades = len(closed)

	winSum, lossSum := decimal.Zero, decimal.Zero
	for _, p := range closed {
		if p.Profit == nil {
			continue
		}
		profit := *p.Profit
		switch {
		case profit > 0:
			s.WinningTrades++
			winSum = winSum.Add(decimal.NewFromFloat(profit))
			if profit > s.LargestWin {
				s.LargestWin = profit
			}
		case profit < 0:
			s.LosingTrades++
			lossSum = lossSum.Add(decimal.NewFromFloat(profit))
			if profit < s.LargestLoss {
				s.LargestLoss = profit
			}
		}
	}
	if s.TotalTrades > 0 {
		rate, _ := decimal.NewFromInt(int64(s.WinningTrades)).
			Div(decimal.NewFromInt(int64(s.TotalTrades))).
			Mul(decimal.NewFromInt(100)).Float64()
		s.WinRate = rate
	}
	if s.WinningTrades > 0 {
		s.AvgWin, _ = winSum.Div(decimal.NewFromInt(int64(s.WinningTrades))).Float64()
	}
	if s.LosingTrades > 0 {
		s.AvgLoss, _ = lossSum.Div(decimal.NewFromInt(int64(s.LosingTrades))).Float64()
	}
	switch {
	case s.AvgLoss != 0:
		ratio, _ := decimal.NewFromFloat(s.AvgWin).Div(decimal.NewFromFloat(s.AvgLoss)).Abs().Float64()
		s.ProfitFactor = ProfitFactor{Defined: true, Ratio: ratio}
	case s.AvgWin > 0:
		s.ProfitFactor = ProfitFactor{Defined: false}
	default:
		s.ProfitFactor = ProfitFactor{Defined: true, Ratio: 0}
	}
	return s
}
