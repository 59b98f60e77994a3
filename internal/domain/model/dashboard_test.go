//go:build !integration

package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"trading-journal/internal/domain/model"
)

func closedLot(ticker string, entry, exit float64, shares int64, closedAt time.Time) *model.Position {
	p, _ := model.NewPosition("acc-1", ticker, entry, "2026-01-02", shares, closedAt.Add(-24*time.Hour))
	_ = p.Close(exit, closedAt.Format("2006-01-02"), "", closedAt)
	return p
}

func TestBuildHoldings(t *testing.T) {
	now := time.Now()

	t.Run("merges lots of the same ticker with share weighted average", func(t *testing.T) {
		// --- Arrange ---
		a, _ := model.NewPosition("acc-1", "AAPL", 100, "2026-01-02", 10, now)
		b, _ := model.NewPosition("acc-1", "AAPL", 200, "2026-01-03", 10, now.Add(time.Second))

		// --- Act ---
		holdings := model.BuildHoldings([]*model.Position{a, b})

		// --- Assert ---
		if len(holdings) != 1 {
			t.Fatalf("expected one holding, got %d", len(holdings))
		}
		h := holdings[0]
		if h.TotalShares != 20 {
			t.Errorf("expected 20 shares, got %d", h.TotalShares)
		}
		if !almostEqual(h.AvgEntryPrice, 150) {
			t.Errorf("expected avg 150, got %v", h.AvgEntryPrice)
		}
		if !almostEqual(h.TotalInvested, 3000) {
			t.Errorf("expected invested 3000, got %v", h.TotalInvested)
		}
		if len(h.Lots) != 2 {
			t.Errorf("expected constituent lots kept, got %d", len(h.Lots))
		}
	})

	t.Run("output is sorted by ticker", func(t *testing.T) {
		a, _ := model.NewPosition("acc-1", "MSFT", 300, "2026-01-02", 5, now)
		b, _ := model.NewPosition("acc-1", "AAPL", 100, "2026-01-02", 10, now)

		holdings := model.BuildHoldings([]*model.Position{a, b})

		if holdings[0].Ticker != "AAPL" || holdings[1].Ticker != "MSFT" {
			t.Errorf("expected AAPL before MSFT, got %v %v", holdings[0].Ticker, holdings[1].Ticker)
		}
	})
}

func TestBuildStats(t *testing.T) {
	now := time.Now()

	t.Run("three trade sample", func(t *testing.T) {
		// wins: +100 (100→110×10), +50 (50×10→55); loss: -40 (40→30×4)
		closed := []*model.Position{
			closedLot("AAA", 100, 110, 10, now),
			closedLot("BBB", 50, 55, 10, now),
			closedLot("CCC", 40, 30, 4, now),
		}

		s := model.BuildStats(closed)

		if s.TotalTrades != 3 || s.WinningTrades != 2 || s.LosingTrades != 1 {
			t.Fatalf("unexpected counts: %+v", s)
		}
		if !almostEqual(s.WinRate, 200.0/3.0) {
			t.Errorf("expected win rate 66.66..., got %v", s.WinRate)
		}
		if !almostEqual(s.AvgWin, 75) {
			t.Errorf("expected avg win 75, got %v", s.AvgWin)
		}
		if !almostEqual(s.AvgLoss, -40) {
			t.Errorf("expected avg loss -40, got %v", s.AvgLoss)
		}
		if !s.ProfitFactor.Defined || !almostEqual(s.ProfitFactor.Ratio, 1.875) {
			t.Errorf("expected profit factor 1.875, got %+v", s.ProfitFactor)
		}
		if !almostEqual(s.LargestWin, 100) || !almostEqual(s.LargestLoss, -40) {
			t.Errorf("expected largest 100/-40, got %v/%v", s.LargestWin, s.LargestLoss)
		}
	})

	t.Run("ties count as neither winners nor losers", func(t *testing.T) {
		closed := []*model.Position{closedLot("AAA", 100, 100, 10, now)}

		s := model.BuildStats(closed)

		if s.TotalTrades != 1 || s.WinningTrades != 0 || s.LosingTrades != 0 {
			t.Errorf("unexpected counts for flat trade: %+v", s)
		}
		if !s.ProfitFactor.Defined || s.ProfitFactor.Ratio != 0 {
			t.Errorf("expected finite zero profit factor, got %+v", s.ProfitFactor)
		}
	})

	t.Run("all winners yields undefined profit factor", func(t *testing.T) {
		closed := []*model.Position{closedLot("AAA", 100, 120, 10, now)}

		s := model.BuildStats(closed)

		if s.ProfitFactor.Defined {
			t.Errorf("expected undefined profit factor, got %+v", s.ProfitFactor)
		}
	})
}

func TestProfitFactor_MarshalJSON(t *testing.T) {
	t.Run("undefined serializes as the N/A sentinel", func(t *testing.T) {
		b, err := json.Marshal(model.ProfitFactor{Defined: false})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `"N/A"` {
			t.Errorf(`expected "N/A", got %s`, b)
		}
	})

	t.Run("finite value serializes rounded to two decimals", func(t *testing.T) {
		b, err := json.Marshal(model.ProfitFactor{Defined: true, Ratio: 1.875})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "1.88" {
			t.Errorf("expected 1.88, got %s", b)
		}
	})
}

func TestBuildPerformance(t *testing.T) {
	now := time.Now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	t.Run("window filters by closed_at", func(t *testing.T) {
		thisYear := closedLot("AAA", 100, 110, 10, now)              // +100
		lastYear := closedLot("BBB", 100, 90, 10, yearStart.Add(-24*time.Hour)) // -100

		ytd := model.BuildPerformance([]*model.Position{thisYear, lastYear}, yearStart)
		all := model.BuildPerformance([]*model.Position{thisYear, lastYear}, time.Time{})

		if ytd.Trades != 1 || !almostEqual(ytd.Profit, 100) {
			t.Errorf("unexpected ytd window: %+v", ytd)
		}
		if all.Trades != 2 || !almostEqual(all.Profit, 0) {
			t.Errorf("unexpected all-time window: %+v", all)
		}
		if !almostEqual(ytd.ReturnPct, 10) {
			t.Errorf("expected ytd return 10%%, got %v", ytd.ReturnPct)
		}
	})

	t.Run("empty window has zero return", func(t *testing.T) {
		w := model.BuildPerformance(nil, time.Time{})
		if w.Trades != 0 || w.ReturnPct != 0 {
			t.Errorf("unexpected empty window: %+v", w)
		}
	})
}
