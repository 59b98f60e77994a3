package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/model"
	"trading-journal/internal/infra/logging"
	"trading-journal/internal/infra/metrics"
)

// round2 is the single rounding point: monetary values stay full-precision
// until they cross into a response body.
func round2(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return out
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := round2(*v)
	return &out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflicting state")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func accountID(r *http.Request) string {
	id, _ := logging.AccountIDFromContext(r.Context())
	return id
}

// --- positions ---

type positionDTO struct {
	ID         string   `json:"id"`
	Ticker     string   `json:"ticker"`
	EntryPrice float64  `json:"entry_price"`
	EntryDate  string   `json:"entry_date"`
	Shares     int64    `json:"shares"`
	IsActive   bool     `json:"is_active"`
	AddedAt    string   `json:"added_at"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	ExitDate   *string  `json:"exit_date,omitempty"`
	ExitReason *string  `json:"exit_reason,omitempty"`
	ClosedAt   *string  `json:"closed_at,omitempty"`
	Profit     *float64 `json:"profit,omitempty"`
	ReturnPct  *float64 `json:"return_pct,omitempty"`
}

func toPositionDTO(p *model.Position) positionDTO {
	dto := positionDTO{
		ID:         p.ID,
		Ticker:     p.Ticker,
		EntryPrice: round2(p.EntryPrice),
		EntryDate:  p.EntryDate,
		Shares:     p.Shares,
		IsActive:   p.IsActive,
		AddedAt:    p.OpenedAt.UTC().Format(time.RFC3339),
		ExitPrice:  round2Ptr(p.ExitPrice),
		ExitDate:   p.ExitDate,
		ExitReason: p.ExitReason,
		Profit:     round2Ptr(p.Profit),
		ReturnPct:  round2Ptr(p.ReturnPct),
	}
	if p.ClosedAt != nil {
		ts := p.ClosedAt.UTC().Format(time.RFC3339)
		dto.ClosedAt = &ts
	}
	return dto
}

type openPositionRequest struct {
	Ticker     string  `json:"ticker"`
	EntryPrice float64 `json:"entry_price"`
	EntryDate  string  `json:"entry_date"`
	Shares     int64   `json:"shares"`
}

func (s *Server) openPositionHandler(w http.ResponseWriter, r *http.Request) {
	var req openPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.portfolio.OpenPosition(r.Context(), accountID(r), req.Ticker, req.EntryPrice, req.EntryDate, req.Shares)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncPositionOpened(p.Ticker)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Position added: " + p.Ticker,
		"position": toPositionDTO(p),
	})
}

type closePositionRequest struct {
	Ticker    string  `json:"ticker"`
	ExitPrice float64 `json:"exit_price"`
	ExitDate  string  `json:"exit_date"`
	Reason    string  `json:"reason"`
}

func (s *Server) closePositionHandler(w http.ResponseWriter, r *http.Request) {
	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.portfolio.ClosePosition(r.Context(), accountID(r), req.Ticker, req.ExitPrice, req.ExitDate, req.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncPositionClosed(res.Position.Ticker, res.Profit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Position closed: " + res.Position.Ticker,
		"position": toPositionDTO(res.Position),
		"summary": map[string]interface{}{
			"entry_price": round2(res.Position.EntryPrice),
			"exit_price":  round2(req.ExitPrice),
			"profit":      round2(res.Profit),
			"return_pct":  round2(res.ReturnPct),
		},
	})
}

// --- dashboard ---

type holdingDTO struct {
	Ticker              string   `json:"ticker"`
	TotalShares         int64    `json:"total_shares"`
	AvgEntryPrice       float64  `json:"avg_entry_price"`
	TotalInvested       float64  `json:"total_invested"`
	CurrentPrice        *float64 `json:"current_price"`
	UnrealizedProfit    *float64 `json:"unrealized_profit,omitempty"`
	UnrealizedReturnPct *float64 `json:"unrealized_return_pct,omitempty"`
	PositionCount       int      `json:"position_count"`
	Positions           []lotDTO `json:"positions"`
}

type lotDTO struct {
	ID         string  `json:"id"`
	EntryPrice float64 `json:"entry_price"`
	EntryDate  string  `json:"entry_date"`
	Shares     int64   `json:"shares"`
}

type performanceDTO struct {
	Trades    int     `json:"trades"`
	Profit    float64 `json:"profit"`
	ReturnPct float64 `json:"return_pct"`
	Invested  float64 `json:"invested"`
}

func toPerformanceDTO(w model.PerformanceWindow) performanceDTO {
	return performanceDTO{
		Trades:    w.Trades,
		Profit:    round2(w.Profit),
		ReturnPct: round2(w.ReturnPct),
		Invested:  round2(w.Invested),
	}
}

type recentTradeDTO struct {
	ID        string   `json:"id"`
	Ticker    string   `json:"ticker"`
	Profit    *float64 `json:"profit"`
	ReturnPct *float64 `json:"return_pct"`
	ExitDate  *string  `json:"exit_date"`
	ClosedAt  *string  `json:"closed_at"`
	AddedAt   string   `json:"added_at"`
	Shares    int64    `json:"shares"`
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	d, err := s.portfolio.Dashboard(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	holdings := make([]holdingDTO, 0, len(d.Holdings))
	for _, h := range d.Holdings {
		dto := holdingDTO{
			Ticker:              h.Ticker,
			TotalShares:         h.TotalShares,
			AvgEntryPrice:       round2(h.AvgEntryPrice),
			TotalInvested:       round2(h.TotalInvested),
			CurrentPrice:        round2Ptr(h.CurrentPrice),
			UnrealizedProfit:    round2Ptr(h.UnrealizedProfit),
			UnrealizedReturnPct: round2Ptr(h.UnrealizedReturnPct),
			PositionCount:       len(h.Lots),
			Positions:           make([]lotDTO, 0, len(h.Lots)),
		}
		for _, lot := range h.Lots {
			dto.Positions = append(dto.Positions, lotDTO{
				ID:         lot.ID,
				EntryPrice: round2(lot.EntryPrice),
				EntryDate:  lot.EntryDate,
				Shares:     lot.Shares,
			})
		}
		holdings = append(holdings, dto)
	}

	recent := make([]recentTradeDTO, 0, len(d.RecentTrades))
	for _, p := range d.RecentTrades {
		t := recentTradeDTO{
			ID:        p.ID,
			Ticker:    p.Ticker,
			Profit:    round2Ptr(p.Profit),
			ReturnPct: round2Ptr(p.ReturnPct),
			ExitDate:  p.ExitDate,
			AddedAt:   p.OpenedAt.UTC().Format(time.RFC3339),
			Shares:    p.Shares,
		}
		if p.ClosedAt != nil {
			ts := p.ClosedAt.UTC().Format(time.RFC3339)
			t.ClosedAt = &ts
		}
		recent = append(recent, t)
	}

	historical := make([]positionDTO, 0, len(d.HistoricalTrades))
	for _, p := range d.HistoricalTrades {
		historical = append(historical, toPositionDTO(p))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"name":  d.Owner.Name,
			"email": d.Owner.Email,
			"start": d.Owner.Since.UTC().Format(time.RFC3339),
		},
		"summary": map[string]interface{}{
			"total_active_positions": d.Summary.TotalActivePositions,
			"unique_tickers":         d.Summary.UniqueTickers,
			"total_invested":         round2(d.Summary.TotalInvested),
			"total_trades":           d.Summary.TotalTrades,
		},
		"current_holdings": holdings,
		"performance": map[string]interface{}{
			"ytd":      toPerformanceDTO(d.YTD),
			"all_time": toPerformanceDTO(d.AllTime),
		},
		"trading_stats": map[string]interface{}{
			"total_trades":   d.Stats.TotalTrades,
			"winning_trades": d.Stats.WinningTrades,
			"losing_trades":  d.Stats.LosingTrades,
			"win_rate":       round2(d.Stats.WinRate),
			"avg_win":        round2(d.Stats.AvgWin),
			"avg_loss":       round2(d.Stats.AvgLoss),
			"profit_factor":  d.Stats.ProfitFactor,
			"largest_win":    round2(d.Stats.LargestWin),
			"largest_loss":   round2(d.Stats.LargestLoss),
		},
		"recent_trades":     recent,
		"historical_trades": historical,
	})
}

// --- subscription ---

type checkoutRequest struct {
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (s *Server) createCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		writeError(w, http.StatusBadRequest, "successUrl and cancelUrl are required")
		return
	}
	session, err := s.entitlement.CreateCheckoutSession(r.Context(), accountID(r), req.SuccessURL, req.CancelURL)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.SessionRef,
		"url":       session.URL,
	})
}

type portalRequest struct {
	ReturnURL string `json:"returnUrl"`
}

func (s *Server) createPortalSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReturnURL == "" {
		writeError(w, http.StatusBadRequest, "returnUrl is required")
		return
	}
	url, err := s.entitlement.CreatePortalSession(r.Context(), accountID(r), req.ReturnURL)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func (s *Server) subscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.entitlement.Status(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                  snap.Status,
		"plan":                    snap.PlanName,
		"amount":                  snap.AmountMinorUnits,
		"interval":                snap.Interval,
		"is_payment_exempt":       snap.PaymentExempt,
		"trial_start_date":        fmtTimePtr(snap.TrialStart),
		"trial_end_date":          fmtTimePtr(snap.TrialEnd),
		"subscription_start_date": fmtTimePtr(snap.SubscriptionStart),
		"subscription_end_date":   fmtTimePtr(snap.SubscriptionEnd),
		"current_period_end":      fmtTimePtr(snap.CurrentPeriodEnd),
		"cancel_at_period_end":    snap.CancelAtPeriodEnd,
		"has_active_subscription": snap.HasAccess,
	})
}

type paymentDTO struct {
	ID               string  `json:"id"`
	InvoiceRef       string  `json:"invoice_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	PaidAt           string  `json:"paid_at"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	InvoicePDF       *string `json:"invoice_pdf,omitempty"`
	HostedInvoiceURL *string `json:"hosted_invoice_url,omitempty"`
}

func (s *Server) paymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	payments, total, err := s.entitlement.PaymentHistory(r.Context(), accountID(r), (page-1)*limit, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	results := make([]paymentDTO, 0, len(payments))
	for _, p := range payments {
		// minor units to major units at the boundary
		amount, _ := decimal.NewFromInt(p.AmountMinorUnits).Div(decimal.NewFromInt(100)).Float64()
		results = append(results, paymentDTO{
			ID:               p.ID,
			InvoiceRef:       p.InvoiceRef,
			Amount:           amount,
			Currency:         p.Currency,
			Status:           string(p.Status),
			PaidAt:           p.PaidAt.UTC().Format(time.RFC3339),
			PeriodStart:      p.PeriodStart.UTC().Format(time.RFC3339),
			PeriodEnd:        p.PeriodEnd.UTC().Format(time.RFC3339),
			InvoicePDF:       p.InvoicePDF,
			HostedInvoiceURL: p.HostedInvoiceURL,
		})
	}
	totalPages := (total + limit - 1) / limit
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":       results,
		"page":          page,
		"limit":         limit,
		"total_pages":   totalPages,
		"total_results": total,
	})
}

func (s *Server) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	acc, err := s.entitlement.CancelAtPeriodEnd(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":              "subscription will cancel at period end",
		"cancel_at_period_end": acc.CancelAtPeriodEnd,
		"current_period_end":   fmtTimePtr(acc.CurrentPeriodEnd),
	})
}

func (s *Server) reactivateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	acc, err := s.entitlement.Reactivate(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":              "subscription reactivated",
		"cancel_at_period_end": acc.CancelAtPeriodEnd,
	})
}
