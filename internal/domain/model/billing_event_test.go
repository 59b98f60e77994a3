//go:build !integration

package model_test

import (
	"testing"
	"time"

	"trading-journal/internal/domain/model"
)

func TestParseBillingEvent(t *testing.T) {
	t.Run("subscription updated event", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_1",
			"type": "customer.subscription.updated",
			"data": {"object": {
				"id": "sub_123",
				"customer": "cus_123",
				"status": "active",
				"current_period_start": 1700000000,
				"current_period_end": 1702592000,
				"cancel_at_period_end": true,
				"metadata": {"accountId": "acc-1"},
				"items": {"data": [{"price": {
					"nickname": "Pro",
					"unit_amount": 2900,
					"recurring": {"interval": "month"}
				}}]}
			}}
		}`)

		ev, err := model.ParseBillingEvent(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Kind != model.EventSubscriptionUpdated || !ev.Known() {
			t.Fatalf("unexpected kind %q", ev.Kind)
		}
		s := ev.Subscription
		if s == nil {
			t.Fatal("expected subscription payload")
		}
		if s.SubscriptionRef != "sub_123" || s.AccountID != "acc-1" {
			t.Errorf("unexpected refs: %+v", s)
		}
		if s.Status != model.SubscriptionStatusActive || !s.CancelAtPeriodEnd {
			t.Errorf("unexpected status fields: %+v", s)
		}
		if !s.CurrentPeriodStart.Equal(time.Unix(1700000000, 0).UTC()) {
			t.Errorf("unexpected period start: %v", s.CurrentPeriodStart)
		}
		if s.Price == nil || s.Price.AmountMinorUnits != 2900 || s.Price.Interval != model.BillingIntervalMonth {
			t.Errorf("unexpected price: %+v", s.Price)
		}
	})

	t.Run("invoice paid event", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_2",
			"type": "invoice.paid",
			"data": {"object": {
				"id": "in_42",
				"customer": "cus_123",
				"subscription": "sub_123",
				"amount_paid": 2900,
				"currency": "usd",
				"status": "paid",
				"period_start": 1700000000,
				"period_end": 1702592000,
				"status_transitions": {"paid_at": 1700000100}
			}}
		}`)

		ev, err := model.ParseBillingEvent(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		inv := ev.Invoice
		if inv == nil {
			t.Fatal("expected invoice payload")
		}
		if inv.InvoiceRef != "in_42" || inv.AmountMinorUnits != 2900 || inv.Currency != "usd" {
			t.Errorf("unexpected invoice: %+v", inv)
		}
		if inv.PaidAt == nil || !inv.PaidAt.Equal(time.Unix(1700000100, 0).UTC()) {
			t.Errorf("unexpected paid_at: %v", inv.PaidAt)
		}
	})

	t.Run("checkout completed event", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_3",
			"type": "checkout.session.completed",
			"data": {"object": {
				"id": "cs_9",
				"customer": "cus_123",
				"subscription": "sub_123",
				"metadata": {"accountId": "acc-1"}
			}}
		}`)

		ev, err := model.ParseBillingEvent(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Checkout == nil || ev.Checkout.SubscriptionRef != "sub_123" || ev.Checkout.AccountID != "acc-1" {
			t.Errorf("unexpected checkout payload: %+v", ev.Checkout)
		}
	})

	t.Run("unknown kind parses with no payload", func(t *testing.T) {
		payload := []byte(`{"id": "evt_4", "type": "customer.updated", "data": {"object": {"id": "cus_123"}}}`)

		ev, err := model.ParseBillingEvent(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Known() {
			t.Error("expected unknown kind")
		}
		if ev.Subscription != nil || ev.Checkout != nil || ev.Invoice != nil {
			t.Error("expected no payload for unknown kind")
		}
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		if _, err := model.ParseBillingEvent([]byte(`{`)); err == nil {
			t.Error("expected parse error")
		}
	})
}
