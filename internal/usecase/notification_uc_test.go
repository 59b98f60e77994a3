//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading-journal/internal/usecase"
)

func TestNotificationUseCase_TrialReminders(t *testing.T) {
	ctx := context.Background()

	t.Run("mails accounts in the reminder window once", func(t *testing.T) {
		// --- Arrange ---
		accounts := NewMockAccountRepo()
		acc := seedAccount(accounts, "acc-1", nil, nil)
		acc.InitializeTrial(time.Now().Add(-28 * 24 * time.Hour)) // ends in ~2 days
		_ = accounts.Save(ctx, nil, acc)

		mailer := &MockMailer{}
		uc := usecase.NewNotificationUseCase(accounts, mailer, NewMockTxManager(), 3, newTestLogger())

		// --- Act ---
		sent, err := uc.CheckAndSendTrialReminders(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// --- Assert ---
		if sent != 1 || mailer.SentCount() != 1 {
			t.Fatalf("expected one reminder, got sent=%d mails=%d", sent, mailer.SentCount())
		}
		if mailer.Sent[0].Template != "trial-ending" {
			t.Errorf("expected trial-ending template, got %q", mailer.Sent[0].Template)
		}

		// second sweep finds nothing: the reminder mark dedups
		sent, err = uc.CheckAndSendTrialReminders(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 0 {
			t.Errorf("expected no repeat reminder, got %d", sent)
		}
	})

	t.Run("accounts outside the window are not mailed", func(t *testing.T) {
		accounts := NewMockAccountRepo()
		acc := seedAccount(accounts, "acc-1", nil, nil)
		acc.InitializeTrial(time.Now()) // ends in 30 days
		_ = accounts.Save(ctx, nil, acc)

		mailer := &MockMailer{}
		uc := usecase.NewNotificationUseCase(accounts, mailer, NewMockTxManager(), 3, newTestLogger())

		sent, err := uc.CheckAndSendTrialReminders(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 0 || mailer.SentCount() != 0 {
			t.Errorf("expected no reminders, got %d", sent)
		}
	})

	t.Run("a trial that already lapsed is not mailed", func(t *testing.T) {
		accounts := NewMockAccountRepo()
		acc := seedAccount(accounts, "acc-1", nil, nil)
		acc.InitializeTrial(time.Now().Add(-40 * 24 * time.Hour)) // ended ~10 days ago
		_ = accounts.Save(ctx, nil, acc)

		mailer := &MockMailer{}
		uc := usecase.NewNotificationUseCase(accounts, mailer, NewMockTxManager(), 3, newTestLogger())

		sent, err := uc.CheckAndSendTrialReminders(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 0 || mailer.SentCount() != 0 {
			t.Errorf("expected no reminder for a lapsed trial, got %d", sent)
		}
	})

	t.Run("a failed send is not marked and retries next sweep", func(t *testing.T) {
		accounts := NewMockAccountRepo()
		acc := seedAccount(accounts, "acc-1", nil, nil)
		acc.InitializeTrial(time.Now().Add(-28 * 24 * time.Hour))
		_ = accounts.Save(ctx, nil, acc)

		failing := true
		mailer := &MockMailer{
			SendTemplateFunc: func(ctx context.Context, to, template string, vars map[string]string) error {
				if failing {
					return errors.New("smtp down")
				}
				return nil
			},
		}
		uc := usecase.NewNotificationUseCase(accounts, mailer, NewMockTxManager(), 3, newTestLogger())

		if sent, _ := uc.CheckAndSendTrialReminders(ctx); sent != 0 {
			t.Fatalf("expected failed send to not count, got %d", sent)
		}

		failing = false
		if sent, _ := uc.CheckAndSendTrialReminders(ctx); sent != 1 {
			t.Errorf("expected retry to succeed, got %d", sent)
		}
	})
}
