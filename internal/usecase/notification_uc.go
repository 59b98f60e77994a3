// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-journal/internal/domain/model"
	"trading-journal/internal/domain/ports/adapter"
	"trading-journal/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase owns scheduled outbound email.
type NotificationUseCase interface {
	// CheckAndSendTrialReminders mails accounts whose trial ends within
	// the reminder window, at most once per trial. Returns how many were
	// sent.
	CheckAndSendTrialReminders(ctx context.Context) (int, error)
}

type notificationUC struct {
	accounts     repository.AccountRepository
	mailer       adapter.NotificationSender
	tm           repository.TransactionManager
	reminderDays int
	log          *zerolog.Logger
}

func NewNotificationUseCase(
	accounts repository.AccountRepository,
	mailer adapter.NotificationSender,
	tm repository.TransactionManager,
	reminderDays int,
	logger *zerolog.Logger,
) *notificationUC {
	if reminderDays <= 0 {
		reminderDays = 3
	}
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{accounts: accounts, mailer: mailer, tm: tm, reminderDays: reminderDays, log: &l}
}

const reminderBatchSize = 100

func (u *notificationUC) CheckAndSendTrialReminders(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(time.Duration(u.reminderDays) * 24 * time.Hour)
	accounts, err := u.accounts.ListTrialsEndingBefore(ctx, repository.NoTX, cutoff, reminderBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, acc := range accounts {
		if err := u.remind(ctx, acc); err != nil {
			u.log.Error().Err(err).Str("account_id", acc.ID).Msg("trial reminder failed")
			continue
		}
		sent++
	}
	return sent, nil
}

// remind sends the email first and marks only on success, so a failed send
// is retried next tick. A crash between send and mark means at most one
// duplicate email, which is acceptable.
func (u *notificationUC) remind(ctx context.Context, acc *model.Account) error {
	vars := map[string]string{"name": acc.Name}
	if acc.TrialEnd != nil {
		vars["trialEnd"] = acc.TrialEnd.UTC().Format("January 2, 2006")
	}
	if err := u.mailer.SendTemplate(ctx, acc.Email, adapter.TemplateTrialEnding, vars); err != nil {
		return err
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.accounts.MarkTrialReminderSent(ctx, tx, acc.ID, time.Now())
	})
}
