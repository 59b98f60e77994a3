package sched

import (
	"context"
	"time"

	"trading-journal/internal/infra/metrics"
	"trading-journal/internal/usecase"

	"github.com/rs/zerolog"
)

// TrialReminderWorker drives the trial-ending email sweep on a fixed tick.
type TrialReminderWorker struct {
	interval time.Duration
	notifUC  usecase.NotificationUseCase
	log      *zerolog.Logger
}

func NewTrialReminderWorker(interval time.Duration, notifUC usecase.NotificationUseCase, logger *zerolog.Logger) *TrialReminderWorker {
	compLog := logger.With().Str("component", "TrialReminderWorker").Logger()
	return &TrialReminderWorker{
		interval: interval,
		notifUC:  notifUC,
		log:      &compLog,
	}
}

func (w *TrialReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting trial reminder worker")
	// Run once on startup, then on every tick
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping trial reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *TrialReminderWorker) runCheck(ctx context.Context) {
	sent, err := w.notifUC.CheckAndSendTrialReminders(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("trial reminder sweep failed")
	}
	if sent > 0 {
		metrics.IncTrialReminders(sent)
		w.log.Info().Int("count", sent).Msg("trial reminders sent")
	}
}
