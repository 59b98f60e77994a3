package mail

import (
	"context"
	"sync"

	"trading-journal/internal/domain/ports/adapter"
)

var _ adapter.NotificationSender = (*NoopSender)(nil)

// SentMail records one delivery for assertions in tests.
type SentMail struct {
	To       string
	Template string
	Vars     map[string]string
}

// NoopSender records sends in memory. Used in dev mode and tests.
type NoopSender struct {
	mu   sync.Mutex
	sent []SentMail
}

func NewNoopSender() *NoopSender { return &NoopSender{} }

func (s *NoopSender) SendTemplate(ctx context.Context, to, template string, vars map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentMail{To: to, Template: template, Vars: vars})
	return nil
}

func (s *NoopSender) Sent() []SentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMail, len(s.sent))
	copy(out, s.sent)
	return out
}
