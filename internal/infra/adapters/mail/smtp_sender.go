package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"trading-journal/internal/config"
	"trading-journal/internal/domain/ports/adapter"
)

var _ adapter.NotificationSender = (*SMTPSender)(nil)

// template holds a subject line and a plain-text body with {{var}} slots.
type template struct {
	subject string
	body    string
}

var templates = map[string]template{
	adapter.TemplateTrialEnding: {
		subject: "Your free trial ends soon",
		body: "Hi {{name}},\n\n" +
			"Your free trial ends on {{trialEnd}}. Subscribe to keep access to your trading journal and dashboard.\n\n" +
			"Manage your subscription from the billing page any time.\n",
	},
	adapter.TemplatePaymentFailed: {
		subject: "Payment failed for your subscription",
		body: "Hi {{name}},\n\n" +
			"We could not collect your latest subscription payment. Please update your payment method to keep access.\n\n" +
			"Your account stays usable for a short grace period while we retry.\n",
	},
}

// SMTPSender delivers templated notifications over SMTP with PLAIN auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and from are required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, port),
		auth: auth,
		from: cfg.From,
	}, nil
}

func render(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}

func (s *SMTPSender) SendTemplate(ctx context.Context, to, name string, vars map[string]string) error {
	tpl, ok := templates[name]
	if !ok {
		return fmt.Errorf("unknown mail template %q", name)
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + render(tpl.subject, vars),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		render(tpl.body, vars),
	}, "\r\n")

	// net/smtp has no context support; run the send in a goroutine so a
	// canceled context abandons the wait without leaking the caller.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
