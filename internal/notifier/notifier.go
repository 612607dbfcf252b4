package notifier

import (
	"fmt"

	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/notifier/providers"
	"github.com/ibeckermayer/xdash/internal/report"
)

// Notifier delivers weekly reports by email
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a notifier that mails to the given address
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig creates a notifier based on configuration.
// Returns nil, nil when email is not configured.
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var sender Sender
	switch cfg.Provider {
	case "smtp", "":
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender, cfg.ToAddr), nil
}

// SendWeekly mails a weekly report, markdown as the plain-text part
func (n *Notifier) SendWeekly(w *report.Weekly) error {
	if err := n.sender.Send(n.to, w.Subject, w.HTMLBody, w.Markdown); err != nil {
		return fmt.Errorf("failed to send weekly report: %w", err)
	}
	return nil
}
