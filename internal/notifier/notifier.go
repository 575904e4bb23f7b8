package notifier

import (
	"errors"
	"fmt"

	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/notifier/providers"
	"github.com/ibeckermayer/xengage/internal/report"
)

// Notifier handles sending run summaries
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier sending to the given address
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig creates a notifier based on configuration. The SMTP password
// comes from the config, the environment or the system keychain.
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	if cfg.ToAddr == "" {
		return nil, errors.New("email.to_address is not set")
	}

	var sender Sender

	switch cfg.Provider {
	case "smtp", "":
		pass, err := cfg.SMTPPassword()
		if err != nil {
			return nil, err
		}
		from := cfg.FromAddr
		if from == "" {
			from = cfg.SMTPUser
		}
		sender = providers.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, pass, from)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender, cfg.ToAddr), nil
}

// SendReport sends a run summary email
func (n *Notifier) SendReport(s *report.Summary) error {
	if err := n.sender.Send(n.to, s.Subject, s.HTMLBody, s.PlainBody); err != nil {
		return fmt.Errorf("failed to send report to %s: %w", n.to, err)
	}
	return nil
}
