package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ContactStatusReceived is reported for every accepted message.
const ContactStatusReceived = "received"

// ContactNotifier delivers an accepted contact message somewhere.
type ContactNotifier interface {
	Notify(ctx context.Context, msg types.ContactMessage) error
}

// LogNotifier only logs. It is the default: contact messages have no other
// destination unless a relay is configured.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.GetLogger().Named("contact")}
}

func (n *LogNotifier) Notify(_ context.Context, msg types.ContactMessage) error {
	n.log.Infow("Contact form submitted",
		"name", msg.Name,
		"email", logger.MaskEmail(msg.Email),
		"messageLength", len(msg.Message))
	return nil
}

// EmailSender is the part of the Resend client the relay uses.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier forwards contact messages as email through Resend.
type ResendNotifier struct {
	emails EmailSender
	from   string
	to     string
	log    *zap.SugaredLogger
}

// NewResendNotifier builds a relay from cfg.
func NewResendNotifier(cfg *config.ContactConfig) *ResendNotifier {
	client := resend.NewClient(cfg.ResendAPIKey)
	return newResendNotifier(client.Emails, cfg.FromAddress, cfg.ToAddress)
}

func newResendNotifier(emails EmailSender, from, to string) *ResendNotifier {
	return &ResendNotifier{
		emails: emails,
		from:   from,
		to:     to,
		log:    logger.GetLogger().Named("contact_relay"),
	}
}

func (n *ResendNotifier) Notify(ctx context.Context, msg types.ContactMessage) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("Portfolio contact from %s", msg.Name),
		Text:    fmt.Sprintf("From: %s <%s>\n\n%s", msg.Name, msg.Email, msg.Message),
	}

	resp, err := n.emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("contact relay failed: %w", err)
	}
	n.log.Infow("Contact message relayed", "emailID", resp.Id)
	return nil
}

// ContactService accepts contact form submissions. Delivery failures are
// logged and never surface to the visitor.
type ContactService struct {
	notifiers []ContactNotifier
	timeout   time.Duration
	log       *zap.SugaredLogger
}

// NewContactService creates a service that always logs and additionally
// hands each message to relays.
func NewContactService(relays ...ContactNotifier) *ContactService {
	return &ContactService{
		notifiers: append([]ContactNotifier{NewLogNotifier()}, relays...),
		timeout:   10 * time.Second,
		log:       logger.GetLogger().Named("contact"),
	}
}

// Submit accepts msg and returns the reset form.
func (s *ContactService) Submit(ctx context.Context, msg types.ContactMessage) types.ContactReceipt {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			s.log.Warnw("Contact notifier failed",
				"email", logger.MaskEmail(msg.Email),
				"error", err)
		}
	}

	return types.ContactReceipt{
		Status: ContactStatusReceived,
		Form:   types.ContactMessage{},
	}
}
