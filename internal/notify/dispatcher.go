package notify

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Notification is one message to a patient on every channel it has an
// address for.
type Notification struct {
	Template string
	Email    string
	Phone    string
	Data     map[string]string
}

// Notifier is what the scheduling services call after a commit.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Dispatcher renders templates and delivers them with exponential backoff.
type Dispatcher struct {
	email      EmailSender
	sms        SMSSender
	templates  map[string]Template
	maxElapsed time.Duration
	log        zerolog.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, maxElapsed time.Duration, log zerolog.Logger) *Dispatcher {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Dispatcher{
		email:      email,
		sms:        sms,
		templates:  DefaultTemplates(),
		maxElapsed: maxElapsed,
		log:        log,
	}
}

// WithTemplates replaces the template set.
func (d *Dispatcher) WithTemplates(t map[string]Template) *Dispatcher {
	d.templates = t
	return d
}

// Notify delivers n synchronously. Failures are logged, never returned.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	tpl, err := lookup(d.templates, n.Template)
	if err != nil {
		d.log.Error().Err(err).Msg("notification dropped")
		return
	}
	subject, body := tpl.Render(n.Data)

	if n.Email != "" && d.email != nil {
		d.deliver(ctx, "email", n.Template, func() error {
			return d.email.SendEmail(ctx, n.Email, subject, body)
		})
	}
	if n.Phone != "" && d.sms != nil {
		d.deliver(ctx, "sms", n.Template, func() error {
			return d.sms.SendSMS(ctx, n.Phone, body)
		})
	}
}

func (d *Dispatcher) deliver(ctx context.Context, channel, template string, send func() error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = d.maxElapsed

	attempt := 0
	err := backoff.RetryNotify(send, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		attempt++
		d.log.Warn().Err(err).
			Str("channel", channel).
			Str("template", template).
			Int("attempt", attempt).
			Dur("next_in", next).
			Msg("notification delivery failed, retrying")
	})
	if err != nil {
		d.log.Error().Err(err).
			Str("channel", channel).
			Str("template", template).
			Msg("notification not delivered")
	}
}
