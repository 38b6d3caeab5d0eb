package task

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/trezcool/masomo-credentials/core"
)

// MailAlerter reports dead-lettered envelopes to the logger's critical channel and by email.
type MailAlerter struct {
	mailer     core.EmailService
	logger     core.Logger
	recipients []mail.Address
}

var _ Alerter = (*MailAlerter)(nil)

func NewMailAlerter(mailer core.EmailService, logger core.Logger, recipients []mail.Address) *MailAlerter {
	return &MailAlerter{mailer: mailer, logger: logger, recipients: recipients}
}

type deadLetterData struct {
	ID      string
	Name    string
	Attempt int
	Reason  string
	Args    string
	Failed  []string
}

func (a *MailAlerter) DeadLettered(ctx context.Context, env Envelope, d Decision) {
	msg := fmt.Sprintf("task %s (%s) exhausted %d retries: %s", env.Name, env.ID, env.Attempt, d.Reason)
	a.logger.Critical(msg, map[string]interface{}{
		"task_id":    env.ID,
		"task":       env.Name,
		"args":       string(env.Args),
		"attempt":    env.Attempt,
		"last_error": env.LastError,
	})

	if len(a.recipients) == 0 {
		return
	}
	a.mailer.SendMessages(&core.EmailMessage{
		To:           a.recipients,
		Subject:      fmt.Sprintf("Task %s gave up", env.Name),
		TemplateName: "task_dead_letter",
		TemplateData: deadLetterData{
			ID:      env.ID,
			Name:    env.Name,
			Attempt: env.Attempt,
			Reason:  d.Reason,
			Args:    string(env.Args),
			Failed:  d.Failed,
		},
	})
}
