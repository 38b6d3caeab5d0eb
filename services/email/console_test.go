package emailsvc

import (
	"context"
	"encoding/json"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/task"
	"github.com/trezcool/masomo-credentials/fs"
	"github.com/trezcool/masomo-credentials/services/logger"
)

func TestConsoleServiceMock_DeadLetterAlert(t *testing.T) {
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, "templates/email", true))

	conf := &core.Config{AppName: "Credentials", Env: "test"}
	conf.Mail.DefaultFromEmail = mail.Address{Name: "Credentials", Address: "noreply@example.com"}
	mailer := NewConsoleServiceMock(conf, logsvc.NewDiscardLogger())
	admins := []mail.Address{{Address: "ops@example.com"}}
	alerter := task.NewMailAlerter(mailer, logsvc.NewDiscardLogger(), admins)

	env := task.Envelope{
		ID:      "e1",
		Name:    "credentials.award_program_certificates",
		Args:    json.RawMessage(`{"username":"awe"}`),
		Attempt: 11,
	}
	alerter.DeadLettered(context.Background(), env, task.Decision{
		Action: task.ActionDeadLetter,
		Reason: "failed to award 2 program(s) to awe",
		Failed: []string{"p1", "p2"},
	})

	require.Len(t, mailer.Sent, 1)
	msg := mailer.Sent[0]
	assert.Equal(t, admins, msg.To)
	assert.Equal(t, "Task credentials.award_program_certificates gave up", msg.Subject)
	for _, want := range []string{"gave up after 11 attempts", `{"username":"awe"}`, "Failed targets: p1, p2", "Credentials (test)"} {
		assert.True(t, strings.Contains(msg.TextContent, want), "text content misses %q:\n%s", want, msg.TextContent)
	}
	assert.NotEmpty(t, msg.HTMLContent)
	assert.Contains(t, mailer.format(msg), "Subject: [Credentials] Task")
}

func TestConsoleServiceMock_SkipsEmptyMessages(t *testing.T) {
	conf := &core.Config{AppName: "Credentials", Env: "test"}
	mailer := NewConsoleServiceMock(conf, logsvc.NewDiscardLogger())

	mailer.SendMessages(
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hi"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "no content"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, TemplateName: "missing"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "ok", BodyStr: "hi"},
	)
	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, "ok", mailer.Sent[0].Subject)
}
