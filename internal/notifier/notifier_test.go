package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/report"
)

type recordingSender struct {
	to, subject, html, plain string
}

func (r *recordingSender) Send(to, subject, htmlBody, plainBody string) error {
	r.to, r.subject, r.html, r.plain = to, subject, htmlBody, plainBody
	return nil
}

func TestSendWeekly(t *testing.T) {
	rec := &recordingSender{}
	n := New(rec, "me@example.com")
	require.NoError(t, n.SendWeekly(&report.Weekly{Subject: "s", HTMLBody: "<p>h</p>", Markdown: "# m"}))
	assert.Equal(t, recordingSender{to: "me@example.com", subject: "s", html: "<p>h</p>", plain: "# m"}, *rec)
}

func TestNewFromConfig(t *testing.T) {
	n, err := NewFromConfig(config.Default().Email)
	require.NoError(t, err)
	assert.Nil(t, n, "unconfigured email yields no notifier")

	cfg := config.EmailConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25, ToAddr: "me@example.com"}
	n, err = NewFromConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, n)

	cfg.Provider = "sendgrid"
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}
