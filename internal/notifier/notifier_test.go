package notifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/report"
)

type fakeSender struct {
	to, subject, html, plain string

	err error
}

func (f *fakeSender) Send(to, subject, htmlBody, plainBody string) error {
	f.to, f.subject, f.html, f.plain = to, subject, htmlBody, plainBody
	return f.err
}

func TestSendReport(t *testing.T) {
	fs := &fakeSender{}
	n := New(fs, "you@example.com")

	err := n.SendReport(&report.Summary{Subject: "s", HTMLBody: "<p>h</p>", PlainBody: "p"})
	require.NoError(t, err)
	assert.Equal(t, &fakeSender{to: "you@example.com", subject: "s", html: "<p>h</p>", plain: "p"}, fs)

	fs.err = errors.New("down")
	err = n.SendReport(&report.Summary{Subject: "s"})
	assert.ErrorIs(t, err, fs.err)
}

func TestNewFromConfig(t *testing.T) {
	keyring.MockInit()

	cfg := config.EmailConfig{Provider: "smtp", SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPUser: "me", ToAddr: "you@example.com"}
	n, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, n)

	cfg.Provider = "pigeon"
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)

	cfg.ToAddr = ""
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}
