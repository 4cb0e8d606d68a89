package service

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/yourusername/todo-api/internal/config"
)

func TestRenderOTPEmail(t *testing.T) {
	msg := renderOTPEmail("482913", "<Ann>", 10*time.Minute)

	assert.Equal(t, "Your activation code", msg.Subject)
	assert.Contains(t, msg.Text, "482913")
	assert.Contains(t, msg.Text, "10 minutes")
	assert.Contains(t, msg.Text, "Hello <Ann>")
	assert.Contains(t, msg.HTML, "<strong>482913</strong>")
	assert.Contains(t, msg.HTML, "&lt;Ann&gt;")
	assert.NotContains(t, msg.HTML, "<Ann>")
}

func TestNewMailer(t *testing.T) {
	t.Run("noop by default", func(t *testing.T) {
		m, err := NewMailer(config.MailConfig{}, time.Minute, nil)
		require.NoError(t, err)
		assert.IsType(t, &NoopMailer{}, m)
		assert.NoError(t, m.SendOTP(context.Background(), "a@b.c", "123456", "A"))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewMailer(config.MailConfig{Provider: "pigeon"}, time.Minute, nil)
		assert.Error(t, err)
	})

	t.Run("resend requires api key", func(t *testing.T) {
		_, err := NewMailer(config.MailConfig{Provider: "resend", From: "no-reply@x.com"}, time.Minute, nil)
		assert.Error(t, err)
	})

	t.Run("resend", func(t *testing.T) {
		m, err := NewMailer(config.MailConfig{
			Provider: "Resend", From: "no-reply@x.com", FromName: "Todo", ResendAPIKey: "re_test",
		}, time.Minute, nil)
		require.NoError(t, err)
		rm, ok := m.(*ResendMailer)
		require.True(t, ok)
		assert.Equal(t, `"Todo" <no-reply@x.com>`, rm.from)
	})

	t.Run("smtp requires host", func(t *testing.T) {
		_, err := NewMailer(config.MailConfig{Provider: "smtp", From: "no-reply@x.com"}, time.Minute, nil)
		assert.Error(t, err)
	})

	t.Run("smtp with xoauth2", func(t *testing.T) {
		m, err := NewMailer(config.MailConfig{
			Provider: "smtp",
			From:     "no-reply@x.com",
			SMTP: config.SMTPConfig{
				Host: "smtp.gmail.com", Port: 587, Username: "bot@x.com",
				OAuth2ClientID: "id", OAuth2ClientSecret: "secret",
				OAuth2RefreshToken: "refresh", OAuth2TokenURL: "https://oauth2.example.com/token",
			},
		}, time.Minute, nil)
		require.NoError(t, err)
		sm, ok := m.(*SMTPMailer)
		require.True(t, ok)
		assert.IsType(t, &xoauth2Auth{}, sm.dialer.Auth)
	})
}

func TestXOAuth2Auth(t *testing.T) {
	a := &xoauth2Auth{
		username: "bot@x.com",
		tokens:   oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "ya29.token"}),
	}

	_, _, err := a.Start(&smtp.ServerInfo{Name: "smtp.x.com", TLS: false})
	assert.Error(t, err)

	mech, resp, err := a.Start(&smtp.ServerInfo{Name: "smtp.x.com", TLS: true})
	require.NoError(t, err)
	assert.Equal(t, "XOAUTH2", mech)
	assert.Equal(t, "user=bot@x.com\x01auth=Bearer ya29.token\x01\x01", string(resp))

	next, err := a.Next(nil, false)
	assert.NoError(t, err)
	assert.Nil(t, next)

	_, err = a.Next([]byte(`{"status":"400"}`), true)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400"))
}

func TestResendRetryDelay(t *testing.T) {
	wait, ok := resendRetryDelay(&resend.RateLimitError{RetryAfter: "7"}, 0)
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, wait)

	wait, ok = resendRetryDelay(&resend.RateLimitError{RetryAfter: "120"}, 0)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	wait, ok = resendRetryDelay(&resend.RateLimitError{}, 1)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	wait, ok = resendRetryDelay(errors.New("i/o timeout"), 0)
	assert.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)

	_, ok = resendRetryDelay(errors.New("invalid from address"), 0)
	assert.False(t, ok)
}
