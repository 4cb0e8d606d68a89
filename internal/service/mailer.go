package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/config"
)

// Mailer sends transactional emails.
type Mailer interface {
	SendOTP(ctx context.Context, toEmail, code, displayName string) error
}

// NewMailer picks the implementation named by cfg.Provider.
func NewMailer(cfg config.MailConfig, otpTTL time.Duration, log *zap.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "resend":
		return NewResendMailer(cfg.ResendAPIKey, formatFrom(cfg.FromName, cfg.From), otpTTL, log)
	case "smtp":
		return NewSMTPMailer(cfg.SMTP, cfg.From, cfg.FromName, otpTTL, log)
	case "", "noop":
		return NewNoopMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func formatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}

type otpEmail struct {
	Subject string
	Text    string
	HTML    string
}

func renderOTPEmail(code, displayName string, ttl time.Duration) otpEmail {
	minutes := int(ttl.Minutes())
	return otpEmail{
		Subject: "Your activation code",
		Text: fmt.Sprintf("Hello %s,\n\nYour activation code is %s. It expires in %d minutes.\n",
			displayName, code, minutes),
		HTML: fmt.Sprintf("<p>Hello %s,</p><p>Your activation code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
			html.EscapeString(displayName), code, minutes),
	}
}

// NoopMailer only logs. Used in development.
type NoopMailer struct {
	log *zap.Logger
}

func NewNoopMailer(log *zap.Logger) *NoopMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoopMailer{log: log}
}

func (m *NoopMailer) SendOTP(ctx context.Context, toEmail, code, displayName string) error {
	m.log.Info("noop mailer: otp not sent", zap.String("to", toEmail))
	return nil
}

// ResendMailer sends emails via Resend REST API.
type ResendMailer struct {
	from   string
	ttl    time.Duration
	client *resend.Client
	log    *zap.Logger
}

func NewResendMailer(apiKey, from string, otpTTL time.Duration, log *zap.Logger) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ResendMailer{
		from:   from,
		ttl:    otpTTL,
		client: resend.NewClient(apiKey),
		log:    log,
	}, nil
}

func (m *ResendMailer) SendOTP(ctx context.Context, toEmail, code, displayName string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	msg := renderOTPEmail(code, displayName, m.ttl)
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := m.client.Emails.SendWithContext(ctx, params)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			m.log.Warn("resend send failed, retrying",
				zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
