package service

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gopkg.in/gomail.v2"

	"github.com/yourusername/todo-api/internal/config"
)

// SMTPMailer sends emails over SMTP, authenticating with a password or XOAUTH2.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	ttl      time.Duration
	log      *zap.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, from, fromName string, otpTTL time.Duration, log *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("smtp host and port are required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.UsesOAuth2() {
		oc := &oauth2.Config{
			ClientID:     cfg.OAuth2ClientID,
			ClientSecret: cfg.OAuth2ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.OAuth2TokenURL},
		}
		ts := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.OAuth2RefreshToken})
		d.Auth = &xoauth2Auth{username: cfg.Username, tokens: ts}
	}

	return &SMTPMailer{dialer: d, from: from, fromName: fromName, ttl: otpTTL, log: log}, nil
}

func (m *SMTPMailer) SendOTP(ctx context.Context, toEmail, code, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := renderOTPEmail(code, displayName, m.ttl)
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	gm.SetHeader("To", toEmail)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	gm.AddAlternative("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	m.log.Debug("otp email sent via smtp", zap.String("to", toEmail))
	return nil
}

// xoauth2Auth implements the SASL XOAUTH2 mechanism used by Gmail and Outlook.
type xoauth2Auth struct {
	username string
	tokens   oauth2.TokenSource
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errors.New("xoauth2 requires a TLS connection")
	}
	tok, err := a.tokens.Token()
	if err != nil {
		return "", nil, fmt.Errorf("xoauth2 token: %w", err)
	}
	return "XOAUTH2", xoauth2Response(a.username, tok.AccessToken), nil
}

func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		// сервер прислал JSON с ошибкой
		return nil, fmt.Errorf("xoauth2 rejected: %s", fromServer)
	}
	return nil, nil
}

func xoauth2Response(username, accessToken string) []byte {
	return []byte("user=" + username + "\x01auth=Bearer " + accessToken + "\x01\x01")
}
