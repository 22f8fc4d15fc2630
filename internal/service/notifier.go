package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prperemyshlev/identity-service/pkg/mailer"
	"go.uber.org/zap"
)

// Notifier delivers verification material out of band
type Notifier interface {
	SendEmailVerification(ctx context.Context, toEmail, token string) error
	SendPasswordReset(ctx context.Context, toEmail, token string) error
}

// LinkBuilder turns raw tokens into links into the web app
type LinkBuilder struct {
	BaseURL string
}

// VerifyEmail returns the link that confirms an address
func (b LinkBuilder) VerifyEmail(token string) string {
	return b.build("/verify-email", token)
}

// ResetPassword returns the link that opens the password reset form
func (b LinkBuilder) ResetPassword(token string) string {
	return b.build("/reset-password", token)
}

func (b LinkBuilder) build(path, token string) string {
	return strings.TrimRight(b.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// SMTPNotifier sends mail through an SMTP relay
type SMTPNotifier struct {
	settings  mailer.Settings
	fromEmail string
	fromName  string
	links     LinkBuilder
	send      func(ctx context.Context, settings mailer.Settings, msg mailer.Message) error
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates a notifier that delivers over SMTP
func NewSMTPNotifier(settings mailer.Settings, fromEmail, fromName string, links LinkBuilder) *SMTPNotifier {
	if settings.Timeout == 0 {
		settings.Timeout = 10 * time.Second
	}
	return &SMTPNotifier{
		settings:  settings,
		fromEmail: fromEmail,
		fromName:  fromName,
		links:     links,
		send:      mailer.Send,
	}
}

// SendEmailVerification mails the verification link
func (n *SMTPNotifier) SendEmailVerification(ctx context.Context, toEmail, token string) error {
	body := strings.Join([]string{
		"Welcome! Confirm your email address using this link:",
		n.links.VerifyEmail(token),
		"",
		"The link expires in 24 hours.",
	}, "\n")
	return n.deliver(ctx, toEmail, "Confirm your email address", body)
}

// SendPasswordReset mails the password reset link
func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	body := strings.Join([]string{
		"You requested a password reset.",
		"",
		"Reset your password using this link:",
		n.links.ResetPassword(token),
		"",
		"If you did not request this, you can ignore this email.",
	}, "\n")
	return n.deliver(ctx, toEmail, "Reset your password", body)
}

func (n *SMTPNotifier) deliver(ctx context.Context, toEmail, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, n.settings.Timeout)
	defer cancel()

	err := n.send(ctx, n.settings, mailer.Message{
		FromName:  n.fromName,
		FromEmail: n.fromEmail,
		ToEmail:   toEmail,
		Subject:   subject,
		TextBody:  body,
	})
	if err != nil {
		return fmt.Errorf("failed to send %q mail: %w", subject, err)
	}
	return nil
}

// LogNotifier writes links to the log instead of sending mail. Development only.
type LogNotifier struct {
	logger *zap.Logger
	links  LinkBuilder
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier for local development
func NewLogNotifier(logger *zap.Logger, links LinkBuilder) *LogNotifier {
	return &LogNotifier{logger: logger, links: links}
}

func (n *LogNotifier) SendEmailVerification(_ context.Context, toEmail, token string) error {
	n.logger.Info("email verification link", zap.String("to", toEmail), zap.String("link", n.links.VerifyEmail(token)))
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, toEmail, token string) error {
	n.logger.Info("password reset link", zap.String("to", toEmail), zap.String("link", n.links.ResetPassword(token)))
	return nil
}
