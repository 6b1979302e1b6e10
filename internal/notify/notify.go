// Package notify sends the transactional emails of the auth flows.
package notify

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers messages to an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage greets a newly registered user.
func WelcomeMessage(to, firstName, lastName string) Message {
	name := firstName
	if lastName != "" {
		name += " " + lastName
	}
	return Message{
		To:       to,
		Subject:  "Welcome to Nestbook!",
		HTMLBody: fmt.Sprintf("<h1>Welcome %s!</h1><p>We hope you enjoy your stay in your next home.</p>", html.EscapeString(name)),
		TextBody: fmt.Sprintf("Welcome %s!\n\nWe hope you enjoy your stay in your next home.", name),
	}
}

// ResetPasswordURL is the reset form address with the email pre-filled.
func ResetPasswordURL(baseURL, email string) string {
	return baseURL + "/auth/reset-password?" + url.Values{"email": {email}}.Encode()
}

// ResetCodeMessage carries a password reset code and the link to the reset form.
func ResetCodeMessage(to, code, baseURL string, validity time.Duration) Message {
	link := ResetPasswordURL(baseURL, to)
	minutes := int(validity.Minutes())
	return Message{
		To:      to,
		Subject: "OTP to reset your password",
		HTMLBody: fmt.Sprintf(
			`<h1>OTP is: %s</h1><p>Enter this OTP on the <a href="%s">Reset Password</a> page. It expires in %d minutes.</p>`,
			code, html.EscapeString(link), minutes,
		),
		TextBody: fmt.Sprintf("OTP is: %s\n\nEnter this OTP on the reset password page: %s\nIt expires in %d minutes.", code, link, minutes),
	}
}

// LogSender writes messages to the log instead of delivering them. It backs local development when no
// provider token is configured.
type LogSender struct {
	logger logrus.FieldLogger
}

func NewLogSender(logger logrus.FieldLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.TextBody)
	return nil
}
