package services

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"speed/config"
	"speed/models"
)

// Mailer sends best-effort notification mail over SMTP. Send methods return
// a bool instead of an error: a failed notification never fails the request
// that triggered it, and there is no retry.
type Mailer struct {
	Config *config.Config
	Logger *zap.Logger
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer from the SMTP settings in cfg. When no host is
// configured the mailer stays disabled and every send is a logged no-op.
func NewMailer(cfg *config.Config, logger *zap.Logger) *Mailer {
	m := &Mailer{Config: cfg, Logger: logger}
	if cfg.EmailHost != "" {
		dialer := gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword)
		dialer.SSL = cfg.EmailSecure
		m.dialer = dialer
	}
	return m
}

// Enabled reports whether an SMTP transport is configured.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// SendMail sends a single message and reports success.
func (m *Mailer) SendMail(to, subject, html, text, fromName string) bool {
	return m.send([]string{to}, subject, html, text, fromName)
}

// SendBulkMail sends one message to multiple recipients and reports success.
func (m *Mailer) SendBulkMail(to []string, subject, html, text, fromName string) bool {
	return m.send(to, subject, html, text, fromName)
}

func (m *Mailer) send(to []string, subject, html, text, fromName string) bool {
	if !m.Enabled() {
		m.Logger.Warn("Email transport not configured, skipping send", zap.Strings("to", to))
		return false
	}

	msg := gomail.NewMessage()
	if fromName != "" {
		msg.SetAddressHeader("From", m.Config.EmailUser, fromName)
	} else {
		msg.SetHeader("From", m.Config.EmailUser)
	}
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	if text != "" {
		msg.SetBody("text/plain", text)
		msg.AddAlternative("text/html", html)
	} else {
		msg.SetBody("text/html", html)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.Logger.Error("Email sending failed", zap.Strings("to", to), zap.Error(err))
		return false
	}
	m.Logger.Info("Email sent successfully", zap.Strings("to", to), zap.String("subject", subject))
	return true
}

// NotifyReviewDecision mails the submitter about the outcome of a moderator
// review. No-op when the article has no submitter email.
func (m *Mailer) NotifyReviewDecision(article *models.Article) bool {
	if article.SubmitterEmail == "" {
		return false
	}
	subject := fmt.Sprintf("[SPEED] Your article %q was %s", article.Title, article.Status)
	html := fmt.Sprintf(
		"<p>Your submission <b>%s</b> (id %s) has been reviewed.</p><p>Status: <b>%s</b></p>",
		article.Title, article.CustomID, article.Status,
	)
	if article.ReviewComment != "" {
		html += fmt.Sprintf("<p>Moderator comment: %s</p>", article.ReviewComment)
	}
	return m.SendMail(article.SubmitterEmail, subject, html, "", "SPEED")
}

// NotifyPendingQueue mails moderators a reminder about articles awaiting
// review. Used by the scheduled reminder job.
func (m *Mailer) NotifyPendingQueue(to []string, pending int) bool {
	if len(to) == 0 || pending == 0 {
		return false
	}
	subject := fmt.Sprintf("[SPEED] %d article(s) awaiting review", pending)
	html := fmt.Sprintf("<p>There are currently <b>%d</b> article(s) in the moderation queue.</p>", pending)
	return m.SendBulkMail(to, subject, html, "", "SPEED")
}
