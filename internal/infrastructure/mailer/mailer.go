// Package mailer delivers account notifications through an HTTP mail API.
// Dispatch is fire-and-forget: messages are queued and a worker goroutine
// sends them, logging failures instead of surfacing them to callers.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Jatyon/bid-battle/internal/i18n"
	usecase "github.com/Jatyon/bid-battle/internal/usecase/auth"
)

const queueSize = 64

// Config carries the delivery settings for the mail API.
type Config struct {
	APIKey      string
	From        string
	BaseURL     string
	FrontendURL string
}

// Mailer queues and sends transactional mail.
type Mailer struct {
	cfg        Config
	client     *http.Client
	translator *i18n.Translator
	logger     *slog.Logger
	queue      chan message
}

type message struct {
	to      string
	subject string
	html    string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// New constructs a mailer. Run must be started for queued mail to be sent.
func New(cfg Config, translator *i18n.Translator, logger *slog.Logger) *Mailer {
	return &Mailer{
		cfg:        cfg,
		client:     &http.Client{Timeout: 5 * time.Second},
		translator: translator,
		logger:     logger,
		queue:      make(chan message, queueSize),
	}
}

var _ usecase.Mailer = (*Mailer)(nil)

// Run drains the queue until ctx is cancelled.
func (m *Mailer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			if err := m.send(ctx, msg); err != nil {
				m.logger.ErrorContext(ctx, "mail delivery failed", "to", msg.to, "subject", msg.subject, "error", err)
			}
		}
	}
}

// SendPasswordReset queues a reset-link notice carrying the raw opaque token
// embedded in a frontend URL.
func (m *Mailer) SendPasswordReset(email, locale, displayName string, expiresIn time.Duration, token string) {
	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", m.cfg.FrontendURL, url.QueryEscape(token))
	minutes := int(expiresIn.Minutes())

	html := fmt.Sprintf("<p>%s</p><p>%s</p><p><a href=%q>%s</a></p><p>%s</p>",
		m.translator.Translate("mail.forgot_password.greeting", locale, displayName),
		m.translator.Translate("mail.forgot_password.body", locale, minutes),
		resetURL,
		m.translator.Translate("mail.forgot_password.action", locale),
		m.translator.Translate("mail.footer.rights", locale),
	)

	m.enqueue(message{
		to:      email,
		subject: m.translator.Translate("mail.subjects.forgot_password", locale),
		html:    html,
	})
}

// SendPasswordChanged queues a confirmation notice after a password change.
func (m *Mailer) SendPasswordChanged(email, locale, displayName string) {
	html := fmt.Sprintf("<p>%s</p><p>%s</p><p>%s</p>",
		m.translator.Translate("mail.password_changed.greeting", locale, displayName),
		m.translator.Translate("mail.password_changed.body", locale),
		m.translator.Translate("mail.footer.rights", locale),
	)

	m.enqueue(message{
		to:      email,
		subject: m.translator.Translate("mail.subjects.password_changed", locale),
		html:    html,
	})
}

func (m *Mailer) enqueue(msg message) {
	select {
	case m.queue <- msg:
	default:
		m.logger.Warn("mail queue full, dropping message", "to", msg.to, "subject", msg.subject)
	}
}

func (m *Mailer) send(ctx context.Context, msg message) error {
	body := sendRequest{
		From:    m.cfg.From,
		To:      []string{msg.to},
		Subject: msg.subject,
		HTML:    msg.html,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
