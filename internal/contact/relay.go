// Package contact forwards contact-form submissions to the form relay and
// the notification relay.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/logger"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidMessage = errors.New("invalid contact message")
	ErrRelayFailed    = errors.New("contact relay failed")
)

const defaultTimeout = 15 * time.Second

type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (m Message) normalized() Message {
	return Message{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Subject: strings.TrimSpace(m.Subject),
		Message: strings.TrimSpace(m.Message),
	}
}

func (m Message) validate() error {
	var missing []string
	if m.Name == "" {
		missing = append(missing, "name")
	}
	if m.Email == "" {
		missing = append(missing, "email")
	}
	if m.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidMessage, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("%w: bad email", ErrInvalidMessage)
	}
	return nil
}

// notification is the plain-text body sent to the notify relay.
func (m Message) notification() string {
	subject := m.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("New contact form message\nFrom: %s <%s>\nSubject: %s\n\n%s\n",
		m.Name, m.Email, subject, m.Message)
}

type Relay struct {
	hc        *http.Client
	formURL   string
	notifyURL string
	log       logger.Logger
}

func NewRelay(cfg config.Contact, hc *http.Client, log logger.Logger) *Relay {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Relay{
		hc:        hc,
		formURL:   strings.TrimSpace(cfg.FormURL),
		notifyURL: strings.TrimSpace(cfg.NotifyURL),
		log:       log,
	}
}

// Submit posts both legs concurrently. Any failure is reported once, wrapped
// in ErrRelayFailed. An empty relay URL skips that leg.
func (r *Relay) Submit(ctx context.Context, msg Message) error {
	msg = msg.normalized()
	if err := msg.validate(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.formURL != "" {
		g.Go(func() error {
			body, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			return r.post(gctx, r.formURL, "application/json", body)
		})
	}
	if r.notifyURL != "" {
		g.Go(func() error {
			return r.post(gctx, r.notifyURL, "text/plain; charset=utf-8", []byte(msg.notification()))
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Warn("contact relay failed", logger.Error(err))
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}
	return nil
}

func (r *Relay) post(ctx context.Context, u, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", req.URL.Host, resp.StatusCode)
	}
	return nil
}
