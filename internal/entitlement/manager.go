package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/license"
	"gigmaps-engine/internal/logger"
	"gigmaps-engine/internal/metrics"
)

const defaultUsername = "User"

// KV is the subset of the client-state store the manager needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Verifier interface {
	Verify(ctx context.Context, key string) (license.Response, error)
}

// PaymentFunc simulates the checkout step of a mock purchase.
type PaymentFunc func(ctx context.Context) error

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithPayment(pay PaymentFunc) Option {
	return func(m *Manager) { m.pay = pay }
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// Manager serializes every read-then-write of the stored grant.
type Manager struct {
	mu       sync.Mutex
	kv       KV
	verifier Verifier
	log      logger.Logger
	metrics  *metrics.Metrics

	duration time.Duration
	now      func() time.Time
	pay      PaymentFunc
}

func NewManager(kv KV, verifier Verifier, cfg config.Pro, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		kv:       kv,
		verifier: verifier,
		log:      log,
		duration: time.Duration(cfg.AccessDurationDays) * 24 * time.Hour,
		now:      time.Now,
		pay:      delayPayment(time.Duration(cfg.MockPaymentDelayMS) * time.Millisecond),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func delayPayment(d time.Duration) PaymentFunc {
	return func(ctx context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}

// LoadGrant validates the stored grant. An expired or unreadable record is
// deleted and reported as NoGrant.
func (m *Manager) LoadGrant(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok, err := m.kv.Get(ctx, StorageKey)
	if err != nil {
		return noGrant(), fmt.Errorf("read grant: %w", err)
	}
	if !ok {
		return noGrant(), nil
	}

	var g Grant
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		m.log.Warn("stored grant unreadable, discarding", logger.Error(err))
		m.discard(ctx)
		return noGrant(), nil
	}
	exp, ok := g.effectiveExpiry(m.duration)
	if !ok {
		m.log.Warn("stored grant has no timestamps, discarding")
		m.discard(ctx)
		return noGrant(), nil
	}
	g.ExpiresAt = exp

	if m.now().Before(exp) {
		return activeStatus(g), nil
	}

	m.log.Info("grant expired",
		logger.String("source", string(g.Source)),
		logger.Time("expires_at", exp),
	)
	m.discard(ctx)
	if m.metrics != nil {
		m.metrics.GrantExpirations.Inc()
	}
	return noGrant(), nil
}

func (m *Manager) discard(ctx context.Context) {
	if err := m.kv.Delete(ctx, StorageKey); err != nil {
		m.log.Warn("delete grant failed", logger.Error(err))
	}
}

// ActivateMock runs the simulated payment and stores a fresh grant. Nothing
// is stored when the payment step fails.
func (m *Manager) ActivateMock(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.pay(ctx); err != nil {
		return noGrant(), fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	now := m.now().UTC()
	g := Grant{
		Source:      SourceMockPayment,
		PurchasedAt: &now,
		ExpiresAt:   now.Add(m.duration),
	}
	if err := m.persist(ctx, g); err != nil {
		return noGrant(), err
	}
	return activeStatus(g), nil
}

// ActivateWithLicense verifies key and, on success, stores a grant whose
// window starts at the purchase time the verifier reports.
func (m *Manager) ActivateWithLicense(ctx context.Context, key string) (Status, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return noGrant(), fmt.Errorf("%w: key is empty", ErrInvalidLicense)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.verifier.Verify(ctx, key)
	if err != nil {
		m.countVerification(metrics.ResultUnavailable)
		m.log.Warn("license verification failed", logger.Error(err))
		return noGrant(), fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	if !resp.Success || resp.Purchase.LicenseKey != key {
		m.countVerification(metrics.ResultInvalid)
		return noGrant(), ErrInvalidLicense
	}
	m.countVerification(metrics.ResultValid)

	now := m.now().UTC()
	purchasedAt := parsePurchaseTime(resp.Purchase.CreatedAt, now)
	g := Grant{
		Source:      SourceLicenseKey,
		PurchasedAt: &purchasedAt,
		ExpiresAt:   purchasedAt.Add(m.duration),
		Username:    usernameFromEmail(resp.Purchase.Email),
		LicenseKey:  key,
	}
	if !now.Before(g.ExpiresAt) {
		return noGrant(), fmt.Errorf("%w on %s", ErrLicenseExpired, g.ExpiresAt.Format(time.RFC3339))
	}
	if err := m.persist(ctx, g); err != nil {
		return noGrant(), err
	}
	return activeStatus(g), nil
}

func (m *Manager) persist(ctx context.Context, g Grant) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}
	if err := m.kv.Set(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	if m.metrics != nil {
		m.metrics.GrantActivations.WithLabelValues(string(g.Source)).Inc()
	}
	m.log.Info("grant activated",
		logger.String("source", string(g.Source)),
		logger.Time("expires_at", g.ExpiresAt),
	)
	return nil
}

func (m *Manager) countVerification(result string) {
	if m.metrics != nil {
		m.metrics.LicenseVerifications.WithLabelValues(result).Inc()
	}
}

// parsePurchaseTime falls back to now for a missing, unparseable, or
// future timestamp.
func parsePurchaseTime(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.After(now) {
		return now
	}
	return t.UTC()
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return defaultUsername
	}
	return local
}
