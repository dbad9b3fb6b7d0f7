package httpapi

import (
	"context"
	"sync/atomic"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/contact"
	"gigmaps-engine/internal/domain"
	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/events"
	"gigmaps-engine/internal/logger"
	"gigmaps-engine/internal/metrics"
	"gigmaps-engine/internal/session"
)

// Session is the part of session.Controller the handlers drive.
type Session interface {
	View(now time.Time) session.View
	State() session.State
	Platforms() []domain.Platform
	SwitchPlatform(ctx context.Context, slug string) error
	Reload(ctx context.Context) error
	Entitlement() entitlement.Status
	ActivateMock(ctx context.Context) (entitlement.Status, error)
	ActivateLicense(ctx context.Context, key string) (entitlement.Status, error)
	ApplyConfig(cfg config.Config)
}

type ConnectionTester interface {
	TestConnection(ctx context.Context, p domain.Platform) error
}

type ContactRelay interface {
	Submit(ctx context.Context, msg contact.Message) error
}

type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

type Deps struct {
	Session Session
	Hub     *events.Hub

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	DataSource ConnectionTester
	Contact    ContactRelay
	DB         Checkpointer // nil when the KV store is not sqlite

	// SetDataSourceKey stores the data-source key in the OS keychain.
	SetDataSourceKey func(account, key string) error

	Metrics *metrics.Metrics
	Logger  logger.Logger
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
