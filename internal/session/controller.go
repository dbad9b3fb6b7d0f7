package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/domain"
	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/events"
	"gigmaps-engine/internal/logger"
	"gigmaps-engine/internal/postal"
	"gigmaps-engine/internal/selector"
)

var ErrUnknownPlatform = errors.New("unknown platform")

type Fetcher interface {
	FetchPostings(ctx context.Context, p domain.Platform) ([]domain.Posting, error)
}

type Entitlements interface {
	LoadGrant(ctx context.Context) (entitlement.Status, error)
	ActivateMock(ctx context.Context) (entitlement.Status, error)
	ActivateWithLicense(ctx context.Context, key string) (entitlement.Status, error)
}

type PostalResolver interface {
	LookupBatch(ctx context.Context, postings []domain.Posting, onResolved func(postal.Result)) error
	Cache() *postal.Cache
}

// Controller applies every state change through Reduce under one mutex.
// Network calls run outside the lock, tagged with the generation they were
// issued for. Grant reads and activations are serialized by entMu so a load
// that started before an activation cannot overwrite its result.
type Controller struct {
	entMu sync.Mutex

	mu        sync.Mutex
	state     State
	platforms []domain.Platform
	dist      config.Distribution

	fetcher Fetcher
	ent     Entitlements
	postal  PostalResolver
	pub     events.Publisher
	log     logger.Logger
	now     func() time.Time

	bg           context.Context
	stop         context.CancelFunc
	postalCancel context.CancelFunc
	postalDone   chan struct{}
	wg           sync.WaitGroup
}

type Deps struct {
	Fetcher      Fetcher
	Entitlements Entitlements
	Postal       PostalResolver
	Publisher    events.Publisher
	Logger       logger.Logger
	Now          func() time.Time
}

func NewController(cfg config.Config, d Deps) *Controller {
	bg, stop := context.WithCancel(context.Background())
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		state:     State{Platform: cfg.App.DefaultPlatform},
		platforms: append([]domain.Platform(nil), cfg.Platforms...),
		dist:      cfg.Distribution,
		fetcher:   d.Fetcher,
		ent:       d.Entitlements,
		postal:    d.Postal,
		pub:       d.Publisher,
		log:       d.Logger,
		now:       now,
		bg:        bg,
		stop:      stop,
	}
}

// Close stops background postal lookups and waits for them.
func (c *Controller) Close() {
	c.stop()
	c.wg.Wait()
}

func (c *Controller) dispatch(e Event) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, e)
	return c.state
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Entitlement() entitlement.Status {
	return c.State().Entitlement
}

func (c *Controller) Platforms() []domain.Platform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Platform(nil), c.platforms...)
}

// ApplyConfig swaps in a saved configuration. It does not refetch.
func (c *Controller) ApplyConfig(cfg config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.platforms = append([]domain.Platform(nil), cfg.Platforms...)
	c.dist = cfg.Distribution
}

// platform must be called with mu held.
func (c *Controller) platform(slug string) (domain.Platform, bool) {
	for _, p := range c.platforms {
		if p.Slug == slug {
			return p, true
		}
	}
	return domain.Platform{}, false
}

// SwitchPlatform reloads the grant, fetches and selects postings for slug,
// then starts the postal batch in the background. A fetch that finishes
// after a newer switch is discarded. Fetch failures land in State.LastError.
func (c *Controller) SwitchPlatform(ctx context.Context, slug string) error {
	c.mu.Lock()
	p, ok := c.platform(slug)
	dist := c.dist
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, slug)
	}

	gen := c.dispatch(PlatformChanged{Platform: p.Slug}).Generation
	c.refreshEntitlement(ctx)

	raw, err := c.fetcher.FetchPostings(ctx, p)
	if err != nil {
		c.log.Warn("fetch postings failed", logger.String("platform", p.Slug), logger.Error(err))
	}
	now := c.now()
	done := FetchCompleted{
		Platform:   p.Slug,
		Generation: gen,
		Postings:   selector.Select(raw, now, dist),
		Err:        err,
		At:         now,
	}

	c.mu.Lock()
	applied := Current(c.state, done)
	c.state = Reduce(c.state, done)
	if applied && err == nil {
		c.startPostalLocked(done.Postings)
	}
	c.mu.Unlock()

	if !applied {
		c.log.Debug("discarding stale fetch",
			logger.String("platform", p.Slug),
			logger.Int64("generation", int64(gen)),
		)
		return nil
	}
	c.emit(events.TypeJobsUpdated, map[string]any{
		"platform":   p.Slug,
		"generation": gen,
		"count":      len(done.Postings),
		"error":      done.errText(),
	})
	return nil
}

func (f FetchCompleted) errText() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Refresh re-runs the current platform, keeping the postal cache.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.SwitchPlatform(ctx, c.State().Platform)
}

// Reload re-runs the current platform with an empty postal cache. The running
// batch is stopped first so none of its lookups land in the new cache.
func (c *Controller) Reload(ctx context.Context) error {
	c.stopPostal()
	c.postal.Cache().Reset()
	return c.Refresh(ctx)
}

// stopPostal cancels the running batch and waits for it to return.
func (c *Controller) stopPostal() {
	c.mu.Lock()
	cancel, done := c.postalCancel, c.postalDone
	c.postalCancel, c.postalDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// refreshEntitlement re-validates the stored grant. A storage error keeps the
// previous snapshot.
func (c *Controller) refreshEntitlement(ctx context.Context) {
	c.entMu.Lock()
	defer c.entMu.Unlock()

	st, err := c.ent.LoadGrant(ctx)
	if err != nil {
		c.log.Warn("load grant failed", logger.Error(err))
		return
	}

	c.mu.Lock()
	wasActive := c.state.Entitlement.IsActive()
	c.state = Reduce(c.state, EntitlementChanged{Status: st})
	c.mu.Unlock()

	if wasActive && !st.IsActive() {
		c.emit(events.TypeGrantExpired, nil)
	}
}

func (c *Controller) ActivateMock(ctx context.Context) (entitlement.Status, error) {
	c.entMu.Lock()
	defer c.entMu.Unlock()

	st, err := c.ent.ActivateMock(ctx)
	if err != nil {
		return st, err
	}
	c.activated(st)
	return st, nil
}

func (c *Controller) ActivateLicense(ctx context.Context, key string) (entitlement.Status, error) {
	c.entMu.Lock()
	defer c.entMu.Unlock()

	st, err := c.ent.ActivateWithLicense(ctx, key)
	if err != nil {
		return st, err
	}
	c.activated(st)
	return st, nil
}

// activated must be called with entMu held.
func (c *Controller) activated(st entitlement.Status) {
	c.dispatch(EntitlementChanged{Status: st})
	c.emit(events.TypeGrantActivated, st)
}

// startPostalLocked cancels any batch still running and resolves postings in
// the background. Must be called with mu held.
func (c *Controller) startPostalLocked(postings selector.Result) {
	if c.postalCancel != nil {
		c.postalCancel()
	}
	ctx, cancel := context.WithCancel(c.bg)
	done := make(chan struct{})
	c.postalCancel, c.postalDone = cancel, done

	batch := append([]domain.Posting(nil), postings...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		err := c.postal.LookupBatch(ctx, batch, func(res postal.Result) {
			c.emit(events.TypePostalResolved, res)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("postal batch stopped", logger.Error(err))
		}
	}()
}

func (c *Controller) emit(typ string, data any) {
	if c.pub == nil {
		return
	}
	c.pub.Publish(events.MakeEvent("", typ, 1, data))
}
