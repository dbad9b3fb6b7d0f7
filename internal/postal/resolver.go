package postal

import (
	"context"

	"gigmaps-engine/internal/domain"
	"gigmaps-engine/internal/logger"
	"gigmaps-engine/internal/metrics"

	"golang.org/x/sync/errgroup"
)

type Lookuper interface {
	Lookup(ctx context.Context, city, state string) (code string, found bool, err error)
}

// Result is reported once per key as soon as its lookup settles.
type Result struct {
	Key    Key    `json:"-"`
	City   string `json:"city"`
	State  string `json:"state"`
	Code   string `json:"postalCode,omitempty"`
	Status Status `json:"status"`
}

type Resolver struct {
	client      Lookuper
	cache       *Cache
	concurrency int
	log         logger.Logger
	metrics     *metrics.Metrics
}

func NewResolver(client Lookuper, cache *Cache, concurrency int, log logger.Logger, m *metrics.Metrics) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{client: client, cache: cache, concurrency: concurrency, log: log, metrics: m}
}

func (r *Resolver) Cache() *Cache {
	return r.cache
}

// LookupBatch resolves every uncached city/state pair in postings. Items fail
// independently; a failure is cached as not found and the batch moves on.
// Only cancellation of ctx stops the batch early.
func (r *Resolver) LookupBatch(ctx context.Context, postings []domain.Posting, onResolved func(Result)) error {
	var keys []Key
	for _, p := range postings {
		k := KeyFor(p.City, p.State)
		if !k.Valid() {
			continue
		}
		if r.cache.claim(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if r.concurrency == 1 {
		for i, k := range keys {
			if err := ctx.Err(); err != nil {
				r.releaseAll(keys[i:])
				return err
			}
			r.resolve(ctx, k, onResolved)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, k := range keys {
		g.Go(func() error {
			if ctx.Err() != nil {
				r.cache.release(k)
				return nil
			}
			r.resolve(ctx, k, onResolved)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (r *Resolver) resolve(ctx context.Context, k Key, onResolved func(Result)) {
	code, found, err := r.client.Lookup(ctx, k.City, k.State)
	if err != nil && ctx.Err() != nil {
		// Abandoned, not failed: leave it for the next batch.
		r.cache.release(k)
		return
	}
	if err != nil {
		r.log.Debug("postal lookup failed",
			logger.String("city", k.City),
			logger.String("state", k.State),
			logger.Error(err),
		)
		found = false
	}
	r.cache.put(k, code, found)

	res := Result{Key: k, City: k.City, State: k.State, Status: StatusNotFound}
	result := metrics.ResultNotFound
	if found {
		res.Code = code
		res.Status = StatusFound
		result = metrics.ResultFound
	}
	if r.metrics != nil {
		r.metrics.PostalLookups.WithLabelValues(result).Inc()
	}
	if onResolved != nil {
		onResolved(res)
	}
}

func (r *Resolver) releaseAll(keys []Key) {
	for _, k := range keys {
		r.cache.release(k)
	}
}
