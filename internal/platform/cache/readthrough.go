package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/metrics"
)

// Delays between background attempts to delete keys whose synchronous
// invalidation failed.
var defaultRetryDelays = []time.Duration{200 * time.Millisecond, time.Second, 5 * time.Second, 30 * time.Second}

// ReadThrough caches JSON snapshots of T in a Store. Store failures are logged
// and degrade to the loader; they never fail the lookup.
//
// Every key carries a generation that Invalidate bumps. A load only writes
// its result back when the generation it started under is still current, so
// a load racing a write cannot re-cache the pre-write snapshot.
type ReadThrough[T any] struct {
	name  string
	store Store
	ttl   time.Duration
	log   *zap.SugaredLogger
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64

	retryDelays []time.Duration
}

func NewReadThrough[T any](name string, store Store, ttl time.Duration, log *zap.SugaredLogger) *ReadThrough[T] {
	return &ReadThrough[T]{
		name:        name,
		store:       store,
		ttl:         ttl,
		log:         log,
		gens:        map[string]uint64{},
		retryDelays: defaultRetryDelays,
	}
}

func (r *ReadThrough[T]) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[key]
}

func (r *ReadThrough[T]) bump(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		r.gens[k]++
	}
}

// Get returns the cached value for key or calls load and caches its result.
// Loader errors are returned as is and never cached. The loader runs detached
// from the caller's cancellation since other callers may be waiting on it.
func (r *ReadThrough[T]) Get(ctx context.Context, key string, load func(ctx context.Context) (*T, error)) (*T, error) {
	lg := logctx.FromCtx(ctx, r.log)

	data, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		uerr := json.Unmarshal(data, &v)
		if uerr == nil {
			metrics.CacheRequestsTotal.WithLabelValues(r.name, "hit").Inc()
			return &v, nil
		}
		lg.Warnw("cache_decode_failed", "cache", r.name, "key", key, "err", uerr)
		_ = r.store.Delete(ctx, key)
	case errors.Is(err, ErrMiss):
		metrics.CacheRequestsTotal.WithLabelValues(r.name, "miss").Inc()
	default:
		metrics.CacheRequestsTotal.WithLabelValues(r.name, "error").Inc()
		lg.Warnw("cache_get_failed", "cache", r.name, "key", key, "err", err)
	}

	res, err, _ := r.group.Do(key, func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		gen := r.generation(key)
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		b, merr := json.Marshal(v)
		if merr != nil {
			return v, nil
		}
		if r.generation(key) != gen {
			lg.Debugw("cache_fill_skipped_stale", "cache", r.name, "key", key)
			return v, nil
		}
		if serr := r.store.Set(lctx, key, b, r.ttl); serr != nil {
			lg.Warnw("cache_set_failed", "cache", r.name, "key", key, "err", serr)
		}
		// an Invalidate that landed between the check and the Set removes
		// what was just written
		if r.generation(key) != gen {
			_ = r.store.Delete(lctx, key)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	// callers of a shared flight get their own copy
	cp := *(res.(*T))
	return &cp, nil
}

// Invalidate removes keys synchronously. When the store refuses the delete
// the error is returned and the delete keeps being retried in the background.
func (r *ReadThrough[T]) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	r.bump(keys...)
	for _, k := range keys {
		r.group.Forget(k)
	}
	err := r.store.Delete(ctx, keys...)
	if err == nil {
		return nil
	}
	logctx.FromCtx(ctx, r.log).Errorw("cache_invalidate_failed", "cache", r.name, "keys", keys, "err", err)
	go r.retryDelete(context.WithoutCancel(ctx), keys)
	return err
}

func (r *ReadThrough[T]) retryDelete(ctx context.Context, keys []string) {
	lg := logctx.FromCtx(ctx, r.log)
	for i, d := range r.retryDelays {
		time.Sleep(d)
		err := r.store.Delete(ctx, keys...)
		if err == nil {
			lg.Infow("cache_invalidate_recovered", "cache", r.name, "keys", keys, "attempt", i+1)
			return
		}
		lg.Warnw("cache_invalidate_retry_failed", "cache", r.name, "keys", keys, "attempt", i+1, "err", err)
	}
	lg.Errorw("cache_invalidate_abandoned", "cache", r.name, "keys", keys)
}
