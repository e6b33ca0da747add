// SPDX-License-Identifier: MIT

// Package fetch retrieves remote source documents with retries, a size
// cap and write-through blob caching.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/relaycast/relaycast/internal/cache"
	"github.com/relaycast/relaycast/internal/log"
)

const (
	// MaxBodySize caps response bodies to bound memory.
	MaxBodySize = 50 * 1024 * 1024

	defaultAttempts       = 3
	defaultBackoffBase    = 5 * time.Second
	defaultAttemptTimeout = 30 * time.Second
)

// Fetcher retrieves URLs with bounded retries. A successful fetch is
// cached before being returned; on exhaustion the last cached blob for
// the same key is served when present.
type Fetcher struct {
	client  *http.Client
	store   cache.Store
	limiter *rate.Limiter

	attempts       int
	backoffBase    time.Duration
	attemptTimeout time.Duration

	// sleep is swappable so tests can observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRateLimit bounds outgoing requests across all attempts.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(r, burst) }
}

// WithBackoffBase overrides the initial retry delay.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) { f.backoffBase = d }
}

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.attemptTimeout = d }
}

// New creates a Fetcher writing through to store.
func New(store cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         &http.Client{},
		store:          store,
		attempts:       defaultAttempts,
		backoffBase:    defaultBackoffBase,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch retrieves url, retrying up to three times with a doubling delay
// (5s, 10s). Each attempt is bounded by a 30s timeout. On exhaustion the
// last cached blob for cacheKey is returned when one exists.
func (f *Fetcher) Fetch(ctx context.Context, url, cacheKey string) ([]byte, error) {
	logger := log.WithComponentFromContext(ctx, "fetch")
	started := time.Now()

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			// 5s before the second attempt, 10s before the third.
			delay := f.backoffBase << (attempt - 2)
			logger.Debug().Str("url", url).Int("attempt", attempt).
				Dur("delay", delay).Msg("backing off before retry")
			if err := f.sleep(ctx, delay); err != nil {
				return f.fallback(ctx, cacheKey, err)
			}
		}

		data, err := f.attempt(ctx, url)
		if err == nil {
			attemptTotal.WithLabelValues(cacheKey, "success").Inc()
			fetchDuration.WithLabelValues(cacheKey).Observe(time.Since(started).Seconds())
			if cerr := f.store.Put(ctx, cacheKey, data); cerr != nil {
				logger.Warn().Err(cerr).Str("key", cacheKey).
					Str("event", "fetch.cache_write_failed").Msg("could not cache fetched blob")
			}
			logger.Info().Str("event", "fetch.success").Str("url", url).
				Str("key", cacheKey).Int("bytes", len(data)).Int("attempt", attempt).
				Msg("fetched source")
			return data, nil
		}

		class, retryable := classify(err)
		attemptTotal.WithLabelValues(cacheKey, string(class)).Inc()
		logger.Warn().Err(err).Str("event", "fetch.attempt_failed").
			Str("url", url).Int("attempt", attempt).
			Str("class", string(class)).Bool("retryable", retryable).
			Msg("fetch attempt failed")
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return f.fallback(ctx, cacheKey, lastErr)
}

// attempt performs a single bounded request.
func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: res.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBodySize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// fallback serves the cached blob for key when the network is exhausted.
func (f *Fetcher) fallback(ctx context.Context, cacheKey string, cause error) ([]byte, error) {
	logger := log.WithComponentFromContext(ctx, "fetch")
	if data, ok := f.store.Get(ctx, cacheKey); ok {
		fallbackTotal.WithLabelValues(cacheKey).Inc()
		logger.Warn().Str("event", "fetch.cache_fallback").Str("key", cacheKey).
			Int("bytes", len(data)).Msg("serving cached blob after fetch failure")
		return data, nil
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", cacheKey, f.attempts, cause)
}
