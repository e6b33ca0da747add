// SPDX-License-Identifier: MIT

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycast/relaycast/internal/cache"
)

// recordingSleep captures backoff delays instead of waiting them out.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func newTestFetcher(store cache.Store, delays *[]time.Duration) *Fetcher {
	f := New(store)
	f.sleep = recordingSleep(delays)
	return f
}

func TestFetchSuccessIsCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	store := cache.NewMemoryStore()
	var delays []time.Duration
	f := newTestFetcher(store, &delays)

	data, err := f.Fetch(context.Background(), srv.URL, "playlist")
	require.NoError(t, err)
	assert.Equal(t, []byte("#EXTM3U\n"), data)
	assert.Empty(t, delays, "no retries on first success")

	cached, ok := store.Get(context.Background(), "playlist")
	require.True(t, ok, "successful fetch must be cached")
	assert.Equal(t, data, cached)
}

func TestFetchRetriesWithDoublingBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var delays []time.Duration
	f := newTestFetcher(cache.NewMemoryStore(), &delays)

	_, err := f.Fetch(context.Background(), srv.URL, "guide")
	require.Error(t, err)

	assert.Equal(t, int32(3), calls.Load(), "at most 3 attempts")
	require.Len(t, delays, 2)
	assert.Equal(t, 5*time.Second, delays[0])
	assert.Equal(t, 10*time.Second, delays[1])
}

func TestFetchFallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "guide", []byte("<tv/>")))

	var delays []time.Duration
	f := newTestFetcher(store, &delays)

	data, err := f.Fetch(context.Background(), srv.URL, "guide")
	require.NoError(t, err, "cached blob must rescue an exhausted fetch")
	assert.Equal(t, []byte("<tv/>"), data)
}

func TestFetchFailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var delays []time.Duration
	f := newTestFetcher(cache.NewMemoryStore(), &delays)

	_, err := f.Fetch(context.Background(), srv.URL, "guide")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestFetchClientErrorConsumesAttempts(t *testing.T) {
	// 404 is not retryable by class but still consumes attempts.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var delays []time.Duration
	f := newTestFetcher(cache.NewMemoryStore(), &delays)

	_, err := f.Fetch(context.Background(), srv.URL, "playlist")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchBodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		big := make([]byte, MaxBodySize+10)
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	var delays []time.Duration
	f := newTestFetcher(cache.NewMemoryStore(), &delays)

	_, err := f.Fetch(context.Background(), srv.URL, "playlist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetchCancelledContextStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := New(cache.NewMemoryStore())
	f.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := f.Fetch(ctx, srv.URL, "playlist")
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		class     errClass
		retryable bool
	}{
		{"server 500", &StatusError{Code: 500}, classServer, true},
		{"server 503", &StatusError{Code: 503}, classServer, true},
		{"client 404", &StatusError{Code: 404}, classClient, false},
		{"deadline", context.DeadlineExceeded, classTimeout, true},
		{"other", errors.New("boom"), classOther, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, retryable := classify(tt.err)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.retryable, retryable)
		})
	}
}
