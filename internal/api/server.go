// SPDX-License-Identifier: MIT

// Package api exposes the operational HTTP surface: health, status,
// channel listing, a refresh trigger and Prometheus metrics. The
// user-facing command surface lives in the presentation layer outside
// this module.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaycast/relaycast/internal/catalog"
	"github.com/relaycast/relaycast/internal/core"
	"github.com/relaycast/relaycast/internal/log"
	"github.com/relaycast/relaycast/internal/refresh"
	"github.com/relaycast/relaycast/internal/session"
)

// RefreshStatus reports the last refresh cycle.
type RefreshStatus interface {
	Status() refresh.Status
}

// SessionStatus reports the streaming session state.
type SessionStatus interface {
	Status() session.Status
}

// Commands is the subset of the core facade exposed over the ops
// surface.
type Commands interface {
	Refresh(ctx context.Context, kind string) core.Result
	List(ctx context.Context) (core.Result, []catalog.ChannelRecord)
}

// Server is the ops HTTP server.
type Server struct {
	httpSrv  *http.Server
	refresh  RefreshStatus
	session  SessionStatus
	commands Commands
}

// New builds the server on the given listen address.
func New(addr string, refreshSrc RefreshStatus, sessionSrc SessionStatus, commands Commands) *Server {
	s := &Server{refresh: refreshSrc, session: sessionSrc, commands: commands}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router assembles the chi routes; exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Get("/channels", s.handleChannels)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Refresh is expensive; cap it much tighter than the rest.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

// Start runs the listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	logger := log.WithComponent("api")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("event", "api.listen").Str("addr", s.httpSrv.Addr).
			Msg("ops server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Refresh refresh.Status `json:"refresh"`
	Session session.Status `json:"session"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Refresh: s.refresh.Status(),
		Session: s.session.Status(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "all"
	}
	res := s.commands.Refresh(r.Context(), kind)
	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, res)
}

type channelsResponse struct {
	Result   core.Result             `json:"result"`
	Channels []catalog.ChannelRecord `json:"channels"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	res, channels := s.commands.List(r.Context())
	code := http.StatusOK
	if !res.Success {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, channelsResponse{Result: res, Channels: channels})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Warn().Err(err).Msg("write response failed")
	}
}
