// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/bureau-foundation/doula/lib/clock"
)

const (
	// maxBlobSize bounds a PUT body. An encrypted SDP code is a few KB
	// even with many candidates; anything larger is abuse.
	maxBlobSize = 64 * 1024

	sweepInterval = time.Minute
)

var roomKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Server serves the mailbox REST protocol over HTTP.
type Server struct {
	store  *Store
	clock  clock.Clock
	logger *slog.Logger
	listen string
}

// ServerConfig holds the parameters for running a relay server.
type ServerConfig struct {
	// Listen is the address to bind, e.g. ":8844".
	Listen string

	// Store is the mailbox store. Required.
	Store *Store

	// Clock drives the expiry sweep. Nil means the real clock.
	Clock clock.Clock

	// Logger receives request and sweep messages. Nil means discard.
	Logger *slog.Logger
}

// NewServer builds a relay server. The caller keeps ownership of the
// store and closes it after Run returns.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("relay: Store is required")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	listen := cfg.Listen
	if listen == "" {
		listen = ":8844"
	}
	return &Server{store: cfg.Store, clock: clk, logger: logger, listen: listen}, nil
}

// Handler returns the HTTP handler, exposed separately so tests can
// mount it on httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /room/{key}/{slot}", s.handlePut)
	mux.HandleFunc("GET /room/{key}/{slot}", s.handleGet)
	return mux
}

// Run serves until ctx is cancelled, sweeping expired entries once a
// minute in the background.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepLoop(ctx)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- httpServer.ListenAndServe()
	}()
	s.logger.Info("relay listening", "addr", s.listen)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("relay: shutdown: %w", err)
		}
		return nil
	case err := <-serveDone:
		return fmt.Errorf("relay: serve: %w", err)
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("sweep failed", "error", err)
				}
				continue
			}
			if removed > 0 {
				s.logger.Info("swept expired entries", "removed", removed)
			}
		}
	}
}

// slotFromRequest validates the path segments. The key must be the
// 64-hex routing digest and the slot one of the two mailbox slots.
func slotFromRequest(r *http.Request) (roomKey, slot string, err error) {
	roomKey = r.PathValue("key")
	if !roomKeyPattern.MatchString(roomKey) {
		return "", "", errors.New("room key must be 64 lowercase hex digits")
	}
	slot = r.PathValue("slot")
	if slot != "offer" && slot != "answer" {
		return "", "", fmt.Errorf("unknown slot %q", slot)
	}
	return roomKey, slot, nil
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	roomKey, slot, err := slotFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBlobSize+1))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBlobSize {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := s.store.Put(r.Context(), roomKey, slot, string(body)); err != nil {
		s.logger.Error("put failed", "slot", slot, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.logger.Debug("blob stored", "slot", slot, "bytes", len(body))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	roomKey, slot, err := slotFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, ok, err := s.store.Get(r.Context(), roomKey, slot)
	if err != nil {
		s.logger.Error("get failed", "slot", slot, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no such entry", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, body)
}
