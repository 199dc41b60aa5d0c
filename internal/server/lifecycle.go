package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mrz1836/signerd/pkg/signererr"
)

// Start binds the configured listen address, serving handler (built by
// internal/httpapi from this *Server) until ctx is cancelled. It blocks,
// matching spec.md §4.6's "start() ... blocks serving until cancelled".
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	addr := s.Config().ListenAddr

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.DebugAttrs("starting signer server", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return signererr.Wrap(err, "shutting down signer server")
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return signererr.Wrap(signererr.ErrAddrParse, "listening on %s: %v", addr, err)
		}
		return nil
	}
}
