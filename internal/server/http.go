package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/constants"
)

// NewHTTPServer wraps handler in an http.Server configured from cfg. With server.h2c the
// handler also accepts HTTP/2 over cleartext, which some internal load balancers use.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	if cfg.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	readHeader := time.Duration(cfg.ReadHeaderTimeoutSec) * time.Second
	if readHeader <= 0 {
		readHeader = constants.ServerReadHeaderTimeout
	}
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: readHeader,
	}
}

// Run serves until ctx is canceled, then drains in-flight requests for up to the
// configured shutdown timeout.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = constants.ServerShutdownTimeout
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http_server_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("http server stopped")
	return nil
}
