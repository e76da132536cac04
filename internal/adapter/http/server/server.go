package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *Handlers
	m      *middleware.Middleware

	addr            string
	shutdownTimeout time.Duration
	log             logger.Logger
}

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Health        *handler.Health
	Dispatch      *handler.Dispatch
	Requests      *handler.RideRequest
	Rides         *handler.Ride
	Drivers       *handler.Driver
	Wallets       *handler.Wallet
	Webhook       *handler.Webhook
	Notifications *handler.Notifications
}

func New(cfg config.HTTPConfig, routes *Handlers, m *middleware.Middleware, logger logger.Logger) (*API, error) {
	if routes == nil || m == nil {
		return nil, errors.New("handlers and middleware are required")
	}

	api := &API{
		mux:             http.NewServeMux(),
		routes:          routes,
		m:               m,
		addr:            cfg.Addr(),
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	setupRoutes(api.mux, api.routes, api.m)

	api.server = &http.Server{
		Addr:         api.addr,
		Handler:      api.withMiddleware(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.GetSlogLogger().Handler(), slog.LevelWarn),
	}

	return api, nil
}

// Handler is the fully wrapped router.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	timeout := a.shutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux.
// Metrics sits right above the mux so it sees the matched route pattern.
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Auth(a.m.Metrics(a.mux)))))
}
