package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/gateway"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/kafka"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/locationIQ"
	rabbitadapter "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/weather"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	"github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/internal/service/fare"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/internal/service/request"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"

	goredis "github.com/redis/go-redis/v9"
)

var ErrServiceNotInitialized = errors.New("service not initialized")

type (
	// geoClient resolves addresses and routes. Nil when no LocationIQ key is configured.
	geoClient interface {
		request.Geocoder
		request.Router
		driver.GeoCoder
	}

	paymentGateway interface {
		wallet.Gateway
		handler.EventParser
	}
)

type App struct {
	httpServer *server.API
	requests   *request.Service
	drivers    *driver.Service
	hub        *ws.ConnectionHub

	postgresDB *postgres.PostgreDB
	redis      *goredis.Client
	rabbit     *rabbit.RabbitMQ
	broker     *rabbitadapter.NotificationBroker
	locations  *kafka.LocationConsumer

	checks map[string]handler.Check

	// background consumers
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg config.Config
	log logger.Logger
}

// NewApplication connects to every enabled dependency and wires the services.
// A failed step closes whatever was already opened.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	app := &App{
		checks: make(map[string]handler.Check),
		cfg:    cfg,
		log:    log,
	}

	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("failed to init service: %w", err)
	}

	return app, nil
}

func (a *App) init(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "app_init")

	store, err := a.initStorage(ctx)
	if err != nil {
		return err
	}

	driverPositions, riderPositions, err := a.initGeoStores(ctx)
	if err != nil {
		return err
	}
	driversIdx := geo.NewIndex(driverPositions, store.drivers)
	ridersIdx := geo.NewIndex(riderPositions, nil)

	a.hub = ws.NewConnHub(a.log)
	publisher, err := a.initPublisher(ctx)
	if err != nil {
		return err
	}
	notifier := notify.NewAsync(publisher, a.cfg.RabbitMQ.PublishTimeout, a.log)

	// External APIs
	var geoAPI geoClient
	if a.cfg.ExternalAPIConfig.LocationIQapiKey != "" {
		geoAPI = locationIQ.New(
			a.cfg.ExternalAPIConfig.LocationIQapiKey,
			a.cfg.ExternalAPIConfig.LocationIQDomain,
			a.cfg.ExternalAPIConfig.LocationIQTimeout,
			a.log,
		)
	} else {
		a.log.Warn(ctx, "LocationIQ key is not set, addresses without coordinates are rejected")
	}

	var weatherAPI fare.WeatherOracle
	if a.cfg.ExternalAPIConfig.WeatherAPIKey != "" {
		weatherAPI = weather.New(
			a.cfg.ExternalAPIConfig.WeatherAPIKey,
			a.cfg.ExternalAPIConfig.WeatherDomain,
			a.cfg.ExternalAPIConfig.WeatherTimeout,
			a.log,
		)
	}

	var payments paymentGateway = gateway.Offline{}
	if a.cfg.Stripe.SecretKey != "" {
		payments = gateway.NewStripe(a.cfg.Stripe.SecretKey, a.cfg.Stripe.WebhookSecret)
	} else {
		a.log.Warn(ctx, "stripe key is not set, top-ups and refunds are unavailable")
	}

	fareCfg, err := fareSettings(a.cfg.Fare, a.cfg.ExternalAPIConfig)
	if err != nil {
		return err
	}
	walletCfg, err := walletSettings(a.cfg.Wallet, a.cfg.Stripe.Currency)
	if err != nil {
		return err
	}

	// Services
	pricer := fare.New(fareCfg, weatherAPI, geo.NewDemand(driversIdx, ridersIdx, store.drivers), a.log)
	matcher := dispatch.New(store.drivers, store.requests, store.rides, driversIdx, pricer, store.trm, a.log)
	ledger := wallet.NewLedger(store.wallets, store.entries, store.payments, store.rides, payments, notifier, store.trm, walletCfg, a.log)
	rides := ride.NewRideService(store.rides, store.drivers, store.ratings, ledger, notifier, store.trm, a.log)

	deps := request.Deps{
		Requests: store.requests,
		Drivers:  store.drivers,
		Rides:    matcher,
		Pricer:   pricer,
		Riders:   ridersIdx,
		Notifier: notifier,
		Trm:      store.trm,
	}
	var addresses driver.GeoCoder
	if geoAPI != nil {
		deps.Geocoder, deps.Router, addresses = geoAPI, geoAPI, geoAPI
	}
	a.requests = request.New(deps, a.cfg.Dispatch.AcceptWindow, a.log)
	a.drivers = driver.New(store.drivers, store.rides, driversIdx, addresses, store.trm, a.log)

	if a.cfg.Kafka.Enabled {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: a.cfg.Kafka.Brokers,
			Topic:   a.cfg.Kafka.LocationTopic,
			GroupID: a.cfg.Kafka.GroupID,
		})
		a.locations = kafka.NewLocationConsumer(reader, a.cfg.Kafka.LocationTopic, a.log)
	}

	// HTTP
	verifier := middleware.NewJWT(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer)
	routes := &server.Handlers{
		Health:        handler.NewHealth(a.cfg.ServiceName, a.checks, a.log),
		Dispatch:      handler.NewDispatch(matcher, a.cfg.Dispatch.SearchRadiusKm, a.log),
		Requests:      handler.NewRideRequest(a.requests, a.log),
		Rides:         handler.NewRide(rides, a.log),
		Drivers:       handler.NewDriver(a.drivers, a.log),
		Wallets:       handler.NewWallet(ledger, a.log),
		Webhook:       handler.NewWebhook(payments, ledger, a.log),
		Notifications: handler.NewNotifications(a.hub, verifier, a.log),
	}

	a.httpServer, err = server.New(a.cfg.HTTP, routes, middleware.NewMiddleware(verifier, a.cfg.ServiceName, a.log), a.log)
	if err != nil {
		return fmt.Errorf("failed to setup http server: %w", err)
	}

	return nil
}

// initPublisher connects to RabbitMQ. Without a broker notifications go to the log.
func (a *App) initPublisher(ctx context.Context) (notify.Publisher, error) {
	if !a.cfg.RabbitMQ.Enabled {
		a.log.Warn(ctx, "rabbitmq disabled, notifications are only logged")
		return notify.LogPublisher{L: a.log}, nil
	}

	client, err := rabbit.New(ctx, a.cfg.RabbitMQ.GetDSN(), a.log)
	if err != nil {
		return nil, err
	}
	a.rabbit = client

	a.broker = rabbitadapter.NewNotificationBroker(client, a.log)
	if err := a.broker.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup notification broker: %w", err)
	}
	a.checks["rabbitmq"] = func(context.Context) error {
		if client.IsConnectionClosed() {
			return errors.New("connection closed")
		}
		return nil
	}

	return a.broker, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.httpServer == nil {
		return ErrServiceNotInitialized
	}

	if err := a.requests.Restore(ctx); err != nil {
		a.close(ctx)
		return fmt.Errorf("failed to restore pending requests: %w", err)
	}

	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	a.startConsumers(ctx)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

// startConsumers runs the rabbit delivery loop and the kafka location stream until close.
func (a *App) startConsumers(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.broker != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			ctx := wrap.WithAction(ctx, types.ActionNotify)
			if err := a.broker.ConsumeNotifications(ctx, a.hub.Deliver); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error(ctx, "notification consumer stopped", err)
			}
		}()
	}

	if a.locations != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			ctx := wrap.WithAction(ctx, "location_stream")
			if err := a.locations.Run(ctx, a.drivers.HandleLocation); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error(ctx, "location consumer stopped", err)
			}
		}()
	}
}

// close releases resources in reverse order of use: inbound traffic first, stores last.
func (a *App) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.locations != nil {
		if err := a.locations.Close(); err != nil {
			a.log.Warn(ctx, "failed to close kafka reader", "error", err.Error())
		}
	}
	a.wg.Wait()

	if a.requests != nil {
		a.requests.Stop()
	}
	if a.hub != nil {
		a.hub.Close()
	}

	if a.rabbit != nil {
		if err := a.rabbit.Close(ctx); err != nil {
			a.log.Warn(ctx, "failed to close rabbitmq", "error", err.Error())
		}
	}

	closeRedis(ctx, a.redis, a.log)

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
