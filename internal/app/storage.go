package app

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/redisgeo"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	"github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/internal/service/request"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/redis"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"

	goredis "github.com/redis/go-redis/v9"
)

// Both the postgres and the memory repositories satisfy these.
type (
	driverStore interface {
		dispatch.DriverRepo
		driver.DriverRepo
		ride.DriverRepo
		request.DriverGetter
		geo.RatingSource
		geo.AvailabilityFilter
	}

	requestStore interface {
		dispatch.RequestRepo
		request.RequestRepo
	}

	rideStore interface {
		dispatch.RideRepo
		driver.RideRepo
		ride.RideRepo
		wallet.RideRepo
	}
)

type storage struct {
	drivers  driverStore
	requests requestStore
	rides    rideStore
	ratings  ride.RatingRepo
	wallets  wallet.WalletRepo
	entries  wallet.TransactionRepo
	payments wallet.PaymentRepo
	trm      trm.TxManager
}

// initStorage opens postgres and applies migrations, or falls back to process memory.
func (a *App) initStorage(ctx context.Context) (*storage, error) {
	if !a.cfg.Database.Enabled {
		a.log.Warn(ctx, "database disabled, using in-memory storage")
		mem := memory.New()
		return &storage{
			drivers:  mem.Drivers(),
			requests: mem.Requests(),
			rides:    mem.Rides(),
			ratings:  mem.Ratings(),
			wallets:  mem.Wallets(),
			entries:  mem.Transactions(),
			payments: mem.Payments(),
			trm:      mem.TxManager(),
		}, nil
	}

	if err := postgres.Migrate(a.cfg.Database.Migrations, a.cfg.Database); err != nil {
		return nil, err
	}

	db, err := postgres.New(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	a.postgresDB = db
	a.checks["postgres"] = db.Pool.Ping

	return &storage{
		drivers:  repo.NewDriverRepo(db.Pool),
		requests: repo.NewRequestRepo(db.Pool),
		rides:    repo.NewRideRepo(db.Pool),
		ratings:  repo.NewRatingRepo(db.Pool),
		wallets:  repo.NewWalletRepo(db.Pool),
		entries:  repo.NewTransactionRepo(db.Pool),
		payments: repo.NewPaymentRepo(db.Pool),
		trm:      trm.New(db.Pool),
	}, nil
}

// initGeoStores returns the driver and rider position stores.
func (a *App) initGeoStores(ctx context.Context) (drivers, riders geo.Store, err error) {
	if !a.cfg.Redis.Enabled {
		a.log.Warn(ctx, "redis disabled, positions are kept in memory")
		return geo.NewMemoryStore(), geo.NewMemoryStore(), nil
	}

	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	a.redis = client
	a.checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}

	return redisgeo.New(client, redisgeo.DriversKey), redisgeo.New(client, redisgeo.RidersKey), nil
}

func closeRedis(ctx context.Context, client *goredis.Client, log logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Warn(ctx, "failed to close redis client", "error", err.Error())
	}
}
