package wallet

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/google/uuid"
)

type Config struct {
	CommissionRate  float64      // platform share of a ride fare
	TopUpCeiling    models.Money // exclusive upper bound of a single top-up
	PlatformOwnerID uuid.UUID    // owner of the platform commission wallet
	StatementLimit  int
	Currency        string
}

func DefaultConfig() Config {
	return Config{
		CommissionRate:  0.2,
		TopUpCeiling:    models.FromAmount(10000),
		PlatformOwnerID: uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		StatementLimit:  10,
		Currency:        "usd",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CommissionRate <= 0 || c.CommissionRate >= 1 {
		c.CommissionRate = d.CommissionRate
	}
	if c.TopUpCeiling <= 0 {
		c.TopUpCeiling = d.TopUpCeiling
	}
	if c.PlatformOwnerID == uuid.Nil {
		c.PlatformOwnerID = d.PlatformOwnerID
	}
	if c.StatementLimit <= 0 {
		c.StatementLimit = d.StatementLimit
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	return c
}
