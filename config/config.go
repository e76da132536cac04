package config

import (
	"flag"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

// Flags
var (
	configPath = flag.String("config-path", "config.yaml", "path to the YAML config")
	envPath    = flag.String("env-path", ".env", "path to an optional .env file")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		ServiceName string `env:"SERVICE_NAME" default:"ride-dispatch"`
		LogLevel    string `env:"LOG_LEVEL" default:"INFO"`

		HTTP              HTTPConfig
		Database          DatabaseConfig
		Redis             RedisConfig
		RabbitMQ          RabbitMQConfig
		Kafka             KafkaConfig
		Stripe            StripeConfig
		ExternalAPIConfig ExternalAPIConfig
		Auth              Auth

		Dispatch DispatchConfig
		Fare     FareConfig
		Wallet   WalletConfig
	}

	HTTPConfig struct {
		Host            string        `env:"HTTP_HOST" default:"0.0.0.0"`
		Port            string        `env:"HTTP_PORT" default:"3000"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" default:"10s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" default:"15s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" default:"60s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	// DatabaseConfig: без DATABASE_ENABLED сервис работает на памяти
	DatabaseConfig struct {
		Enabled  bool   `env:"DATABASE_ENABLED" default:"false"`
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"dispatch_db"`
		SSLMode  string `env:"DATABASE_SSLMODE" default:"disable"`

		Migrations string `env:"DATABASE_MIGRATIONS" default:"file://migrations"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`         // максимум открытых соединений
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`          // минимум соединений в пуле
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"` // макс. "время жизни" соединения
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`  // макс. "время простоя" соединения
	}

	RedisConfig struct {
		Enabled  bool   `env:"REDIS_ENABLED" default:"false"`
		Host     string `env:"REDIS_HOST" default:"localhost"`
		Port     string `env:"REDIS_PORT" default:"6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"false"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`

		PublishTimeout time.Duration `env:"RABBITMQ_PUBLISH_TIMEOUT" default:"3s"`
	}

	KafkaConfig struct {
		Enabled       bool     `env:"KAFKA_ENABLED" default:"false"`
		Brokers       []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
		LocationTopic string   `env:"KAFKA_LOCATION_TOPIC" default:"driver.locations"`
		GroupID       string   `env:"KAFKA_GROUP_ID" default:"ride-dispatch"`
	}

	StripeConfig struct {
		SecretKey     string `env:"STRIPE_SECRET_KEY"`
		WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
		Currency      string `env:"STRIPE_CURRENCY" default:"usd"`
	}

	ExternalAPIConfig struct {
		LocationIQapiKey  string        `env:"LOCATIONIQ_API_KEY"`
		LocationIQDomain  string        `env:"LOCATIONIQ_DOMAIN" default:"https://us1.locationiq.com"`
		LocationIQTimeout time.Duration `env:"LOCATIONIQ_TIMEOUT" default:"3s"`

		WeatherAPIKey  string        `env:"WEATHER_API_KEY"`
		WeatherDomain  string        `env:"WEATHER_DOMAIN" default:"https://api.openweathermap.org"`
		WeatherTimeout time.Duration `env:"WEATHER_TIMEOUT" default:"2s"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
		Issuer    string `env:"AUTH_ISSUER"`
	}

	DispatchConfig struct {
		SearchRadiusKm float64       `env:"DISPATCH_SEARCH_RADIUS_KM" default:"5"`
		AcceptWindow   time.Duration `env:"DISPATCH_ACCEPT_WINDOW" default:"2m"`
	}

	FareConfig struct {
		EconomyRate float64 `env:"FARE_ECONOMY_RATE" default:"10"`
		PremiumRate float64 `env:"FARE_PREMIUM_RATE" default:"20"`
		LuxuryRate  float64 `env:"FARE_LUXURY_RATE" default:"30"`

		NightSurge        float64 `env:"FARE_NIGHT_SURGE" default:"5"`
		WeekdayRushSurge  float64 `env:"FARE_WEEKDAY_RUSH_SURGE" default:"3"`
		WeekendNightSurge float64 `env:"FARE_WEEKEND_NIGHT_SURGE" default:"4"`

		RainSurge          float64 `env:"FARE_RAIN_SURGE" default:"2"`
		HeavyRainSurge     float64 `env:"FARE_HEAVY_RAIN_SURGE" default:"4"`
		HeavyRainThreshold float64 `env:"FARE_HEAVY_RAIN_THRESHOLD" default:"5"`
		SnowSurge          float64 `env:"FARE_SNOW_SURGE" default:"5"`
		StormSurge         float64 `env:"FARE_STORM_SURGE" default:"7"`
		ExtremeTempSurge   float64 `env:"FARE_EXTREME_TEMP_SURGE" default:"2"`
		ColdBelow          float64 `env:"FARE_COLD_BELOW" default:"-10"`
		HotAbove           float64 `env:"FARE_HOT_ABOVE" default:"40"`

		DemandRadiusKm  float64       `env:"FARE_DEMAND_RADIUS_KM" default:"50"`
		DemandHighRatio float64       `env:"FARE_DEMAND_HIGH_RATIO" default:"3"`
		DemandMidRatio  float64       `env:"FARE_DEMAND_MID_RATIO" default:"2"`
		DemandHigh      float64       `env:"FARE_DEMAND_HIGH" default:"8"`
		DemandMid       float64       `env:"FARE_DEMAND_MID" default:"5"`
		DemandLow       float64       `env:"FARE_DEMAND_LOW" default:"2"`
		DemandTimeout   time.Duration `env:"FARE_DEMAND_TIMEOUT" default:"1s"`

		TimeZone string `env:"FARE_TIME_ZONE" default:"Local"`
	}

	WalletConfig struct {
		CommissionRate  float64 `env:"WALLET_COMMISSION_RATE" default:"0.2"`
		TopUpCeiling    float64 `env:"WALLET_TOPUP_CEILING" default:"10000"`
		PlatformOwnerID string  `env:"WALLET_PLATFORM_OWNER_ID" default:"00000000-0000-0000-0000-000000000001"`
		StatementLimit  int     `env:"WALLET_STATEMENT_LIMIT" default:"10"`
	}
)

func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

func (c DatabaseConfig) PoolLimits() (int32, int32, time.Duration, time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RedisConfig) RedisAddr() string     { return net.JoinHostPort(c.Host, c.Port) }
func (c RedisConfig) RedisPassword() string { return c.Password }
func (c RedisConfig) RedisDB() int          { return c.DB }

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// Location resolves TimeZone. "Local" and "" mean the process zone.
func (c FareConfig) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.TimeZone) {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// NewConfig loads .env and the YAML file into the environment and parses the environment into Config.
// Both files are optional.
func NewConfig() (*Config, error) {
	cfg := &Config{}

	if err := configparser.LoadEnvFile(*envPath); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(*configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	if !logger.ValidateLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel)
	}

	return cfg, nil
}
