package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Storage  string
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Hotel    HotelConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Host string
	Port int
	// AdminToken guards /admin; empty leaves it open.
	AdminToken string
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	DSN            string
	User           string
	Password       string
	Name           string
	Host           string
	Port           int
	SSLMode        string
	MaxConns       int32
	MigrateOnStart bool
}

// ConnString returns DSN when set, otherwise a URL built from the parts.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode,
	)
}

// RabbitMQConfig configures booking notifications. An empty URL sends them in-process.
type RabbitMQConfig struct {
	URL string
}

type HotelConfig struct {
	Location     *time.Location
	ManagerEmail string
}

type BookingConfig struct {
	LockTimeout     time.Duration
	NotifyTimeout   time.Duration
	ReferencePrefix string
	RateLimit       int
	RateWindow      time.Duration
	IdempotencyTTL  time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := getenv("SERVER_HOST", "localhost")

	serverPort, err := strconv.Atoi(getenv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT: %w", op, err)
	}

	storage := strings.ToLower(getenv("STORAGE_DRIVER", StoragePostgres))
	if storage != StoragePostgres && storage != StorageMemory {
		return nil, fmt.Errorf("%s: invalid STORAGE_DRIVER %q", op, storage)
	}

	postgresCfg, err := newPostgresConfig(storage == StoragePostgres)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDB, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid REDIS_DB: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	loc, err := time.LoadLocation(getenv("HOTEL_TIMEZONE", "Europe/Rome"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid HOTEL_TIMEZONE: %w", op, err)
	}

	bookingCfg, err := newBookingConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host:       serverHost,
			Port:       serverPort,
			AdminToken: os.Getenv("ADMIN_TOKEN"),
		},
		Storage:  storage,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		RabbitMQ: RabbitMQConfig{URL: os.Getenv("RABBITMQ_URL")},
		Hotel: HotelConfig{
			Location:     loc,
			ManagerEmail: os.Getenv("MANAGER_EMAIL"),
		},
		Booking: bookingCfg,
	}, nil
}

func newPostgresConfig(required bool) (PostgresConfig, error) {
	port, err := strconv.Atoi(getenv("POSTGRES_PORT", "5432"))
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid POSTGRES_PORT: %w", err)
	}

	maxConns, err := strconv.ParseInt(getenv("POSTGRES_MAX_CONNS", "0"), 10, 32)
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid POSTGRES_MAX_CONNS: %w", err)
	}

	migrate, err := strconv.ParseBool(getenv("MIGRATE_ON_START", "true"))
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid MIGRATE_ON_START: %w", err)
	}

	cfg := PostgresConfig{
		DSN:            os.Getenv("POSTGRES_DSN"),
		User:           os.Getenv("POSTGRES_USER"),
		Password:       os.Getenv("POSTGRES_PASSWORD"),
		Name:           os.Getenv("POSTGRES_DB"),
		Host:           getenv("POSTGRES_HOST", "localhost"),
		Port:           port,
		SSLMode:        getenv("POSTGRES_SSLMODE", "disable"),
		MaxConns:       int32(maxConns),
		MigrateOnStart: migrate,
	}

	if !required || cfg.DSN != "" {
		return cfg, nil
	}

	if cfg.User == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	}

	if cfg.Password == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	if cfg.Name == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	return cfg, nil
}

func newBookingConfig() (BookingConfig, error) {
	lockTimeout, err := time.ParseDuration(getenv("BOOKING_LOCK_TIMEOUT", "5s"))
	if err != nil || lockTimeout <= 0 {
		return BookingConfig{}, fmt.Errorf("invalid BOOKING_LOCK_TIMEOUT: %q", os.Getenv("BOOKING_LOCK_TIMEOUT"))
	}

	notifyTimeout, err := time.ParseDuration(getenv("BOOKING_NOTIFY_TIMEOUT", "10s"))
	if err != nil || notifyTimeout <= 0 {
		return BookingConfig{}, fmt.Errorf("invalid BOOKING_NOTIFY_TIMEOUT: %q", os.Getenv("BOOKING_NOTIFY_TIMEOUT"))
	}

	prefix := strings.ToUpper(getenv("BOOKING_REFERENCE_PREFIX", "SF"))
	for _, r := range prefix {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return BookingConfig{}, fmt.Errorf("invalid BOOKING_REFERENCE_PREFIX: %q", prefix)
		}
	}

	rateLimit, err := strconv.Atoi(getenv("BOOKING_RATE_LIMIT", "10"))
	if err != nil {
		return BookingConfig{}, fmt.Errorf("invalid BOOKING_RATE_LIMIT: %w", err)
	}

	rateWindow, err := time.ParseDuration(getenv("BOOKING_RATE_WINDOW", "1m"))
	if err != nil {
		return BookingConfig{}, fmt.Errorf("invalid BOOKING_RATE_WINDOW: %w", err)
	}

	idemTTL, err := time.ParseDuration(getenv("IDEMPOTENCY_TTL", "2h"))
	if err != nil {
		return BookingConfig{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	return BookingConfig{
		LockTimeout:     lockTimeout,
		NotifyTimeout:   notifyTimeout,
		ReferencePrefix: prefix,
		RateLimit:       rateLimit,
		RateWindow:      rateWindow,
		IdempotencyTTL:  idemTTL,
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
