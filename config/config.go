package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/gateway"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	EnvDevelopment = "development"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	devTokenSecret = "development-token-secret"
)

type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	StoreDriver string

	RedisURL        string
	RevenueCacheTTL time.Duration

	PaymentProvider string
	PaymentCurrency string
	GatewayTimeout  time.Duration
	RequestTimeout  time.Duration

	DokuBaseURL     string
	DokuClientID    string
	DokuSecretKey   string
	XenditSecretKey string

	PublicBaseURL      string
	TokenSecret        string
	CORSAllowedOrigins []string

	LogLevel       string
	MetricsEnabled bool
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", EnvDevelopment),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),

		RedisURL:        os.Getenv("REDIS_URL"),
		RevenueCacheTTL: getEnvAsDuration("REVENUE_CACHE_TTL", 30*time.Second),

		PaymentProvider: getEnv("PAYMENT_PROVIDER", gateway.ProviderSandbox),
		PaymentCurrency: strings.ToUpper(getEnv("PAYMENT_CURRENCY", "IDR")),
		GatewayTimeout:  getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),

		DokuBaseURL:     getEnv("DOKU_BASE_URL", "https://api-sandbox.doku.com"),
		DokuClientID:    os.Getenv("DOKU_CLIENT_ID"),
		DokuSecretKey:   os.Getenv("DOKU_SECRET_KEY"),
		XenditSecretKey: os.Getenv("XENDIT_SECRET_KEY"),

		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		TokenSecret:        os.Getenv("TOKEN_SECRET"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.PaymentProvider {
	case gateway.ProviderSandbox:
	case gateway.ProviderDoku:
		if c.DokuClientID == "" || c.DokuSecretKey == "" {
			return fmt.Errorf("DOKU_CLIENT_ID and DOKU_SECRET_KEY are required for the doku provider")
		}
	case gateway.ProviderXendit:
		if c.XenditSecretKey == "" {
			return fmt.Errorf("XENDIT_SECRET_KEY is required for the xendit provider")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}

	if c.TokenSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("TOKEN_SECRET is required outside development")
		}
		c.TokenSecret = devTokenSecret
	}
	if c.GatewayTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

// getEnvAsDuration accepts Go durations ("10s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if seconds := getEnvAsInt(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NewLogger(cfg *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if cfg.IsDevelopment() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

// createPendingBookingIndex enforces at most one pending, unpaid booking per
// buyer and ticket. The booking upsert targets this index.
func createPendingBookingIndex(db *gorm.DB) error {
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_pending_unpaid
		ON bookings (buyer_id, ticket_id)
		WHERE lifecycle_state = 'pending' AND payment_state = 'unpaid'`).Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.Ticket{}, &models.Booking{}, &models.CheckoutSession{}, &models.Payment{})
	if err != nil {
		return nil, err
	}

	if err := createPendingBookingIndex(db); err != nil {
		return nil, err
	}

	return db, nil
}

func InitStore(cfg *Config, logger *logrus.Logger) (store.Store, error) {
	if cfg.StoreDriver == StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(db, logger), nil
}

// InitRedis returns nil when REDIS_URL is unset.
func InitRedis(cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func InitXenditClient(cfg *Config) *xendit.APIClient {
	return xendit.NewClient(cfg.XenditSecretKey)
}

// InitGateway builds the configured provider. The sandbox is also returned
// on its own so its pay endpoint can be mounted.
func InitGateway(cfg *Config) (gateway.Gateway, *gateway.Sandbox, error) {
	switch cfg.PaymentProvider {
	case gateway.ProviderDoku:
		return gateway.NewDoku(gateway.DokuConfig{
			BaseURL:   cfg.DokuBaseURL,
			ClientID:  cfg.DokuClientID,
			SecretKey: cfg.DokuSecretKey,
		}, nil), nil, nil
	case gateway.ProviderXendit:
		return gateway.NewXendit(InitXenditClient(cfg)), nil, nil
	case gateway.ProviderSandbox:
		sandbox := gateway.NewSandbox(cfg.PublicBaseURL)
		return sandbox, sandbox, nil
	}
	return nil, nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
}
