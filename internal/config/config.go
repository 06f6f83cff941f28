package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/imrishuroy/go-payzen-notify/internal/orders"
	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
)

// Context modes of the payment platform.
const (
	ModeTest       = "TEST"
	ModeProduction = "PRODUCTION"
)

// New loads the configuration from the environment (and .env when
// GO_ENV=local) and validates it.
func New() (*Config, error) {
	var cfg Config
	if os.Getenv("GO_ENV") == "local" {
		_ = godotenv.Load(".env")
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	APP
	Payzen
	Shop
	Storage
}

type APP struct {
	PORT             string `env:"APP_PORT" envDefault:"8080"`
	RunLocal         bool   `env:"RUN_LOCAL" envDefault:"false"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"PayzenNotify"`
}

type Payzen struct {
	SiteID   string `env:"PAYZEN_SITE_ID"`
	KeyTest  string `env:"PAYZEN_KEY_TEST"`
	KeyProd  string `env:"PAYZEN_KEY_PROD"`
	CtxMode  string `env:"PAYZEN_CTX_MODE" envDefault:"TEST"`
	SignAlgo string `env:"PAYZEN_SIGN_ALGO" envDefault:"SHA-1"`
}

type Shop struct {
	// ReturnURL is used when the order has none; %s is the order id.
	ReturnURL     string `env:"SHOP_RETURN_URL" envDefault:"/checkout/order-received/%s"`
	CheckoutURL   string `env:"SHOP_CHECKOUT_URL" envDefault:"/checkout"`
	SuccessStatus string `env:"SHOP_SUCCESS_STATUS" envDefault:"processing"`
}

type Storage struct {
	OrdersTable    string        `env:"ORDERS_TABLE" envDefault:"orders"`
	LedgerTable    string        `env:"LEDGER_TABLE" envDefault:"payzen-notifications"`
	LedgerTTL      time.Duration `env:"LEDGER_TTL" envDefault:"720h"`
	EventsQueueURL string        `env:"EVENTS_QUEUE_URL"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"10s"`
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	c.CtxMode = strings.ToUpper(strings.TrimSpace(c.CtxMode))
	if c.CtxMode != ModeTest && c.CtxMode != ModeProduction {
		errs = append(errs, fmt.Errorf("PAYZEN_CTX_MODE: unknown mode %q", c.CtxMode))
	} else if c.ActiveKey() == "" {
		errs = append(errs, fmt.Errorf("key for %s mode: %w", c.CtxMode, payzen.ErrEmptyKey))
	}
	if _, err := payzen.ParseAlgorithm(c.SignAlgo); err != nil {
		errs = append(errs, fmt.Errorf("PAYZEN_SIGN_ALGO: %w", err))
	}
	if !orders.IsSettledStatus(c.SuccessStatus) {
		errs = append(errs, fmt.Errorf("SHOP_SUCCESS_STATUS: %q is not one of %v", c.SuccessStatus, orders.SettledStatuses))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// ActiveKey is the secret of the configured context mode.
func (c *Config) ActiveKey() string {
	if c.CtxMode == ModeProduction {
		return c.KeyProd
	}
	return c.KeyTest
}

// Algorithm is the parsed signature algorithm. Only valid after Validate.
func (c *Config) Algorithm() payzen.Algorithm {
	algo, _ := payzen.ParseAlgorithm(c.SignAlgo)
	return algo
}

// IsTest reports whether the platform runs in TEST mode.
func (c *Config) IsTest() bool { return c.CtxMode == ModeTest }
