package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CORSOrigins []string      `env:"CORS_ORIGINS" envSeparator:","`

	DB         DBConfig
	Log        LogConfig
	Ledger     LedgerConfig
	Commission CommissionConfig
	Withdraw   WithdrawConfig
}

type DBConfig struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"postgres"`
	DSN          string        `env:"DB_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=crown_ledger port=5432 sslmode=disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json | console
}

type LedgerConfig struct {
	MaxAttempts  int           `env:"LEDGER_MAX_ATTEMPTS" envDefault:"5"`
	RetryBackoff time.Duration `env:"LEDGER_RETRY_BACKOFF" envDefault:"10ms"`
}

type CommissionConfig struct {
	MaxDepth     int    `env:"COMMISSION_MAX_DEPTH" envDefault:"10"`
	DefaultRates string `env:"DEFAULT_RATES" envDefault:"SUPER_ADMIN=0.5,CROWN=1.5,DIAMOND=1.0,GOLD=0.75,SILVER=0.25"`
}

type WithdrawConfig struct {
	Denylist        []string      `env:"WITHDRAW_DENYLIST" envSeparator:","`
	PayoutURL       string        `env:"PAYOUT_WEBHOOK_URL"`
	PayoutKey       string        `env:"PAYOUT_SIGNING_KEY"` // hex secp256k1 key, optional
	PayoutTimeout   time.Duration `env:"PAYOUT_TIMEOUT" envDefault:"15s"`
	PayoutInterval  time.Duration `env:"PAYOUT_POLL_INTERVAL" envDefault:"5s"`
	PayoutBatchSize int           `env:"PAYOUT_BATCH_SIZE" envDefault:"50"`
}

// Load reads an optional .env file and then the process environment.
func Load(dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("config: LEDGER_MAX_ATTEMPTS must be >= 1")
	}
	if c.Commission.MaxDepth < 1 {
		return fmt.Errorf("config: COMMISSION_MAX_DEPTH must be >= 1")
	}
	return nil
}
