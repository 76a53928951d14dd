// Package config loads the service configuration from a YAML file, with
// environment overrides for secrets and endpoints.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SecureCookies   bool          `yaml:"secure_cookies"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
}

type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
}

type OTPConfig struct {
	Length      int           `yaml:"length"`
	TTL         time.Duration `yaml:"ttl"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type BookingConfig struct {
	Currency       string        `yaml:"currency"`
	TicketValidity time.Duration `yaml:"ticket_validity"`
	CartTTL        time.Duration `yaml:"cart_ttl"`
	SecuritySecret string        `yaml:"security_secret"`
	Workers        int           `yaml:"workers"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Stripe   StripeConfig   `yaml:"stripe"`
	OTP      OTPConfig      `yaml:"otp"`
	Booking  BookingConfig  `yaml:"booking"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads path, applies MONUMENT_* environment overrides and fills in
// defaults. An empty path skips the file. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		if err = yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Addr, "MONUMENT_HTTP_ADDR")
	setString(&c.Postgres.DSN, "MONUMENT_POSTGRES_DSN")
	setString(&c.Redis.Addr, "MONUMENT_REDIS_ADDR")
	setString(&c.Redis.Password, "MONUMENT_REDIS_PASSWORD")
	setString(&c.NATS.URL, "MONUMENT_NATS_URL")
	setString(&c.Stripe.SecretKey, "MONUMENT_STRIPE_KEY")
	setString(&c.Booking.SecuritySecret, "MONUMENT_SECURITY_SECRET")

	if v, ok := os.LookupEnv("MONUMENT_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MONUMENT_REDIS_DB: %w", err)
		}
		c.Redis.Database = db
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "monument-fees"
	}
	if c.OTP.Length <= 0 {
		c.OTP.Length = 6
	}
	if c.OTP.TTL <= 0 {
		c.OTP.TTL = 420 * time.Second
	}
	if c.OTP.MaxAttempts <= 0 {
		c.OTP.MaxAttempts = 5
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = "btn"
	}
	if c.Booking.TicketValidity <= 0 {
		c.Booking.TicketValidity = 30 * 24 * time.Hour
	}
	if c.Booking.CartTTL <= 0 {
		c.Booking.CartTTL = 24 * time.Hour
	}
	if c.Booking.Workers <= 0 {
		c.Booking.Workers = 10
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("stripe.secret_key is required"))
	}
	if c.Booking.SecuritySecret == "" {
		errs = append(errs, errors.New("booking.security_secret is required"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
