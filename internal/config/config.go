package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var ErrConfiguration = errors.New("configuration error")

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"product_api"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	JWTSecret    string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer    string        `env:"JWT_ISSUER,notEmpty"`
	JWTAudience  string        `env:"JWT_AUDIENCE,notEmpty"`
	JWTAccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
	BcryptCost   int           `env:"BCRYPT_COST"`

	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaUserTopic string   `env:"KAFKA_USER_TOPIC" envDefault:"user_events"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("%w: BCRYPT_COST must be between %d and %d", ErrConfiguration, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.JWTAccessTTL <= 0 {
		return Config{}, fmt.Errorf("%w: JWT_ACCESS_TTL must be positive", ErrConfiguration)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.ServerPort
}
