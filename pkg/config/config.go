package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting read from the environment.
type Config struct {
	Port                    string        `env:"PORT" envDefault:"8080"`
	Env                     string        `env:"ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	FirebaseCredentialsPath string        `env:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseStorageBucket   string        `env:"FIREBASE_STORAGE_BUCKET"`
	PostgresConnStr         string        `env:"POSTGRES_CONN_STR"`
	MongoURI                string        `env:"MONGO_URI"`
	MongoDatabase           string        `env:"MONGO_DATABASE" envDefault:"socialmedia"`
	JWTSecret               string        `env:"JWT_SECRET"`
	JWTTTL                  time.Duration `env:"JWT_TTL" envDefault:"72h"`
	CronSecret              string        `env:"CRON_SECRET"`
	StoryTTL                time.Duration `env:"STORY_TTL" envDefault:"24h"`
	MetricsPort             string        `env:"METRICS_PORT" envDefault:"9090"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.PostgresConnStr == "":
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	case c.MongoURI == "":
		return fmt.Errorf("MONGO_URI environment variable not set")
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET environment variable not set")
	case c.CronSecret == "":
		return fmt.Errorf("CRON_SECRET environment variable not set")
	}
	return nil
}
