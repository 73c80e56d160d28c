package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment
type Config struct {
	AppKey      string
	AppSecret   string
	RedirectURI string
	TokenFile   string

	AWSRegion   string
	Environment string

	Port     int
	LogLevel string

	// PublicIP and BaseURL are written by sync from instance metadata
	PublicIP string
	BaseURL  string

	DynamoTable string
	EnvFile     string
	ServiceName string

	AlpacaAPIKey    string
	AlpacaSecretKey string

	RefreshInterval  time.Duration
	SnapshotInterval time.Duration
}

// Load reads an optional dotenv file and then the environment. Variables
// already present in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = getenv("ENV_FILE", ".env")
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment
func FromEnv() (*Config, error) {
	port, err := strconv.Atoi(getenv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	refresh, err := interval("REFRESH_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	snapshot, err := interval("SNAPSHOT_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	return &Config{
		AppKey:           os.Getenv("SCHWAB_APP_KEY"),
		AppSecret:        os.Getenv("SCHWAB_APP_SECRET"),
		RedirectURI:      getenv("SCHWAB_REDIRECT_URI", "https://127.0.0.1"),
		TokenFile:        getenv("SCHWAB_TOKEN_FILE", "cs_tokens.json"),
		AWSRegion:        getenv("AWS_REGION", "us-east-1"),
		Environment:      getenv("ENVIRONMENT", "production"),
		Port:             port,
		LogLevel:         getenv("LOG_LEVEL", "INFO"),
		PublicIP:         os.Getenv("PUBLIC_IP"),
		BaseURL:          os.Getenv("APP_BASE_URL"),
		DynamoTable:      getenv("DYNAMODB_TABLE", "schwab_positions"),
		EnvFile:          getenv("ENV_FILE", ".env"),
		ServiceName:      getenv("SERVICE_NAME", "schwab-api.service"),
		AlpacaAPIKey:     os.Getenv("ALPACA_API_KEY"),
		AlpacaSecretKey:  os.Getenv("ALPACA_SECRET_KEY"),
		RefreshInterval:  refresh,
		SnapshotInterval: snapshot,
	}, nil
}

// HasCredentials reports whether the Schwab app key pair is set
func (c *Config) HasCredentials() bool {
	return c.AppKey != "" && c.AppSecret != ""
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// interval parses a positive duration
func interval(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: %s is not positive", key, d)
	}
	return d, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
