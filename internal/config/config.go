package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ProvidersConfig holds upstream data provider settings. An empty API key or
// base URL switches the corresponding client to its simulated data path.
type ProvidersConfig struct {
	SatelliteBaseURL string        `yaml:"satellite_base_url"`
	SatelliteAPIKey  string        `yaml:"satellite_api_key"`
	GroundBaseURL    string        `yaml:"ground_base_url"`
	GroundAPIKey     string        `yaml:"ground_api_key"`
	WeatherBaseURL   string        `yaml:"weather_base_url"`
	WeatherAPIKey    string        `yaml:"weather_api_key"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// (CONFIG_FILE), and environment variables, in increasing precedence.
// A .env file in the working directory is loaded first if present.
func LoadConfig() (*Config, error) {
	// Missing .env is not an error
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Providers: ProvidersConfig{
			SatelliteBaseURL: "https://tempo.si.edu/api",
			GroundBaseURL:    "https://api.openaq.org/v2",
			WeatherBaseURL:   "https://api.openweathermap.org/data/2.5",
			RequestTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("NASA_TEMPO_BASE_URL"); v != "" {
		cfg.Providers.SatelliteBaseURL = v
	}
	if v := os.Getenv("NASA_TEMPO_API_KEY"); v != "" {
		cfg.Providers.SatelliteAPIKey = v
	}
	if v := os.Getenv("OPENAQ_BASE_URL"); v != "" {
		cfg.Providers.GroundBaseURL = v
	}
	if v := os.Getenv("OPENAQ_API_KEY"); v != "" {
		cfg.Providers.GroundAPIKey = v
	}
	if v := os.Getenv("WEATHER_API_BASE_URL"); v != "" {
		cfg.Providers.WeatherBaseURL = v
	}
	if v := os.Getenv("WEATHER_API_KEY"); v != "" {
		cfg.Providers.WeatherAPIKey = v
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PROVIDER_TIMEOUT %q: %w", v, err)
		}
		cfg.Providers.RequestTimeout = timeout
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("provider request timeout must be positive, got %s", c.Providers.RequestTimeout)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
