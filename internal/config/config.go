package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/agroclima/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	GeocodingAPIKey    string

	// Lang selects the day-name table of the forecast ("es" or "en").
	Lang string

	HTTPTimeout time.Duration

	// Upstream resilience.
	MaxAttempts       int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	Burst             int
	CircuitBreaker    bool

	CropsCSV string

	// FieldsFile lists the fields watched by the scheduler; empty disables it.
	FieldsFile    string
	WatchInterval time.Duration

	Port string
}

// Field is a named plot watched by the scheduler.
type Field struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type fieldsDocument struct {
	Fields []Field `yaml:"fields"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.GeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.Lang = getenvDefault("WEATHER_LANG", "es")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getenvDuration("UPSTREAM_RETRY_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.WatchInterval, err = getenvDuration("WATCH_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}

	cfg.MaxAttempts = getenvInt("UPSTREAM_MAX_ATTEMPTS", 3)
	cfg.RequestsPerSecond = getenvFloat("UPSTREAM_RPS", 0)
	cfg.Burst = getenvInt("UPSTREAM_BURST", 5)
	cfg.CircuitBreaker = getenvBool("UPSTREAM_CIRCUIT_BREAKER", false)

	cfg.CropsCSV = getenvDefault("CROPS_CSV", "cultivos_condiciones.csv")
	cfg.FieldsFile = os.Getenv("FIELDS_FILE")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// RequireAPIKey fails when the weather provider key is missing. Commands
// that only read the crop dataset skip this check.
func (c *AppConfig) RequireAPIKey() error {
	if c.OpenWeatherAPIKey == "" {
		return fmt.Errorf("%w: OPENWEATHER_API_KEY is not set", weather.ErrInvalidInput)
	}
	return nil
}

// LoadFields parses the YAML fields file. Coordinates are validated so that
// a bad entry fails at startup rather than on every scheduled run.
func LoadFields(path string) ([]Field, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fields file: %w", err)
	}

	var doc fieldsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fields file %s: %w", path, err)
	}

	for i, f := range doc.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field #%d has no name", weather.ErrInvalidInput, i+1)
		}
		if err := (weather.Coordinate{Lat: f.Lat, Lon: f.Lon}).Validate(); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return doc.Fields, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
