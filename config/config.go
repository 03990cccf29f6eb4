package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Landomo core service
	APIBaseURL string
	APIKey     string

	// Scraper identity
	Portal  string
	Country string

	// Zigbang API
	ZigbangAPIURL string
	ZigbangWebURL string

	// Scraper behavior
	Debug             bool
	RequestDelayMs    int
	RequestTimeoutSec int
	BatchSize         int
	MaxResults        int

	// Search targets
	Cities        []string
	PropertyTypes []string

	// Geohash table override (optional YAML file)
	CityTablePath string

	Environment string

	// Optional scraper database (run history only)
	ScraperDBHost     string
	ScraperDBPort     string
	ScraperDBName     string
	ScraperDBUser     string
	ScraperDBPassword string
	ScraperDBSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		APIBaseURL: getEnv("LANDOMO_API_URL", "https://core.landomo.com/api/v1"),
		APIKey:     getEnv("LANDOMO_API_KEY", ""),

		Portal:  getEnv("PORTAL_ID", "zigbang"),
		Country: getEnv("COUNTRY_CODE", "south-korea"),

		ZigbangAPIURL: getEnv("ZIGBANG_API_URL", "https://apis.zigbang.com"),
		ZigbangWebURL: getEnv("ZIGBANG_WEB_URL", "https://www.zigbang.com"),

		Debug:             getEnv("DEBUG", "") == "true",
		RequestDelayMs:    getEnvInt("REQUEST_DELAY_MS", 300),
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 30),
		BatchSize:         getEnvInt("BATCH_SIZE", 100),
		MaxResults:        getEnvInt("MAX_RESULTS", 1000),

		Cities:        getEnvList("CITIES", getEnv("DEFAULT_CITY", "seoul")),
		PropertyTypes: getEnvList("PROPERTY_TYPES", "원룸,오피스텔,빌라"),

		CityTablePath: getEnv("GEOHASH_CITIES_PATH", ""),

		Environment: getEnv("APP_ENV", "development"),

		ScraperDBHost:     getEnv("SCRAPER_DB_HOST", ""),
		ScraperDBPort:     getEnv("SCRAPER_DB_PORT", "5432"),
		ScraperDBName:     getEnv("SCRAPER_DB_NAME", "scraper"),
		ScraperDBUser:     getEnv("SCRAPER_DB_USER", "scraper"),
		ScraperDBPassword: getEnv("SCRAPER_DB_PASSWORD", ""),
		ScraperDBSSLMode:  getEnv("SCRAPER_DB_SSLMODE", "disable"),
	}
}

// IsProduction reports whether the scraper runs in a production context,
// where a missing LANDOMO_API_KEY is fatal.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RequestDelay returns the minimum delay between upstream requests.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ScraperDBEnabled reports whether the optional run-history database is
// configured.
func (c *Config) ScraperDBEnabled() bool {
	return c.ScraperDBHost != ""
}

// DSN returns the PostgreSQL connection string for the scraper database.
func (c *Config) DSN() string {
	return "host=" + c.ScraperDBHost +
		" port=" + c.ScraperDBPort +
		" user=" + c.ScraperDBUser +
		" password=" + c.ScraperDBPassword +
		" dbname=" + c.ScraperDBName +
		" sslmode=" + c.ScraperDBSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
