package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppPort  string // Application port
	IsProd   bool   // Is production environment
	LogLevel string // Logrus level name

	StorageDriver string // memory, mysql, postgres or sqlite
	DBUser        string // Database user
	DBPassword    string // Database password
	DBHost        string // Database host
	DBPort        string // Database port
	DBName        string // Database name
	DatabaseURL   string // Full postgres connection string, overrides the DB_* parts
	SQLitePath    string // SQLite file path
	SeedData      bool   // Seed demo data on an empty store

	RedisAddr      string        // Redis server address, empty disables the market cache
	RedisPass      string        // Redis password
	RedisDB        int           // Redis database number
	MarketCacheTTL time.Duration // Market payload cache lifetime

	MarketBaseURL string        // CoinGecko compatible base URL
	MarketAPIKey  string        // CoinGecko demo API key
	MarketTimeout time.Duration // Upstream request timeout

	JWTSecret string        // JWT secret key for admin tokens
	JWTTTL    time.Duration // Admin token lifetime

	DemoUsername string   // User the non-admin endpoints act on
	CORSOrigins  []string // Allowed CORS origins

	LoginRatePerSec float64 // Admin login attempts per second per client
	LoginBurst      int     // Admin login burst size

	MiningSimInterval time.Duration // Background mining payout interval, zero disables
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:  fallback(os.Getenv("APP_PORT"), "5000"),
		IsProd:   os.Getenv("IS_PROD") == "true",
		LogLevel: fallback(os.Getenv("LOG_LEVEL"), "info"),

		StorageDriver: strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), DriverMemory)),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        fallback(os.Getenv("DB_HOST"), "127.0.0.1"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:    fallback(os.Getenv("SQLITE_PATH"), "paper_trading.db"),
		SeedData:      fallback(os.Getenv("SEED_DATA"), "true") == "true",

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPass:      os.Getenv("REDIS_PASS"),
		RedisDB:        intEnv("REDIS_DB", 0),
		MarketCacheTTL: secondsEnv("MARKET_CACHE_TTL", 30),

		MarketBaseURL: strings.TrimRight(fallback(os.Getenv("COINGECKO_BASE_URL"), "https://api.coingecko.com/api/v3"), "/"),
		MarketAPIKey:  os.Getenv("COINGECKO_API_KEY"),
		MarketTimeout: secondsEnv("MARKET_TIMEOUT", 10),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    time.Duration(intEnv("JWT_TTL_MINUTES", 60)) * time.Minute,

		DemoUsername: fallback(os.Getenv("DEMO_USERNAME"), "demo"),
		CORSOrigins:  parseCSV(fallback(os.Getenv("CORS_ORIGINS"), "*")),

		LoginRatePerSec: floatEnv("LOGIN_RATE_PER_SEC", 1),
		LoginBurst:      intEnv("LOGIN_BURST", 5),

		MiningSimInterval: secondsEnv("MINING_SIM_INTERVAL", 0),
	}
}

// DSN builds the data source name for the configured storage driver
func (c *Config) DSN() string {
	switch c.StorageDriver {
	case DriverMySQL:
		port := fallback(c.DBPort, "3306")
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true"
	case DriverPostgres:
		if c.DatabaseURL != "" {
			return c.DatabaseURL
		}
		port := fallback(c.DBPort, "5432")
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	case DriverSQLite:
		return c.SQLitePath
	default:
		return ""
	}
}

// fallback returns def when value is blank
func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func secondsEnv(key string, def int) time.Duration {
	return time.Duration(intEnv(key, def)) * time.Second
}

// parseCSV splits a comma separated list, defaulting to allow-all
func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
