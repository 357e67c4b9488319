package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// durations, ports and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	TokenTTLDays   int    // access token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	SepaySecret    string // shared secret for webhook HMAC verification
	GoogleClientID string // OAuth client id accepted for Google id_tokens
	ESP32Host      string // gate controller host (optional; gate disabled when empty)
	ESP32Port      int    // gate controller port
	DefaultLotID   uint64 // lot reported by the hardware status endpoint
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		TokenTTLDays:   mustInt("TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		SepaySecret:    must("SEPAY_SECRET_KEY"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"), // empty disables Google login
		ESP32Host:      os.Getenv("ESP32_IP"),
		ESP32Port:      intOr("ESP32_PORT", 80),
		DefaultLotID:   uint64(intOr("DEFAULT_LOT_ID", 1)),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intOr reads an optional integer variable, falling back to def when the
// variable is unset. A set-but-malformed value is still fatal.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
