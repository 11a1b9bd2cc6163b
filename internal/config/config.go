package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Token TTLs are parsed as Go durations so operators can
// write "15m" or "168h" directly.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	AccessSecret  string        // secret used to sign access tokens
	RefreshSecret string        // secret used to sign refresh tokens
	AccessTTL     time.Duration // access token time-to-live
	RefreshTTL    time.Duration // refresh token time-to-live
	BcryptCost    int           // bcrypt cost for password hashing
	CookieSecure  bool          // set the Secure flag on auth cookies
}

// Load reads configuration from environment variables. Required variables are
// enforced by must() and missing values cause the program to exit with a fatal
// log message. REFRESH_TOKEN_SECRET falls back to the access secret when
// unset; that is an accepted default but it collapses the two signing domains
// into one, so Load warns about it.
func Load() Config {
	access := must("ACCESS_TOKEN_SECRET")
	refresh := os.Getenv("REFRESH_TOKEN_SECRET")
	if refresh == "" {
		log.Println("REFRESH_TOKEN_SECRET not set, falling back to ACCESS_TOKEN_SECRET")
		refresh = access
	}
	env := envStr("APP_ENV", "dev")
	return Config{
		Env:           env,
		Port:          envStr("APP_PORT", "3000"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		AccessSecret:  access,
		RefreshSecret: refresh,
		AccessTTL:     envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:    envInt("BCRYPT_COST", bcrypt.DefaultCost),
		CookieSecure:  envBool("COOKIE_SECURE", env == "prod"),
	}
}

// must retrieves the value of a required environment variable. If the variable
// is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
