package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The struct is built once in main and passed
// explicitly into every component that needs it; nothing in the codebase
// reads the environment after startup.
type Config struct {
    Env                 string // application environment (e.g. "dev", "prod")
    Port                string // HTTP port to listen on
    DBUser              string // database username
    DBPass              string // database password (optional)
    DBHost              string // database host address
    DBPort              string // database port number
    DBName              string // database name
    AuthSecret          string // secret for signing temp tokens and deriving the TOTP sealing key
    MagicLinkTTLMin     int    // magic-link token time-to-live in minutes
    TempTokenTTLMin     int    // temp auth token time-to-live in minutes
    SessionTTLHours     int    // session cookie time-to-live in hours
    SessionCookieName   string // name of the session cookie
    MagicLinkBaseURL    string // base URL embedded in delivered magic links
    MagicLinkMaxPerWin  int    // max magic-link requests per email+IP per window
    MagicLinkWindowSec  int    // sliding-window size in seconds for the above
    TOTPIssuer          string // issuer shown in authenticator apps
    TOTPSkewSteps       int    // accepted clock-drift steps on either side (30s each)
    WebhookSecret       string // shared secret for inbound billing webhooks ("whsec_..." or raw)
    WebhookToleranceSec int    // replay-window bound for webhook timestamps in seconds
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Optional values
// fall back to sensible defaults via opt()/optInt().
func Load() Config {
    return Config{
        Env:                 must("APP_ENV"),
        Port:                must("APP_PORT"),
        DBUser:              must("DB_USER"),
        DBPass:              os.Getenv("DB_PASS"), // empty allowed
        DBHost:              must("DB_HOST"),
        DBPort:              must("DB_PORT"),
        DBName:              must("DB_NAME"),
        AuthSecret:          must("AUTH_SECRET"),
        MagicLinkTTLMin:     optInt("MAGIC_LINK_TTL_MIN", 15),
        TempTokenTTLMin:     optInt("TEMP_TOKEN_TTL_MIN", 10),
        SessionTTLHours:     optInt("SESSION_TTL_HOURS", 24*7),
        SessionCookieName:   opt("SESSION_COOKIE_NAME", "mf_session"),
        MagicLinkBaseURL:    opt("MAGIC_LINK_BASE_URL", "http://localhost:8080/v1/auth/verify"),
        MagicLinkMaxPerWin:  optInt("MAGIC_LINK_MAX_PER_WINDOW", 3),
        MagicLinkWindowSec:  optInt("MAGIC_LINK_WINDOW_SEC", 600),
        TOTPIssuer:          opt("TOTP_ISSUER", "Mailfold"),
        TOTPSkewSteps:       optInt("TOTP_SKEW_STEPS", 1),
        WebhookSecret:       must("WEBHOOK_SECRET"),
        WebhookToleranceSec: optInt("WEBHOOK_TOLERANCE_SEC", 300),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// opt retrieves an optional environment variable, falling back to def.
func opt(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// optInt is like opt() but converts the retrieved string into an integer.
// A value that fails to parse aborts startup rather than silently
// running with a default.
func optInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, v)
    }
    return n
}
