package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported persistence backends
const (
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request budget, /refresh excluded

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Sources and collection
	SourcesFile    string        // path to sources.yaml
	ScrapeInterval time.Duration // time between scheduled cycles
	ScrapeOnStart  bool          // run a cycle right after startup
	SourcePause    time.Duration // pause between two sources of a cycle
	CycleTimeout   time.Duration // bound on a synchronous refresh

	// Extraction
	UserAgent      string
	AcceptLanguage string
	FetchTimeout   time.Duration
	MaxItems       int  // per-source default
	RespectRobots  bool // honour robots.txt
	RobotsTTL      time.Duration

	// Normalization and publication
	SummaryLimit    int
	PlaceholderBase string
	TimeZone        string // zone used to read partner dates and to bucket stats
	FeedCapacity    int

	// Operator access
	OperatorUser     string
	OperatorPassword string
	OperatorToken    string // static bearer token, optional
	SessionTTL       time.Duration
	LoginBurst       int
	LoginPerMin      int
	RefreshBurst     int
	RefreshPerMin    int

	// Persistence
	Store       string // redis | sqlite | postgres | mongo | memory
	SQLitePath  string
	PostgresDSN string
	MongoURI    string
	MongoDB     string

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict /refresh to specific Host headers
	AllowedCIDRS []string // optional, restrict /refresh, /readyz and /infra to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads the configuration from the environment. A .env file in the
// working directory (or NEWSDESK_ENV_FILE) is loaded first; variables already
// set in the environment win.
func Load() *Config {
	loadDotEnv(getenv("NEWSDESK_ENV_FILE", ".env"))

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("NEWSDESK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("NEWSDESK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("NEWSDESK_REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("NEWSDESK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("NEWSDESK_PRETTY_LOG", true),

		// Collection
		SourcesFile:    getenv("NEWSDESK_SOURCES_FILE", "/app/configs/sources.yaml"),
		ScrapeInterval: mustDuration("NEWSDESK_SCRAPE_INTERVAL", 30*time.Minute),
		ScrapeOnStart:  mustBool("NEWSDESK_SCRAPE_ON_START", true),
		SourcePause:    mustDuration("NEWSDESK_SOURCE_PAUSE", 2*time.Second),
		CycleTimeout:   mustDuration("NEWSDESK_CYCLE_TIMEOUT", 5*time.Minute),

		// Extraction
		UserAgent:      getenv("NEWSDESK_USER_AGENT", ""),
		AcceptLanguage: getenv("NEWSDESK_ACCEPT_LANGUAGE", ""),
		FetchTimeout:   mustDuration("NEWSDESK_FETCH_TIMEOUT", 10*time.Second),
		MaxItems:       getenvInt("NEWSDESK_MAX_ITEMS", 5),
		RespectRobots:  mustBool("NEWSDESK_RESPECT_ROBOTS", true),
		RobotsTTL:      mustDuration("NEWSDESK_ROBOTS_TTL", 6*time.Hour),

		// Normalization and publication
		SummaryLimit:    getenvInt("NEWSDESK_SUMMARY_LIMIT", 150),
		PlaceholderBase: getenv("NEWSDESK_PLACEHOLDER_BASE", "https://via.placeholder.com"),
		TimeZone:        getenv("NEWSDESK_TIMEZONE", "America/Sao_Paulo"),
		FeedCapacity:    getenvInt("NEWSDESK_FEED_CAPACITY", 100),

		// Operator access
		OperatorUser:     requireEnv("NEWSDESK_OPERATOR_USER"),
		OperatorPassword: requireEnv("NEWSDESK_OPERATOR_PASSWORD"),
		OperatorToken:    getenv("NEWSDESK_OPERATOR_TOKEN", ""),
		SessionTTL:       mustDuration("NEWSDESK_SESSION_TTL", 12*time.Hour),
		LoginBurst:       getenvInt("NEWSDESK_LOGIN_BURST", 10),
		LoginPerMin:      getenvInt("NEWSDESK_LOGIN_PER_MIN", 5),
		RefreshBurst:     getenvInt("NEWSDESK_REFRESH_BURST", 3),
		RefreshPerMin:    getenvInt("NEWSDESK_REFRESH_PER_MIN", 2),

		// Persistence
		Store:       strings.ToLower(getenv("NEWSDESK_STORE", StoreRedis)),
		SQLitePath:  getenv("NEWSDESK_SQLITE_PATH", "/app/data/newsdesk.db"),
		PostgresDSN: getenv("NEWSDESK_POSTGRES_DSN", ""),
		MongoURI:    getenv("NEWSDESK_MONGO_URI", ""),
		MongoDB:     getenv("NEWSDESK_MONGO_DB", "newsdesk"),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("NEWSDESK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("NEWSDESK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("NEWSDESK_TRUST_PROXY", true),
	}

	switch cfg.Store {
	case StoreRedis:
		loadRedis(cfg)
	case StorePostgres:
		cfg.PostgresDSN = requireEnv("NEWSDESK_POSTGRES_DSN")
	case StoreMongo:
		cfg.MongoURI = requireEnv("NEWSDESK_MONGO_URI")
	case StoreSQLite, StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown NEWSDESK_STORE %q (redis, sqlite, postgres, mongo, memory)", cfg.Store))
	}

	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid NEWSDESK_TIMEZONE %q: %v", cfg.TimeZone, err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

func loadRedis(cfg *Config) {
	cfg.RedisAddr = requireEnv("NEWSDESK_REDIS_ADDR")
	cfg.RedisUser = getenv("NEWSDESK_REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("NEWSDESK_REDIS_PASSWORD_REQUIRED", true)
	cfg.RedisPassword = getenv("NEWSDESK_REDIS_PASSWORD", "")
	cfg.RedisDB = requireEnvInt("NEWSDESK_REDIS_DB")
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: NEWSDESK_REDIS_PASSWORD is required when NEWSDESK_REDIS_PASSWORD_REQUIRED=true")
	}
}

// Redacted returns a copy safe to log
func (c *Config) Redacted() Config {
	cp := *c
	const redacted = "***REDACTED***"
	for _, s := range []*string{&cp.RedisPassword, &cp.OperatorPassword, &cp.OperatorToken, &cp.PostgresDSN, &cp.MongoURI} {
		if *s != "" {
			*s = redacted
		}
	}
	if cp.RedisUser != "" {
		cp.RedisUser = redacted
	}
	return cp
}

// Location returns the configured time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// loadDotEnv never overrides variables that are already set
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid env file %s: %v", path, err))
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
