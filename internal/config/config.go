package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultBillingAllowlist is used when BILLING_ALLOWLIST is not set.
var DefaultBillingAllowlist = []string{
	"nko@adaptwny.com",
	"iimperial@adaptwny.com",
	"fpedrosa@adaptwny.com",
	"shilario@adaptwny.com",
	"nferraren@adaptwny.com",
	"limperial@adaptwny.com",
}

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Org       OrgConfig
	Content   ContentConfig
	OIDC      OIDCConfig
	Session   SessionConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
	Search    SearchConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MetricsAddr, when set, serves /metrics on a separate internal listener.
	MetricsAddr  string
}

type OrgConfig struct {
	Domain           string
	BillingAllowlist []string
}

type ContentConfig struct {
	Dir      string
	Watch    bool
	Debounce time.Duration
}

type OIDCConfig struct {
	Issuer        string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AllowInsecure bool
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type SearchConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_BASE_URL", "http://localhost:3000")
	v.SetDefault("ORG_DOMAIN", "adaptwny.com")
	v.SetDefault("BILLING_ALLOWLIST", strings.Join(DefaultBillingAllowlist, ","))
	v.SetDefault("CONTENT_DIR", "content")
	v.SetDefault("CONTENT_WATCH", true)
	v.SetDefault("CONTENT_DEBOUNCE_MS", 500)
	v.SetDefault("OIDC_ISSUER", "https://accounts.google.com")
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("SESSION_COOKIE_NAME", "kb_session")
	v.SetDefault("MONGODB_DATABASE", "kbportal")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("MINIO_BUCKET", "kb-content")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("SEARCH_CACHE_SIZE", 512)
	v.SetDefault("SEARCH_CACHE_TTL_SECONDS", 300)

	env := v.GetString("SERVER_ENVIRONMENT")
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  env,
			BaseURL:      strings.TrimRight(v.GetString("SERVER_BASE_URL"), "/"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			MetricsAddr:  v.GetString("METRICS_ADDR"),
		},
		Org: OrgConfig{
			Domain:           v.GetString("ORG_DOMAIN"),
			BillingAllowlist: splitList(v.GetString("BILLING_ALLOWLIST")),
		},
		Content: ContentConfig{
			Dir:      v.GetString("CONTENT_DIR"),
			Watch:    v.GetBool("CONTENT_WATCH"),
			Debounce: time.Duration(v.GetInt("CONTENT_DEBOUNCE_MS")) * time.Millisecond,
		},
		OIDC: OIDCConfig{
			Issuer:        v.GetString("OIDC_ISSUER"),
			ClientID:      v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:   v.GetString("OIDC_REDIRECT_URL"),
			AllowInsecure: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Session: SessionConfig{
			Secret:     os.Getenv("SESSION_SECRET"),
			TTL:        time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
			CookieName: v.GetString("SESSION_COOKIE_NAME"),
			Secure:     env == "production",
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Prefix:    v.GetString("MINIO_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Search: SearchConfig{
			CacheSize: v.GetInt("SEARCH_CACHE_SIZE"),
			CacheTTL:  time.Duration(v.GetInt("SEARCH_CACHE_TTL_SECONDS")) * time.Second,
		},
	}
	if cfg.OIDC.RedirectURL == "" {
		cfg.OIDC.RedirectURL = cfg.Server.BaseURL + "/api/auth/callback/google"
	}

	// Basic validation
	if cfg.Session.Secret == "" {
		log.Println("WARNING: SESSION_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}

// Resolver builds the role resolver from the organization settings.
func (c *Config) Resolver() *access.Resolver {
	return access.NewResolver(c.Org.Domain, c.Org.BillingAllowlist)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' || r == '\n' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
