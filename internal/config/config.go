package config

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sethvargo/go-envconfig"
)

// Store backends for profile documents
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Server       ServerConfig    `env:",prefix=SERVER_"`
	Postgres     PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis        RedisConfig     `env:",prefix=REDIS_"`
	JWT          JWTConfig       `env:",prefix=JWT_"`
	Security     SecurityConfig  `env:",prefix="`
	CORS         CORSConfig      `env:",prefix=CORS_"`
	Session      SessionConfig   `env:",prefix=SESSION_"`
	Search       SearchConfig    `env:",prefix=SEARCH_"`
	Blob         BlobConfig      `env:",prefix=BLOB_"`
	Community    CommunityConfig `env:",prefix=COMMUNITY_"`
	StoreBackend string          `env:"STORE_BACKEND,default=postgres"`
	LogLevel     string          `env:"LOG_LEVEL"`
	Env          string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=127.0.0.1"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=0s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=slangdex"`
	Password string `env:"PASSWORD,default=slangdex_password"`
	DBName   string `env:"DB,default=slangdex_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=30d"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:8081"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// SessionConfig controls profile reconciliation and which sign-in methods
// the identity provider accepts.
type SessionConfig struct {
	RetryUnit           Duration `env:"RETRY_UNIT,default=1s"`
	MaxRetries          int      `env:"MAX_RETRIES,default=3"`
	AllowAnonymous      bool     `env:"ALLOW_ANONYMOUS,default=true"`
	AllowPasswordSignup bool     `env:"ALLOW_PASSWORD_SIGNUP,default=true"`
}

type SearchConfig struct {
	Enabled           bool `env:"ENABLED,default=true"`
	DefaultLimit      int  `env:"DEFAULT_LIMIT,default=10"`
	ResultLimit       int  `env:"RESULT_LIMIT,default=20"`
	SynthesizeMissing bool `env:"SYNTHESIZE_MISSING,default=true"`
}

type BlobConfig struct {
	Root          string `env:"ROOT,default=./data/blobs"`
	BaseURL       string `env:"BASE_URL,default=http://127.0.0.1:8080/media"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE,default=5242880"`
}

type CommunityConfig struct {
	PostsPerMinute float64 `env:"POSTS_PER_MINUTE,default=5"`
	PostBurst      int     `env:"POST_BURST,default=3"`
	MaxPostLength  int     `env:"MAX_POST_LENGTH,default=500"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the postgres:// form used by the migrator
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.DBName,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	return u.String()
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadPostgres loads only the POSTGRES_ section, for commands that do not
// serve requests
func LoadPostgres(ctx context.Context) (*PostgresConfig, error) {
	var pg PostgresConfig

	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &pg,
		Lookuper: envconfig.PrefixLookuper("POSTGRES_", envconfig.OsLookuper()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load database configuration: %w", err)
	}

	return &pg, nil
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.Session.MaxRetries < 0 {
		return fmt.Errorf("SESSION_MAX_RETRIES must not be negative")
	}
	if c.Session.RetryUnit.Duration <= 0 {
		return fmt.Errorf("SESSION_RETRY_UNIT must be positive")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.ResultLimit <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT and SEARCH_RESULT_LIMIT must be positive")
	}
	if c.Blob.MaxUploadSize <= 0 {
		return fmt.Errorf("BLOB_MAX_UPLOAD_SIZE must be positive")
	}
	if c.Community.PostsPerMinute <= 0 || c.Community.PostBurst <= 0 {
		return fmt.Errorf("COMMUNITY_POSTS_PER_MINUTE and COMMUNITY_POST_BURST must be positive")
	}
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, c.StoreBackend)
	}
	return nil
}
