package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server       ServerConfig       `env:",prefix=SERVER_"`
	Postgres     PostgresConfig     `env:",prefix=POSTGRES_"`
	Redis        RedisConfig        `env:",prefix=REDIS_"`
	JWT          JWTConfig          `env:",prefix=JWT_"`
	Verification VerificationConfig `env:",prefix=VERIFICATION_"`
	Security     SecurityConfig     `env:",prefix="`
	OAuth        OAuthConfig        `env:",prefix=OAUTH_"`
	SMTP         SMTPConfig         `env:",prefix=SMTP_"`
	CORS         CORSConfig         `env:",prefix=CORS_"`
	AppBaseURL   string             `env:"APP_BASE_URL,default=http://localhost:3000"`
	Env          string             `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=identity"`
	Password    string `env:"PASSWORD,default=identity_password"`
	DBName      string `env:"DB,default=identity_db"`
	SSLMode     string `env:"SSLMODE,default=disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=false"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret     string   `env:"SECRET,required"`
	Issuer     string   `env:"ISSUER,default=identity-service"`
	SessionTTL Duration `env:"SESSION_TTL,default=24h"`
}

type VerificationConfig struct {
	EmailTTL     Duration `env:"EMAIL_TTL,default=24h"`
	ResetTTL     Duration `env:"RESET_TTL,default=1h"`
	ResendWindow Duration `env:"RESEND_WINDOW,default=1m"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type OAuthConfig struct {
	StateTTL           Duration `env:"STATE_TTL,default=10m"`
	ExchangeTimeout    Duration `env:"EXCHANGE_TIMEOUT,default=10s"`
	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID,default="`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET,default="`
	GoogleRedirectURL  string   `env:"GOOGLE_REDIRECT_URL,default=http://localhost:8080/api/v1/auth/google/callback"`
	GitHubClientID     string   `env:"GITHUB_CLIENT_ID,default="`
	GitHubClientSecret string   `env:"GITHUB_CLIENT_SECRET,default="`
	GitHubRedirectURL  string   `env:"GITHUB_REDIRECT_URL,default=http://localhost:8080/api/v1/auth/github/callback"`
}

type SMTPConfig struct {
	Host     string `env:"HOST,default="`
	Port     int    `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=no-reply@localhost"`
	FromName string `env:"FROM_NAME,default=Image Hosting"`
	TLSMode  string `env:"TLS_MODE,default=starttls"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Enabled reports whether mail should go out over SMTP
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
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

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.JWT.SessionTTL.Duration <= 0 {
		return fmt.Errorf("JWT_SESSION_TTL must be positive")
	}
	if c.Verification.EmailTTL.Duration <= 0 || c.Verification.ResetTTL.Duration <= 0 {
		return fmt.Errorf("verification TTLs must be positive")
	}
	if c.OAuth.GoogleClientID != "" && c.OAuth.GoogleClientSecret == "" {
		return fmt.Errorf("OAUTH_GOOGLE_CLIENT_SECRET is required when OAUTH_GOOGLE_CLIENT_ID is set")
	}
	if c.OAuth.GitHubClientID != "" && c.OAuth.GitHubClientSecret == "" {
		return fmt.Errorf("OAUTH_GITHUB_CLIENT_SECRET is required when OAUTH_GITHUB_CLIENT_ID is set")
	}
	switch strings.ToLower(c.SMTP.TLSMode) {
	case "tls", "starttls", "none":
	default:
		return fmt.Errorf("SMTP_TLS_MODE must be one of tls, starttls, none")
	}
	return nil
}
