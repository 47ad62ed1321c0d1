// Package config handles configuration for the server, including defaults,
// a JSON overlay, environment variables (.env aware) and command-line flags.
package config

import (
	"os"
	"time"
)

// Backends for avatar storage.
const (
	AvatarBackendLocal = "local"
	AvatarBackendS3    = "s3"
)

// Config holds runtime settings for the gophauth server. It is built once at
// startup and passed explicitly to the components that need it.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - PublicBaseURL: externally visible base URL, used in verification links.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing session JWTs (HS256).
//   - SessionTokenValidityDuration: session token lifetime (23h).
//   - SMTP*: outbound mail settings. Empty SMTPHost logs messages instead.
//   - PublicDir / UploadDir: public root (avatars live in <PublicDir>/avatars)
//     and the temp directory for incoming uploads.
//   - AvatarBackend: "local" or "s3"; S3* fields configure the latter.
type Config struct {
	EndpointAddrHTTP             string        `env:"GOPHAUTH_HTTP_ADDR"`
	PublicBaseURL                string        `env:"GOPHAUTH_PUBLIC_BASE_URL"`
	DatabaseDSN                  string        `env:"GOPHAUTH_DATABASE_DSN"`
	SecretKey                    string        `env:"GOPHAUTH_SECRET_KEY"`
	SessionTokenValidityDuration time.Duration `env:"GOPHAUTH_SESSION_TTL"`
	BcryptCost                   int           `env:"GOPHAUTH_BCRYPT_COST"`

	SMTPHost     string        `env:"GOPHAUTH_SMTP_HOST"`
	SMTPPort     int           `env:"GOPHAUTH_SMTP_PORT"`
	SMTPUser     string        `env:"GOPHAUTH_SMTP_USER"`
	SMTPPassword string        `env:"GOPHAUTH_SMTP_PASSWORD"`
	MailFrom     string        `env:"GOPHAUTH_MAIL_FROM"`
	MailTimeout  time.Duration `env:"GOPHAUTH_MAIL_TIMEOUT"`

	PublicDir      string        `env:"GOPHAUTH_PUBLIC_DIR"`
	UploadDir      string        `env:"GOPHAUTH_UPLOAD_DIR"`
	MaxUploadBytes int64         `env:"GOPHAUTH_MAX_UPLOAD_BYTES"`
	ImageTimeout   time.Duration `env:"GOPHAUTH_IMAGE_TIMEOUT"`
	AvatarBackend  string        `env:"GOPHAUTH_AVATAR_BACKEND"`

	S3RootUser     string `env:"GOPHAUTH_S3_USER"`
	S3RootPassword string `env:"GOPHAUTH_S3_PASSWORD"`
	S3Bucket       string `env:"GOPHAUTH_S3_BUCKET"`
	S3Region       string `env:"GOPHAUTH_S3_REGION"`
	S3BaseEndpoint string `env:"GOPHAUTH_S3_ENDPOINT"`
	S3PublicURL    string `env:"GOPHAUTH_S3_PUBLIC_URL"`

	CORSAllowedOrigins string `env:"GOPHAUTH_CORS_ORIGINS"`
	LogLevel           string `env:"GOPHAUTH_LOG_LEVEL"`
	GinMode            string `env:"GIN_MODE"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":3000"
	c.PublicBaseURL = "http://localhost:3000"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.SessionTokenValidityDuration = 23 * time.Hour
	c.BcryptCost = 10
	c.SMTPHost = ""
	c.SMTPPort = 587
	c.MailFrom = "no-reply@localhost"
	c.MailTimeout = 10 * time.Second
	c.PublicDir = "public"
	c.UploadDir = "tmp"
	c.MaxUploadBytes = 5 << 20
	c.ImageTimeout = 10 * time.Second
	c.AvatarBackend = AvatarBackendLocal
	c.S3Bucket = "avatars"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.CORSAllowedOrigins = "*"
	c.LogLevel = "info"
	c.GinMode = "release"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment, and finally command-line flags.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
