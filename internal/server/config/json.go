package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk JSON shape. Durations accept "23h" style strings
// or integer nanoseconds. Only non-zero values override the target Config.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	PublicBaseURL                string         `json:"public_base_url"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	MailFrom                     string         `json:"mail_from"`
	MailTimeout                  timex.Duration `json:"mail_timeout"`
	PublicDir                    string         `json:"public_dir"`
	UploadDir                    string         `json:"upload_dir"`
	MaxUploadBytes               int64          `json:"max_upload_bytes"`
	ImageTimeout                 timex.Duration `json:"image_timeout"`
	AvatarBackend                string         `json:"avatar_backend"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PublicURL                  string         `json:"s3_public_url"`
	CORSAllowedOrigins           string         `json:"cors_allowed_origins"`
	LogLevel                     string         `json:"log_level"`
	GinMode                      string         `json:"gin_mode"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $GOPHAUTH_CONFIG). Nothing happens when no file is named. A file that
// cannot be read or parsed panics, like a bad flag does.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFilePath(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	if c.MailTimeout.Duration != 0 {
		config.MailTimeout = c.MailTimeout.Duration
	}
	setString(&config.PublicDir, c.PublicDir)
	setString(&config.UploadDir, c.UploadDir)
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.ImageTimeout.Duration != 0 {
		config.ImageTimeout = c.ImageTimeout.Duration
	}
	setString(&config.AvatarBackend, c.AvatarBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.CORSAllowedOrigins, c.CORSAllowedOrigins)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.GinMode, c.GinMode)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
