package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values are layered: defaults,
// then the YAML file named by RJWEB_CONFIG (if any), then RJWEB_* env vars.
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	BaseURL   string `yaml:"base_url"`
	SiteName  string `yaml:"site_name"`

	// SecureCookies sets the Secure flag on session and flash cookies.
	SecureCookies bool `yaml:"secure_cookies"`

	Admin   AdminConfig   `yaml:"admin"`
	Mail    MailConfig    `yaml:"mail"`
	Uploads UploadsConfig `yaml:"uploads"`
}

// AdminConfig holds the bootstrap account created on first run.
type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type MailConfig struct {
	Provider  string `yaml:"provider"` // postmark, mailgun or log
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`

	PostmarkToken string `yaml:"postmark_token"`

	MailgunDomain string `yaml:"mailgun_domain"`
	MailgunAPIKey string `yaml:"mailgun_api_key"`
	MailgunEU     bool   `yaml:"mailgun_eu"`
}

type UploadsConfig struct {
	Backend string `yaml:"backend"` // local or s3
	Dir     string `yaml:"dir"`

	S3Endpoint      string `yaml:"s3_endpoint"`
	S3Region        string `yaml:"s3_region"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3AccessKey     string `yaml:"s3_access_key"`
	S3SecretKey     string `yaml:"s3_secret_key"`
	S3PublicBaseURL string `yaml:"s3_public_base_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:      "8080",
		DBPath:    "rjweb.db",
		LogLevel:  "info",
		LogFormat: "text",
		BaseURL:   "http://localhost:8080",
		SiteName:  "RJ Web Services",
		Admin: AdminConfig{
			Username: "admin",
			Email:    "admin@example.com",
			Password: "admin123",
		},
		Mail: MailConfig{
			Provider:  "log",
			FromEmail: "noreply@example.com",
			FromName:  "RJ Web Services",
		},
		Uploads: UploadsConfig{
			Backend:  "local",
			Dir:      "static/uploads",
			S3Region: "us-east-1",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("RJWEB_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("RJWEB_PORT", c.Port)
	c.DBPath = getEnv("RJWEB_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("RJWEB_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("RJWEB_LOG_FORMAT", c.LogFormat)
	c.BaseURL = getEnv("RJWEB_BASE_URL", c.BaseURL)
	c.SiteName = getEnv("RJWEB_SITE_NAME", c.SiteName)
	c.SecureCookies = getEnvBool("RJWEB_SECURE_COOKIES", c.SecureCookies)

	c.Admin.Username = getEnv("RJWEB_ADMIN_USERNAME", c.Admin.Username)
	c.Admin.Email = getEnv("RJWEB_ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Password = getEnv("RJWEB_ADMIN_PASSWORD", c.Admin.Password)

	c.Mail.Provider = getEnv("RJWEB_MAIL_PROVIDER", c.Mail.Provider)
	c.Mail.FromEmail = getEnv("RJWEB_MAIL_FROM_EMAIL", c.Mail.FromEmail)
	c.Mail.FromName = getEnv("RJWEB_MAIL_FROM_NAME", c.Mail.FromName)
	c.Mail.PostmarkToken = getEnv("RJWEB_POSTMARK_TOKEN", c.Mail.PostmarkToken)
	c.Mail.MailgunDomain = getEnv("RJWEB_MAILGUN_DOMAIN", c.Mail.MailgunDomain)
	c.Mail.MailgunAPIKey = getEnv("RJWEB_MAILGUN_API_KEY", c.Mail.MailgunAPIKey)
	c.Mail.MailgunEU = getEnvBool("RJWEB_MAILGUN_EU", c.Mail.MailgunEU)

	c.Uploads.Backend = getEnv("RJWEB_UPLOADS_BACKEND", c.Uploads.Backend)
	c.Uploads.Dir = getEnv("RJWEB_UPLOADS_DIR", c.Uploads.Dir)
	c.Uploads.S3Endpoint = getEnv("RJWEB_S3_ENDPOINT", c.Uploads.S3Endpoint)
	c.Uploads.S3Region = getEnv("RJWEB_S3_REGION", c.Uploads.S3Region)
	c.Uploads.S3Bucket = getEnv("RJWEB_S3_BUCKET", c.Uploads.S3Bucket)
	c.Uploads.S3AccessKey = getEnv("RJWEB_S3_ACCESS_KEY", c.Uploads.S3AccessKey)
	c.Uploads.S3SecretKey = getEnv("RJWEB_S3_SECRET_KEY", c.Uploads.S3SecretKey)
	c.Uploads.S3PublicBaseURL = getEnv("RJWEB_S3_PUBLIC_BASE_URL", c.Uploads.S3PublicBaseURL)
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	switch c.Mail.Provider {
	case "log":
	case "postmark":
		if c.Mail.PostmarkToken == "" {
			return errors.New("mail provider postmark requires a postmark token")
		}
	case "mailgun":
		if c.Mail.MailgunDomain == "" || c.Mail.MailgunAPIKey == "" {
			return errors.New("mail provider mailgun requires domain and api key")
		}
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}

	switch c.Uploads.Backend {
	case "local":
	case "s3":
		if c.Uploads.S3Bucket == "" || c.Uploads.S3PublicBaseURL == "" {
			return errors.New("uploads backend s3 requires bucket and public base url")
		}
	default:
		return fmt.Errorf("unknown uploads backend %q", c.Uploads.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
