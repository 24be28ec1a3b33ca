package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RJWEB_CONFIG", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "rjweb.db", c.DBPath)
	assert.Equal(t, "admin", c.Admin.Username)
	assert.Equal(t, "admin123", c.Admin.Password)
	assert.Equal(t, "admin@example.com", c.Admin.Email)
	assert.Equal(t, "log", c.Mail.Provider)
	assert.Equal(t, "local", c.Uploads.Backend)
	assert.Equal(t, "static/uploads", c.Uploads.Dir)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rjweb.yaml")
	data := []byte(`
port: "9090"
base_url: https://rjweb.example.com/
mail:
  provider: mailgun
  mailgun_domain: mg.example.com
  mailgun_api_key: key-123
  mailgun_eu: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("RJWEB_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "https://rjweb.example.com", c.BaseURL)
	assert.Equal(t, "mailgun", c.Mail.Provider)
	assert.True(t, c.Mail.MailgunEU)
	// Untouched keys keep their defaults.
	assert.Equal(t, "admin", c.Admin.Username)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rjweb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o600))
	t.Setenv("RJWEB_CONFIG", path)
	t.Setenv("RJWEB_PORT", "7070")
	t.Setenv("RJWEB_ADMIN_PASSWORD", "s3cret")
	t.Setenv("RJWEB_SECURE_COOKIES", "true")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", c.Port)
	assert.Equal(t, "s3cret", c.Admin.Password)
	assert.True(t, c.SecureCookies)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("RJWEB_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad port", func(c *Config) { c.Port = "http" }, false},
		{"postmark without token", func(c *Config) { c.Mail.Provider = "postmark" }, false},
		{"postmark with token", func(c *Config) {
			c.Mail.Provider = "postmark"
			c.Mail.PostmarkToken = "tok"
		}, true},
		{"unknown provider", func(c *Config) { c.Mail.Provider = "smtp" }, false},
		{"s3 without bucket", func(c *Config) { c.Uploads.Backend = "s3" }, false},
		{"s3 complete", func(c *Config) {
			c.Uploads.Backend = "s3"
			c.Uploads.S3Bucket = "uploads"
			c.Uploads.S3PublicBaseURL = "https://cdn.example.com"
		}, true},
		{"unknown backend", func(c *Config) { c.Uploads.Backend = "ftp" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
