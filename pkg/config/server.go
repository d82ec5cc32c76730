package config

import "fmt"

// ServerConfig contains HTTP server settings for browsing recorded runs.
// Roots are the output directories whose files are exposed under /files/.
type ServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	Roots       []string        `yaml:"roots,omitempty" mapstructure:"roots"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
	Auth        AuthConfig      `yaml:"auth,omitempty" mapstructure:"auth"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// AuthConfig configures username/password authentication.
type AuthConfig struct {
	Enabled bool       `yaml:"enabled" mapstructure:"enabled"`
	Users   []AuthUser `yaml:"users,omitempty" mapstructure:"users"`
}

// AuthUser defines a basic auth user from config. The password hash is a
// bcrypt digest.
type AuthUser struct {
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
}

// CorpusConfig contains database connection settings for the run corpus.
type CorpusConfig struct {
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

func (c *CorpusConfig) validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
		return nil
	default:
		return fmt.Errorf("corpus: unknown driver %q (want sqlite or postgres)", c.Driver)
	}
}

func (c *ServerConfig) validate() error {
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("server: rate_limit requests_per_minute must be at least 1, got %d",
			c.RateLimit.RequestsPerMinute)
	}

	if c.Auth.Enabled {
		if len(c.Auth.Users) == 0 {
			return fmt.Errorf("server: auth is enabled but no users are configured")
		}

		for _, u := range c.Auth.Users {
			if u.Username == "" || u.PasswordHash == "" {
				return fmt.Errorf("server: auth users need both username and password_hash")
			}
		}
	}

	return nil
}

// UploadConfig contains S3-compatible storage settings for publishing
// generated datasets.
type UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string `yaml:"acl,omitempty" mapstructure:"acl"`
}
