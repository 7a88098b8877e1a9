package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Client  ClientConfig  `mapstructure:"client"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	PublicURL      string   `mapstructure:"public_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustProxy enables X-Forwarded-For/X-Real-IP handling. Only set it when
	// a reverse proxy in front of the server overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SessionConfig drives the client-side inactivity tracker.
type SessionConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	WarningTime time.Duration `mapstructure:"warning_time"`
	WarningPoll time.Duration `mapstructure:"warning_poll"`
	ExpiryPoll  time.Duration `mapstructure:"expiry_poll"`
}

type AuditConfig struct {
	IPEchoURL string        `mapstructure:"ip_echo_url"`
	GeoIPURL  string        `mapstructure:"geoip_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ClientConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	StateDir  string `mapstructure:"state_dir"`
	UserAgent string `mapstructure:"user_agent"`
	Referrer  string `mapstructure:"referrer"`
}

var (
	ErrMissingJWTSecret = errors.New("jwt.secret must be set (JWT_SECRET)")
	ErrMissingDBSource  = errors.New("db.source must be set (DB_SOURCE)")
)

// ValidateServer checks the settings parcel-server cannot run without. The
// CLI never signs tokens and does not need them.
func (c *Config) ValidateServer() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if strings.TrimSpace(c.DB.Source) == "" {
		errs = append(errs, ErrMissingDBSource)
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// keys without a default are invisible to Unmarshal when only set through env
	v.SetDefault("db.source", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 24*time.Hour)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("session.timeout", 30*time.Minute)
	v.SetDefault("session.warning_time", 5*time.Minute)
	v.SetDefault("session.warning_poll", 30*time.Second)
	v.SetDefault("session.expiry_poll", 60*time.Second)

	v.SetDefault("audit.ip_echo_url", "https://api.ipify.org?format=json")
	v.SetDefault("audit.geoip_url", "https://ipapi.co")
	v.SetDefault("audit.timeout", 3*time.Second)

	v.SetDefault("client.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("client.state_dir", ".parcelctl")
	v.SetDefault("client.user_agent", "parcelctl/1.0 (Linux)")
	v.SetDefault("client.referrer", "")
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AddConfigPath("./configs")
	v.AddConfigPath("/configs")
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
