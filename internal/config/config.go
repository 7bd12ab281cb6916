// Package config loads server settings from flags, SISO_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SISO"

type Config struct {
	Addr            string        `mapstructure:"addr"`
	DBDriver        string        `mapstructure:"db-driver"`
	DBDSN           string        `mapstructure:"db-dsn"`
	DBName          string        `mapstructure:"db-name"`
	Passphrase      string        `mapstructure:"passphrase"`
	Cipher          string        `mapstructure:"cipher"`
	AdminCode       string        `mapstructure:"admin-code"`
	RateLimitRPM    int           `mapstructure:"rate-limit-rpm"`
	RateLimitBurst  int           `mapstructure:"rate-limit-burst"`
	TrustedProxies  []string      `mapstructure:"trusted-proxies"`
	StaticDir       string        `mapstructure:"static-dir"`
	LogLevel        string        `mapstructure:"log-level"`
	LogFormat       string        `mapstructure:"log-format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

// Load parses args (without the program name) and merges in the environment
// and config file. Flags win over environment, which wins over the file.
func Load(args []string) (*Config, error) {
	v := viper.New()
	fs := pflag.NewFlagSet("siso", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "Usage of siso:")
			fs.SetOutput(os.Stderr)
			fs.PrintDefaults()
		}
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// ADMIN_CODE predates the SISO_ prefix.
	v.BindEnv("admin-code", envPrefix+"_ADMIN_CODE", "ADMIN_CODE")

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file (yaml, toml, json, ...)")
	fs.String("addr", ":3000", "HTTP listen address")
	fs.String("db-driver", "sqlite3", "Storage backend: sqlite3, postgres or mongo")
	fs.String("db-dsn", "siso.db", "Data source name or MongoDB URI")
	fs.String("db-name", "siso", "Database name (mongo only)")
	fs.String("passphrase", "siso-super-secret-key", "Passphrase the message key is derived from")
	fs.String("cipher", "aes-256-gcm", "Message cipher: aes-256-gcm or xchacha20-poly1305")
	fs.String("admin-code", "changeme-admin", "Admin stats code, plain or bcrypt hash")
	fs.Int("rate-limit-rpm", 120, "Write requests allowed per client per minute")
	fs.Int("rate-limit-burst", 20, "Write request burst per client")
	fs.StringSlice("trusted-proxies", nil, "Proxy addresses or CIDRs whose X-Forwarded-For is believed")
	fs.String("static-dir", "public", "Directory served at /")
	fs.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
	fs.Duration("shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres", "mongo":
	default:
		return fmt.Errorf("unsupported db-driver %q", c.DBDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log-format %q", c.LogFormat)
	}
	if c.Passphrase == "" {
		return errors.New("passphrase must not be empty")
	}
	if c.RateLimitRPM <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limits must be positive")
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", p)
		}
	}
	return nil
}

// Logger builds the process logger from the log settings.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
