// Package config provides functionality for managing configuration options
// for the development vault server using command-line flags, a JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the config file.
	Config string `json:"-"`

	// JWTSecret signs access tokens.
	JWTSecret string `json:"jwt_secret"`

	// QuotaBytes is the per-user storage limit; 0 means unlimited.
	QuotaBytes int64 `json:"quota_bytes"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// AppTokens lists the client ids allowed to request authorization codes.
	AppTokens []string `json:"app_tokens"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`
}

// ParseArgs builds Options from args (without the program name), the config
// file they point to and the environment read through getenv. Precedence,
// lowest first: defaults, config file, flags given explicitly, environment.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	opts := &Options{}
	var appTokens string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&opts.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&opts.Config, "config", "config.json", "path to config file")
	fs.StringVar(&opts.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&opts.JWTSecret, "s", "", "secret used to sign access tokens")
	fs.Int64Var(&opts.QuotaBytes, "q", 10<<20, "per-user quota in bytes, 0 for unlimited")
	fs.StringVar(&opts.TLSCert, "tls-cert", "", "server certificate (PEM)")
	fs.StringVar(&opts.TLSKey, "tls-key", "", "server private key (PEM)")
	fs.StringVar(&appTokens, "app-tokens", "", "comma-separated list of allowed client ids")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if opts.Config != "" {
		if _, err := os.Stat(opts.Config); err == nil {
			data, err := os.ReadFile(opts.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			var file Options
			if err := json.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
			mergeFile(opts, &file, set)
		}
	}
	if set["app-tokens"] {
		opts.AppTokens = splitList(appTokens)
	}

	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		opts.Port = serverAddress
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		opts.DatabaseDSN = dsn
	}
	if secret := getenv("JWT_SECRET"); secret != "" {
		opts.JWTSecret = secret
	}
	if tokens := getenv("APP_TOKENS"); tokens != "" {
		opts.AppTokens = splitList(tokens)
	}
	if quota := getenv("QUOTA_BYTES"); quota != "" {
		q, err := strconv.ParseInt(quota, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid QUOTA_BYTES: %w", err)
		}
		opts.QuotaBytes = q
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Parse parses os.Args and the environment. It exits on invalid input.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return opts
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

func (o *Options) validate() error {
	if o.JWTSecret == "" {
		return errors.New("jwt secret is required (-s or JWT_SECRET)")
	}
	if o.QuotaBytes < 0 {
		return errors.New("quota must not be negative")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}
	if len(o.AppTokens) == 0 {
		return errors.New("at least one app token is required (-app-tokens or APP_TOKENS)")
	}
	return nil
}

// mergeFile copies values from the config file that no explicit flag set.
func mergeFile(dst, file *Options, set map[string]bool) {
	if file.Port != "" && !set["a"] {
		dst.Port = file.Port
	}
	if file.DatabaseDSN != "" && !set["d"] {
		dst.DatabaseDSN = file.DatabaseDSN
	}
	if file.JWTSecret != "" && !set["s"] {
		dst.JWTSecret = file.JWTSecret
	}
	if file.QuotaBytes != 0 && !set["q"] {
		dst.QuotaBytes = file.QuotaBytes
	}
	if file.TLSCert != "" && !set["tls-cert"] {
		dst.TLSCert = file.TLSCert
	}
	if file.TLSKey != "" && !set["tls-key"] {
		dst.TLSKey = file.TLSKey
	}
	if len(file.AppTokens) > 0 && !set["app-tokens"] {
		dst.AppTokens = file.AppTokens
	}
	if file.LogLevel != "" && !set["log-level"] {
		dst.LogLevel = file.LogLevel
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
