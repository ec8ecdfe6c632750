// Package config loads the service configuration shared by kernel based
// services: a YAML file with defaults, overridden by KERNEL_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KERNEL_"

// Config holds the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	APIDocs  APIDocsConfig  `yaml:"apiDocs"`
}

// ServerConfig holds listener settings. The gRPC listener is off while
// GRPCAddr is empty.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	GRPCAddr          string        `yaml:"grpcAddr"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	CorrelationHeader string        `yaml:"correlationHeader"`
	EchoCorrelation   bool          `yaml:"echoCorrelation"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig holds MySQL connection settings. DSN, when set, wins over
// the individual fields.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

// AuthConfig holds token verification settings. Keys come from JWKSURL,
// from HMACSecret or, when both are empty, from the jwks_uri advertised in
// the OpenID configuration of Issuer. JWKSURL and HMACSecret are mutually
// exclusive.
type AuthConfig struct {
	JWKSURL             string        `yaml:"jwksUrl"`
	HMACSecret          string        `yaml:"hmacSecret"`
	Issuer              string        `yaml:"issuer"`
	Audience            string        `yaml:"audience"`
	Leeway              time.Duration `yaml:"leeway"`
	TenantClaim         string        `yaml:"tenantClaim"`
	CredentialsOptional bool          `yaml:"credentialsOptional"`
	ExcludedPaths       []string      `yaml:"excludedPaths"`
}

// APIDocsConfig describes the published API document.
type APIDocsConfig struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Version      string `yaml:"version"`
	ContactName  string `yaml:"contactName"`
	ContactEmail string `yaml:"contactEmail"`
	ContactURL   string `yaml:"contactUrl"`
}

// Default returns the configuration used for every value the file and the
// environment leave unset.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CorrelationHeader: "X-Correlation-ID",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            3306,
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 10 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Auth: AuthConfig{
			TenantClaim:   "tenant_id",
			Leeway:        30 * time.Second,
			ExcludedPaths: []string{"/health", "/v3/api-docs", "/swagger-ui/"},
		},
		APIDocs: APIDocsConfig{
			Title:        "OmniPulse API",
			Description:  "Default API Description",
			Version:      "1.0.0",
			ContactName:  "OmniPulse Team",
			ContactEmail: "tech@omnipulse.com",
			ContactURL:   "https://omnipulse.com",
		},
	}
}

// Load reads path (optional), applies environment overrides and validates
// the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_ADDR", &c.Server.Addr)
	str("SERVER_GRPC_ADDR", &c.Server.GRPCAddr)
	dur("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	boolean("SERVER_ECHO_CORRELATION", &c.Server.EchoCorrelation)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("DATABASE_DSN", &c.Database.DSN)
	str("DATABASE_HOST", &c.Database.Host)
	str("DATABASE_USER", &c.Database.User)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("DATABASE_NAME", &c.Database.Name)
	str("AUTH_JWKS_URL", &c.Auth.JWKSURL)
	str("AUTH_HMAC_SECRET", &c.Auth.HMACSecret)
	str("AUTH_ISSUER", &c.Auth.Issuer)
	str("AUTH_AUDIENCE", &c.Auth.Audience)
	dur("AUTH_LEEWAY", &c.Auth.Leeway)
	boolean("AUTH_CREDENTIALS_OPTIONAL", &c.Auth.CredentialsOptional)

	return errors.Join(errs...)
}

// Validate reports every invalid value.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.CorrelationHeader == "" {
		errs = append(errs, errors.New("server.correlationHeader is required"))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("database connection limits cannot be negative"))
	}

	switch {
	case c.Auth.JWKSURL == "" && c.Auth.HMACSecret == "" && c.Auth.Issuer == "":
		errs = append(errs, errors.New("auth: one of jwksUrl, hmacSecret or issuer is required"))
	case c.Auth.JWKSURL != "" && c.Auth.HMACSecret != "":
		errs = append(errs, errors.New("auth: jwksUrl and hmacSecret are mutually exclusive"))
	case c.Auth.HMACSecret != "" && len(c.Auth.HMACSecret) < 32:
		errs = append(errs, errors.New("auth.hmacSecret must be at least 32 bytes"))
	}
	if c.Auth.TenantClaim == "" {
		errs = append(errs, errors.New("auth.tenantClaim is required"))
	}

	return errors.Join(errs...)
}

// DataSourceName returns the MySQL DSN.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}

	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Timeout = 5 * time.Second
	cfg.ReadTimeout = 30 * time.Second
	cfg.WriteTimeout = 30 * time.Second
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
