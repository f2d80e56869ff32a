package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// URL returns the connection URL understood by both lib/pq and golang-migrate.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	SecretKey           string `mapstructure:"secret_key"`
	Algorithm           string `mapstructure:"algorithm"`
	AccessTTLMinutes    int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays      int    `mapstructure:"refresh_ttl_days"`
	VerifyMaxAgeMinutes int    `mapstructure:"verify_max_age_minutes"`
	ResetMaxAgeMinutes  int    `mapstructure:"reset_max_age_minutes"`
}

func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTTLMinutes) * time.Minute
}

func (j JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTTLDays) * 24 * time.Hour
}

func (j JWTConfig) VerifyMaxAge() time.Duration {
	return time.Duration(j.VerifyMaxAgeMinutes) * time.Minute
}

func (j JWTConfig) ResetMaxAge() time.Duration {
	return time.Duration(j.ResetMaxAgeMinutes) * time.Minute
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// AdminConfig names the account created at startup so a fresh deployment has
// an administrator. An empty Email disables it.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type PasswordConfig struct {
	BcryptCost int     `mapstructure:"bcrypt_cost"`
	MinEntropy float64 `mapstructure:"min_entropy"`
}

// Config is built once at startup and handed to the components that need it.
// Nothing reads it from package state.
type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	App struct {
		Domain string `mapstructure:"domain"`
	} `mapstructure:"app"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Blacklist struct {
		PurgeIntervalMinutes int `mapstructure:"purge_interval_minutes"`
	} `mapstructure:"blacklist"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Mail     MailConfig     `mapstructure:"mail"`
	Password PasswordConfig `mapstructure:"password"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

var defaults = map[string]interface{}{
	"server.port":                      "8080",
	"app.domain":                       "http://localhost:8080",
	"log.level":                        "info",
	"blacklist.purge_interval_minutes": 60,
	"database.host":                    "localhost",
	"database.port":                    "5432",
	"database.user":                    "postgres",
	"database.password":                "",
	"database.name":                    "books",
	"database.sslmode":                 "disable",
	"database.migrations_path":         "file://db/migrations",
	"redis.host":                       "localhost",
	"redis.port":                       "6379",
	"redis.password":                   "",
	"redis.db":                         0,
	"jwt.secret_key":                   "",
	"jwt.algorithm":                    "HS256",
	"jwt.access_ttl_minutes":           15,
	"jwt.refresh_ttl_days":             7,
	"jwt.verify_max_age_minutes":       60,
	"jwt.reset_max_age_minutes":        60,
	"mail.host":                        "localhost",
	"mail.port":                        587,
	"mail.username":                    "",
	"mail.password":                    "",
	"mail.from":                        "no-reply@localhost",
	"mail.from_name":                   "Books API",
	"password.bcrypt_cost":             12,
	"password.min_entropy":             0,
	"admin.email":                      "",
	"admin.username":                   "admin",
	"admin.password":                   "",
}

// LoadConfig reads config.yml from path if present and overlays environment
// variables (JWT_SECRET_KEY, DATABASE_HOST, ...).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the token service cannot run with.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key must be set")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt.algorithm %q", c.JWT.Algorithm)
	}
	if c.JWT.AccessTTLMinutes <= 0 {
		c.JWT.AccessTTLMinutes = 15
	}
	if c.JWT.RefreshTTLDays <= 0 {
		return errors.New("jwt.refresh_ttl_days must be positive")
	}
	if c.Admin.Email != "" && (c.Admin.Username == "" || c.Admin.Password == "") {
		return errors.New("admin.username and admin.password must be set when admin.email is")
	}
	return nil
}
