package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"cashloan-backend/internal/adapter/gateway/mpesa"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort string `mapstructure:"app_port"`

	MySQLHost string `mapstructure:"mysql_host"`
	MySQLPort string `mapstructure:"mysql_port"`
	MySQLDB   string `mapstructure:"mysql_db"`
	MySQLUser string `mapstructure:"mysql_user"`
	MySQLPass string `mapstructure:"mysql_pass"`
	GormLog   string `mapstructure:"gorm_log_level"`

	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`

	IdempTTLSecs int    `mapstructure:"idempotency_ttl_seconds"`
	LockTTLSecs  int    `mapstructure:"lock_ttl_seconds"`
	JWTSecret    string `mapstructure:"jwt_secret"`

	MpesaBaseURL        string `mapstructure:"mpesa_base_url"`
	MpesaConsumerKey    string `mapstructure:"mpesa_consumer_key"`
	MpesaConsumerSecret string `mapstructure:"mpesa_consumer_secret"`
	MpesaShortCode      string `mapstructure:"mpesa_shortcode"`
	MpesaPasskey        string `mapstructure:"mpesa_passkey"`
	MpesaCallbackURL    string `mapstructure:"mpesa_callback_url"`
	MpesaTimeoutSecs    int    `mapstructure:"mpesa_timeout_seconds"`
}

var defaults = map[string]any{
	"app_port":                "8080",
	"mysql_host":              "mysql",
	"mysql_port":              "3306",
	"mysql_db":                "cashloan",
	"mysql_user":              "cashloan",
	"mysql_pass":              "cashloan",
	"gorm_log_level":          "warn",
	"redis_addr":              "redis:6379",
	"redis_db":                0,
	"idempotency_ttl_seconds": 300,
	"lock_ttl_seconds":        30,
	"jwt_secret":              "",
	"mpesa_base_url":          "https://sandbox.safaricom.co.ke",
	"mpesa_consumer_key":      "",
	"mpesa_consumer_secret":   "",
	"mpesa_shortcode":         "",
	"mpesa_passkey":           "",
	"mpesa_callback_url":      "",
	"mpesa_timeout_seconds":   10,
}

// Load reads defaults, then the YAML file named by CONFIG_FILE (if any),
// then environment variables (APP_PORT, MYSQL_HOST, MPESA_PASSKEY, ...).
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.RedisAddr == "" {
		return errors.New("missing REDIS_ADDR")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.IdempTTLSecs <= 0 || c.LockTTLSecs <= 0 {
		return errors.New("IDEMPOTENCY_TTL_SECONDS and LOCK_TTL_SECONDS must be positive")
	}
	// the initiation lock must outlive a token fetch plus an STK request
	if c.LockTTLSecs <= 2*c.MpesaTimeoutSecs {
		return errors.New("LOCK_TTL_SECONDS must be more than twice MPESA_TIMEOUT_SECONDS")
	}
	return c.MpesaConfig().Validate()
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) MpesaConfig() mpesa.Config {
	return mpesa.Config{
		BaseURL:        c.MpesaBaseURL,
		ConsumerKey:    c.MpesaConsumerKey,
		ConsumerSecret: c.MpesaConsumerSecret,
		ShortCode:      c.MpesaShortCode,
		Passkey:        c.MpesaPasskey,
		CallbackURL:    c.MpesaCallbackURL,
		Timeout:        time.Duration(c.MpesaTimeoutSecs) * time.Second,
	}
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) LockTTL() time.Duration { return time.Duration(c.LockTTLSecs) * time.Second }
