package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP_PORT       string
	DB_STRING       string
	REQUEST_TIMEOUT time.Duration
	LOG_FORMAT      string

	REDIS_ADDR     string
	REDIS_PASSWORD string
	CACHE_TTL      time.Duration

	KAFKA_BROKERS  string
	KAFKA_TOPIC    string
	KAFKA_GROUP_ID string

	RAZORPAY_KEY_ID     string
	RAZORPAY_KEY_SECRET string
	SANDBOX_SECRET      string
	CURRENCY            string
	PLATFORM_FEE        float64

	ADMIN_JWT_SECRET    string
	ORDER_STATUS_POLICY string

	SMTP_HOST       string
	SMTP_PORT       int
	SMTP_USER       string
	SMTP_PASS       string
	EMAIL_FROM_NAME string
	BRAND_NAME      string
	BRAND_WEBSITE   string
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SANDBOX_SECRET", "sandbox-secret")
	v.SetDefault("CACHE_TTL", "15m")
	v.SetDefault("KAFKA_TOPIC", "order-status")
	v.SetDefault("KAFKA_GROUP_ID", "order-notifier")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("PLATFORM_FEE", 7)
	v.SetDefault("ORDER_STATUS_POLICY", "permissive")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_FROM_NAME", "JLRP Brand World")
	v.SetDefault("BRAND_NAME", "JLRP Brand World")
	v.SetDefault("BRAND_WEBSITE", "https://example.com")
}

// LoadConfig reads the environment and, when CONFIG_FILE is set, a config file
// whose keys use the same names. Environment values win over the file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTP_PORT:           v.GetString("HTTP_PORT"),
		DB_STRING:           v.GetString("DB_STRING"),
		REQUEST_TIMEOUT:     v.GetDuration("REQUEST_TIMEOUT"),
		LOG_FORMAT:          strings.ToLower(v.GetString("LOG_FORMAT")),
		REDIS_ADDR:          v.GetString("REDIS_ADDR"),
		REDIS_PASSWORD:      v.GetString("REDIS_PASSWORD"),
		CACHE_TTL:           v.GetDuration("CACHE_TTL"),
		KAFKA_BROKERS:       v.GetString("KAFKA_BROKERS"),
		KAFKA_TOPIC:         v.GetString("KAFKA_TOPIC"),
		KAFKA_GROUP_ID:      v.GetString("KAFKA_GROUP_ID"),
		RAZORPAY_KEY_ID:     v.GetString("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET: v.GetString("RAZORPAY_KEY_SECRET"),
		SANDBOX_SECRET:      v.GetString("SANDBOX_SECRET"),
		CURRENCY:            strings.ToUpper(v.GetString("CURRENCY")),
		PLATFORM_FEE:        v.GetFloat64("PLATFORM_FEE"),
		ADMIN_JWT_SECRET:    v.GetString("ADMIN_JWT_SECRET"),
		ORDER_STATUS_POLICY: strings.ToLower(v.GetString("ORDER_STATUS_POLICY")),
		SMTP_HOST:           v.GetString("SMTP_HOST"),
		SMTP_PORT:           v.GetInt("SMTP_PORT"),
		SMTP_USER:           v.GetString("SMTP_USER"),
		SMTP_PASS:           v.GetString("SMTP_PASS"),
		EMAIL_FROM_NAME:     v.GetString("EMAIL_FROM_NAME"),
		BRAND_NAME:          v.GetString("BRAND_NAME"),
		BRAND_WEBSITE:       v.GetString("BRAND_WEBSITE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PLATFORM_FEE < 0 {
		return errors.New("PLATFORM_FEE must not be negative")
	}
	if c.ORDER_STATUS_POLICY != "permissive" && c.ORDER_STATUS_POLICY != "strict" {
		return fmt.Errorf("ORDER_STATUS_POLICY must be permissive or strict, got %q", c.ORDER_STATUS_POLICY)
	}
	if c.REQUEST_TIMEOUT <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.ADMIN_JWT_SECRET == "" {
		return errors.New("ADMIN_JWT_SECRET is required")
	}
	return nil
}

// SandboxPayments reports whether gateway credentials are missing and the
// local sandbox gateway must be used instead.
func (c *Config) SandboxPayments() bool {
	return c.RAZORPAY_KEY_ID == "" || c.RAZORPAY_KEY_SECRET == ""
}
