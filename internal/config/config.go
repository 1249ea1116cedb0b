package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Merchant MerchantConfig `koanf:"merchant"`
	Risk     RiskConfig     `koanf:"risk"`
	HPP      HPPConfig      `koanf:"hpp"`
	Events   EventsConfig   `koanf:"events"`
	Worker   WorkerConfig   `koanf:"worker"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type GatewayConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
	RetryBase   int32         `koanf:"retry_base"`
	RetryMax    int32         `koanf:"retry_max"`
}

// MerchantConfig carries the merchant's processor credentials. The app key
// doubles as the signature key for callback verification; selecting the
// wrong one fails closed, so selection is driven only by the live flag.
type MerchantConfig struct {
	AppID            string `koanf:"app_id" validate:"required"`
	AppKeySandbox    string `koanf:"app_key_sandbox"`
	AppKeyProduction string `koanf:"app_key_production"`
	Live             bool   `koanf:"live"`
	Debug            bool   `koanf:"debug"`
}

// AppKey returns the signature key for the configured environment.
func (m MerchantConfig) AppKey() string {
	if m.Live {
		return m.AppKeyProduction
	}
	return m.AppKeySandbox
}

// RiskConfig holds the merchant's AVS/CVN reject sets for the
// post-authorization reversal policy.
type RiskConfig struct {
	AVSRejectCodes []string `koanf:"avs_reject_codes"`
	CVNRejectCodes []string `koanf:"cvn_reject_codes"`
}

type HPPConfig struct {
	CallbackBaseURL   string `koanf:"callback_base_url" validate:"required"`
	CheckoutURL       string `koanf:"checkout_url" validate:"required"`
	OrderReceivedURL  string `koanf:"order_received_url" validate:"required"`
	CountdownSeconds  int    `koanf:"countdown_seconds"`
	StoreLabel        string `koanf:"store_label"`
}

type EventsConfig struct {
	Enabled bool     `koanf:"enabled"`
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	StaleAge  time.Duration `koanf:"stale_age" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("RECONCILER_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "RECONCILER_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
