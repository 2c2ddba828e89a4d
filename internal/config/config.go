package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DBSource            string `mapstructure:"DB_SOURCE"`
	Port                string `mapstructure:"SERVER_PORT"`
	Env                 string `mapstructure:"ENVIRONMENT"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	LedgerEventExchange string `mapstructure:"LEDGER_EVENT_EXCHANGE"`
	RunMigrations       bool   `mapstructure:"RUN_MIGRATIONS"`
}

// Load reads configuration from the environment, with an optional .env file in path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LEDGER_EVENT_EXCHANGE", "ledger_events")
	v.SetDefault("RUN_MIGRATIONS", true)

	for _, key := range []string{"DB_SOURCE", "SERVER_PORT", "ENVIRONMENT", "RABBITMQ_URL", "LEDGER_EVENT_EXCHANGE", "RUN_MIGRATIONS"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.DBSource = strings.TrimSpace(cfg.DBSource)
	if cfg.DBSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}
	cfg.RabbitMQURL = strings.TrimSpace(cfg.RabbitMQURL)

	return &cfg, nil
}
