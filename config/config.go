package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Path to the sqlite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/pricing.db"`

	// Port for the admin API
	Port string `env:"PORT" envDefault:"8080"`

	// Logging level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Pricing configuration
	Pricing struct {
		// Interval between full-catalog repricing runs (in seconds)
		RunInterval int `env:"PRICING_RUN_INTERVAL" envDefault:"3600"`

		// Number of concurrent repricing workers
		WorkerCount int `env:"PRICING_WORKER_COUNT" envDefault:"4"`

		// Buffer size of the on-demand reprice queue
		QueueSize int `env:"PRICING_QUEUE_SIZE" envDefault:"64"`

		// Defaults used when no pricing config row exists yet
		CooldownHours        int     `env:"PRICING_COOLDOWN_HOURS" envDefault:"24"`
		ElasticityCapPercent float64 `env:"PRICING_ELASTICITY_CAP" envDefault:"3.0"`
		MaxShiftPercent      float64 `env:"PRICING_MAX_SHIFT" envDefault:"7.0"`
	}

	// Analytics configuration
	Analytics struct {
		// Interval between demand snapshot refreshes (in seconds)
		RefreshInterval int `env:"STATS_REFRESH_INTERVAL" envDefault:"60"`

		// Rolling window for the view/lead/booking counters (in hours)
		WindowHours int `env:"STATS_WINDOW_HOURS" envDefault:"24"`
	}

	// Telegram notification configuration (disabled when token or chat is empty)
	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
	}
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine, real environments set variables directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
