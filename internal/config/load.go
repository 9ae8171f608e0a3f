package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config.yaml in the working
// directory and from environment variables with the PARLO_ prefix.
// Environment variables take precedence over file values. Returns a
// populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("engine.flush_delay", "2s")
	v.SetDefault("engine.max_retries", 5)
	v.SetDefault("engine.review_session_cap", 15)
	v.SetDefault("engine.exam_question_cap", 20)
	v.SetDefault("engine.pass_threshold", 0.8)
	v.SetDefault("engine.show_target_text", true)
	v.SetDefault("remote.database_url", "")
	v.SetDefault("local.database_path", "parlo.db")
	v.SetDefault("auth.token_secret", "")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No file is fine; defaults and environment cover everything.
	}

	v.SetEnvPrefix("PARLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
