package config

import "time"

// Config holds all engine configuration. It organizes settings into
// logical groups for better maintainability.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" validate:"required"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Local   LocalConfig   `mapstructure:"local" validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging" validate:"required"`
}

// EngineConfig tunes the sync queue and the session flows.
type EngineConfig struct {
	// FlushDelay is the debounce delay between a queued write and the
	// background flush it schedules.
	FlushDelay time.Duration `mapstructure:"flush_delay" validate:"required"`

	// MaxRetries is how many failed flush attempts a queued operation
	// survives before being dropped.
	MaxRetries int `mapstructure:"max_retries" validate:"required,gt=0"`

	// ReviewSessionCap bounds how many due cards one review pass covers.
	ReviewSessionCap int `mapstructure:"review_session_cap" validate:"required,gt=0"`

	// ExamQuestionCap bounds the shuffled exam question pool.
	ExamQuestionCap int `mapstructure:"exam_question_cap" validate:"required,gt=0"`

	// PassThreshold is the minimum voice-match ratio counting as a pass.
	PassThreshold float64 `mapstructure:"pass_threshold" validate:"required,gt=0,lte=1"`

	// ShowTargetText controls whether lesson steps show the
	// target-language text or hide it until the learner has spoken.
	ShowTargetText bool `mapstructure:"show_target_text"`
}

// RemoteConfig locates the remote row store. An empty URL means the
// engine runs in permanent local-only mode.
type RemoteConfig struct {
	DatabaseURL string `mapstructure:"database_url" validate:"omitempty,url"`
}

// LocalConfig locates the device-local store.
type LocalConfig struct {
	// DatabasePath is the SQLite file path; ":memory:" is accepted.
	DatabasePath string `mapstructure:"database_path" validate:"required"`
}

// AuthConfig contains token verification settings.
type AuthConfig struct {
	// TokenSecret is the HMAC secret used to verify host-supplied access
	// tokens. Empty disables token verification (local-only mode).
	TokenSecret string `mapstructure:"token_secret" validate:"omitempty,min=32"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}
