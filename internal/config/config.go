package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultDataDir = "data"

	DefaultMediaDir        = "data/media"
	DefaultMediaTTLSeconds = 120
	DefaultMediaMaxBytes   = 10 << 20

	DefaultAuthorityHost        = "zimra.co.zw"
	DefaultMaxAgeMonths         = 3
	DefaultSponsorKeyword       = "UCF"
	DefaultAuthorityUA          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultLookupTimeoutSeconds = 10
	DefaultPremiumMonths        = 1

	DefaultAIBaseURL       = "https://api.openai.com/v1"
	DefaultAIModel         = "gpt-4o-mini"
	DefaultAITimeoutSecs   = 30
	DefaultTipsCron        = "0 10 * * *"
	DefaultTipsTimezone    = "Africa/Harare"
	DefaultServerPort      = 8090
	DefaultSessionIdleHrs  = 24
	DefaultSweepCron       = "0 * * * *"
	DefaultCleanupInterval = 60
)

// Config is the root configuration for the sambot process.
type Config struct {
	Log          LogConfig          `toml:"log"`
	Telegram     TelegramConfig     `toml:"telegram"`
	Data         DataConfig         `toml:"data"`
	Media        MediaConfig        `toml:"media"`
	Verification VerificationConfig `toml:"verification"`
	Premium      PremiumConfig      `toml:"premium"`
	AI           AIConfig           `toml:"ai"`
	Tips         TipsConfig         `toml:"tips"`
	Server       ServerConfig       `toml:"server"`
	Session      SessionConfig      `toml:"session"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TelegramConfig struct {
	Token        string `toml:"token"`
	AdminChatID  int64  `toml:"admin_chat_id"`
	ExpertChatID int64  `toml:"expert_chat_id"`
}

type DataConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

type MediaConfig struct {
	Dir        string `toml:"dir" validate:"required"`
	TTLSeconds int    `toml:"ttl_seconds" validate:"gt=0"`
	MaxBytes   int64  `toml:"max_bytes" validate:"gt=0"`
	UploadURL  string `toml:"upload_url"`
	UploadKey  string `toml:"upload_key"`
}

func (c MediaConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type VerificationConfig struct {
	AuthorityHost        string `toml:"authority_host" validate:"required"`
	MaxAgeMonths         int    `toml:"max_age_months" validate:"gt=0"`
	SponsorKeyword       string `toml:"sponsor_keyword" validate:"required"`
	LookupTimeoutSeconds int    `toml:"lookup_timeout_seconds" validate:"gt=0"`
	UserAgent            string `toml:"user_agent"`
}

func (c VerificationConfig) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutSeconds) * time.Second
}

type PremiumConfig struct {
	DurationMonths int `toml:"duration_months" validate:"gt=0"`
}

type AIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gt=0"`
}

func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type TipsConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

type ServerConfig struct {
	Port              int    `toml:"port" validate:"gt=0,lte=65535"`
	JwtSecret         string `toml:"jwt_secret"`
	AdminPasswordHash string `toml:"admin_password_hash"`
}

type SessionConfig struct {
	MaxIdleHours int    `toml:"max_idle_hours" validate:"gt=0"`
	SweepCron    string `toml:"sweep_cron"`
}

func (c SessionConfig) MaxIdle() time.Duration {
	return time.Duration(c.MaxIdleHours) * time.Hour
}

// Load reads configuration from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Data: DataConfig{
			Dir: DefaultDataDir,
		},
		Media: MediaConfig{
			Dir:        DefaultMediaDir,
			TTLSeconds: DefaultMediaTTLSeconds,
			MaxBytes:   DefaultMediaMaxBytes,
		},
		Verification: VerificationConfig{
			AuthorityHost:        DefaultAuthorityHost,
			MaxAgeMonths:         DefaultMaxAgeMonths,
			SponsorKeyword:       DefaultSponsorKeyword,
			LookupTimeoutSeconds: DefaultLookupTimeoutSeconds,
			UserAgent:            DefaultAuthorityUA,
		},
		Premium: PremiumConfig{
			DurationMonths: DefaultPremiumMonths,
		},
		AI: AIConfig{
			BaseURL:        DefaultAIBaseURL,
			Model:          DefaultAIModel,
			TimeoutSeconds: DefaultAITimeoutSecs,
		},
		Tips: TipsConfig{
			Cron:     DefaultTipsCron,
			Timezone: DefaultTipsTimezone,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Session: SessionConfig{
			MaxIdleHours: DefaultSessionIdleHrs,
			SweepCron:    DefaultSweepCron,
		},
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
