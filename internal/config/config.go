// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Listings ListingsConfig `yaml:"listings" mapstructure:"listings"`
	Imagery  ImageryConfig  `yaml:"imagery" mapstructure:"imagery"`
	Vision   VisionConfig   `yaml:"vision" mapstructure:"vision"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Invest   InvestConfig   `yaml:"invest" mapstructure:"invest"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ListingsConfig holds the listings provider credentials and limits.
type ListingsConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// ImageryConfig holds the static-map provider settings.
type ImageryConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// VisionConfig holds credentials for the ranked vision providers.
type VisionConfig struct {
	AnthropicKey   string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	AnthropicModel string `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	OpenAIKey      string `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIModel    string `yaml:"openai_model" mapstructure:"openai_model"`
	GeminiKey      string `yaml:"gemini_key" mapstructure:"gemini_key"`
	GeminiModel    string `yaml:"gemini_model" mapstructure:"gemini_model"`
}

// CacheConfig configures the in-memory validation cache.
type CacheConfig struct {
	SweepIntervalSecs int `yaml:"sweep_interval_secs" mapstructure:"sweep_interval_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// InvestConfig holds default financing assumptions for investment analysis.
type InvestConfig struct {
	DownPaymentPct  float64 `yaml:"down_payment_pct" mapstructure:"down_payment_pct"`
	InterestRatePct float64 `yaml:"interest_rate_pct" mapstructure:"interest_rate_pct"`
	LoanTermYears   int     `yaml:"loan_term_years" mapstructure:"loan_term_years"`
	VacancyRatePct  float64 `yaml:"vacancy_rate_pct" mapstructure:"vacancy_rate_pct"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("listings.rate_limit_rps", 5)
	v.SetDefault("cache.sweep_interval_secs", 60)

	// Credentials default empty so AutomaticEnv can bind them.
	v.SetDefault("listings.key", "")
	v.SetDefault("listings.base_url", "")
	v.SetDefault("imagery.key", "")
	v.SetDefault("imagery.base_url", "")
	v.SetDefault("vision.anthropic_key", "")
	v.SetDefault("vision.openai_key", "")
	v.SetDefault("vision.gemini_key", "")

	v.SetDefault("vision.anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("vision.openai_model", "gpt-4o")
	v.SetDefault("vision.gemini_model", "gemini-2.0-flash")
	v.SetDefault("invest.down_payment_pct", 20)
	v.SetDefault("invest.interest_rate_pct", 6.5)
	v.SetDefault("invest.loan_term_years", 30)
	v.SetDefault("invest.vacancy_rate_pct", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
