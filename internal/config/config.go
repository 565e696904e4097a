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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Pixpoc    PixpocConfig    `yaml:"pixpoc" mapstructure:"pixpoc"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Reports   ReportsConfig   `yaml:"reports" mapstructure:"reports"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// PixpocConfig holds calling-platform API settings.
type PixpocConfig struct {
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey             string  `yaml:"api_key" mapstructure:"api_key"`
	AgentID            string  `yaml:"agent_id" mapstructure:"agent_id"`
	FromNumberID       string  `yaml:"from_number_id" mapstructure:"from_number_id"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	DefaultCountryCode string  `yaml:"default_country_code" mapstructure:"default_country_code"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AgentConfig configures the report-generation collaborator.
type AgentConfig struct {
	// ReportType selects the planning agent run after each call.
	ReportType string `yaml:"report_type" mapstructure:"report_type"`
	// AllowDemoFallback permits a canned report when no Anthropic key is
	// configured. A live API failure is never masked by the fallback.
	AllowDemoFallback bool `yaml:"allow_demo_fallback" mapstructure:"allow_demo_fallback"`
}

// ReportsConfig configures report artifact storage.
type ReportsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AuthConfig configures OTP login and session tokens.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTLHrs int    `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
	// DemoOTP is accepted for any phone number. SMS delivery is not part of
	// this service.
	DemoOTP string `yaml:"demo_otp" mapstructure:"demo_otp"`
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
	v.SetEnvPrefix("FINANCEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "financebot.db")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("pixpoc.base_url", "https://app.pixpoc.ai")
	v.SetDefault("pixpoc.timeout_secs", 30)
	v.SetDefault("pixpoc.requests_per_second", 5)
	v.SetDefault("pixpoc.default_country_code", "+91")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("agent.report_type", "comprehensive_planning")
	v.SetDefault("agent.allow_demo_fallback", false)
	v.SetDefault("reports.dir", "./reports")
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.demo_otp", "222222")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
