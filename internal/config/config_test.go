package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "financebot.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "https://app.pixpoc.ai", cfg.Pixpoc.BaseURL)
	assert.Equal(t, 30, cfg.Pixpoc.TimeoutSecs)
	assert.Equal(t, "+91", cfg.Pixpoc.DefaultCountryCode)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(8192), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "comprehensive_planning", cfg.Agent.ReportType)
	assert.False(t, cfg.Agent.AllowDemoFallback)
	assert.Equal(t, "./reports", cfg.Reports.Dir)
	assert.Equal(t, 24, cfg.Auth.TokenTTLHrs)
	assert.Equal(t, "222222", cfg.Auth.DemoOTP)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FINANCEBOT_STORE_DRIVER", "postgres")
	t.Setenv("FINANCEBOT_SERVER_PORT", "9090")
	t.Setenv("FINANCEBOT_AGENT_ALLOW_DEMO_FALLBACK", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Agent.AllowDemoFallback)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
}
