package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEnvironmentOverridesListenAddr(t *testing.T) {
	t.Setenv(EnvListenAddr, "0.0.0.0:1234")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	assert.Equal(t, "0.0.0.0:1234", cfg.ListenAddr)
}

func TestApplyEnvironmentOverridesOrigins(t *testing.T) {
	t.Setenv(EnvOrigins, "https://a.example, https://b.example")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins)
}

func TestApplyEnvironmentOverridesLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "DEBUG")
	cfg := Defaults()
	ApplyEnvironment(cfg)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvironmentAllowRestart(t *testing.T) {
	t.Setenv(EnvAllowRestart, "false")
	cfg := Defaults()
	cfg.AllowRestart = true
	ApplyEnvironment(cfg)
	assert.False(t, cfg.AllowRestart)
}

func TestParseBoolVariants(t *testing.T) {
	assert.True(t, parseBool("1"))
	assert.True(t, parseBool("TRUE"))
	assert.True(t, parseBool("yes"))
	assert.False(t, parseBool("nope"))
}
