package config

import (
	"testing"

	"nebula-shopify-bridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SHOPIFY_API_KEY", "key")
	t.Setenv("SHOPIFY_API_SECRET", "secret")
	t.Setenv("ENCRYPTION_KEY", "enc-key")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.AppURL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "nebula", cfg.MongoDatabase)
	assert.Equal(t, []string{"write_script_tags", "read_themes", "write_themes"}, cfg.Scopes)
	assert.Equal(t, domain.StrategyScriptTag, cfg.Strategy)
}

func TestFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", "")
	t.Setenv("SHOPIFY_API_SECRET", "")
	t.Setenv("ENCRYPTION_KEY", "enc-key")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPIFY_API_KEY")
}

func TestFromEnvRequiresEncryptionKey(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", "key")
	t.Setenv("SHOPIFY_API_SECRET", "secret")
	t.Setenv("ENCRYPTION_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
}

func TestFromEnvRejectsUnknownStrategy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INJECT_STRATEGY", "iframe")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INJECT_STRATEGY")
}

func TestFromEnvTrimsAgentAPIURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AGENT_API_URL", "https://agent.example/")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://agent.example", cfg.AgentAPIURL)
}

func TestInjectorScriptURL(t *testing.T) {
	cfg := Config{AppURL: "https://app.example/"}
	assert.Equal(t, "https://app.example/inject-agent-link.js", cfg.InjectorScriptURL())
}

func TestDiscoveryHref(t *testing.T) {
	cfg := Config{AgentAPIURL: "https://agent.example"}
	assert.Equal(t,
		"https://agent.example/agent-api/.well-known/agent-commerce-openapi.json?shop=acme.myshopify.com",
		cfg.DiscoveryHref("acme.myshopify.com"))
}
