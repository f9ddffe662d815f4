package config

import (
	"fmt"
	"os"
	"strings"

	"nebula-shopify-bridge/internal/domain"
)

// Config carries everything the process reads from the environment. It is
// built once in main and passed into constructors; nothing reads the
// environment after startup.
type Config struct {
	Port          string
	AppURL        string // public base URL of this app
	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	ShopifyAPIKey    string
	ShopifyAPISecret string
	Scopes           []string
	CustomShopDomain string // optional custom shop domain accepted in OAuth

	// AgentAPIURL is the base URL of the agent-commerce API that receives the
	// post-install credential hand-off and serves the discovery document.
	AgentAPIURL string

	EncryptionKey string

	Strategy domain.InjectStrategy
}

// FromEnv builds a Config from environment variables, applying the same
// defaults for local development the service always shipped with.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		AppURL:        getenv("APP_URL", "http://localhost:8080"),
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGODB_DATABASE", "nebula"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),

		ShopifyAPIKey:    os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret: os.Getenv("SHOPIFY_API_SECRET"),
		CustomShopDomain: os.Getenv("SHOP_CUSTOM_DOMAIN"),

		AgentAPIURL:   strings.TrimSuffix(os.Getenv("AGENT_API_URL"), "/"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),

		Strategy: domain.InjectStrategy(getenv("INJECT_STRATEGY", string(domain.StrategyScriptTag))),
	}

	scopes := getenv("SCOPES", "write_script_tags,read_themes,write_themes")
	cfg.Scopes = strings.Split(scopes, ",")

	if cfg.ShopifyAPIKey == "" || cfg.ShopifyAPISecret == "" {
		return cfg, fmt.Errorf("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}
	if cfg.EncryptionKey == "" {
		return cfg, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if cfg.Strategy != domain.StrategyScriptTag && cfg.Strategy != domain.StrategyThemeAsset {
		return cfg, fmt.Errorf("INJECT_STRATEGY must be %q or %q, got %q",
			domain.StrategyScriptTag, domain.StrategyThemeAsset, cfg.Strategy)
	}

	return cfg, nil
}

// InjectorScriptURL is the canonical src of the discovery script tag.
func (c Config) InjectorScriptURL() string {
	return strings.TrimSuffix(c.AppURL, "/") + "/inject-agent-link.js"
}

// DiscoveryHref is the shop-parameterized discovery document URL the injected
// link points at.
func (c Config) DiscoveryHref(shop string) string {
	return c.AgentAPIURL + "/agent-api/.well-known/agent-commerce-openapi.json?shop=" + shop
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
