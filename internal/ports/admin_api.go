package ports

import (
	"context"

	"nebula-shopify-bridge/internal/domain"
)

// AdminAPI defines the Shopify admin operations the application layer needs.
// Implementations validate responses at the boundary and report missing
// fields as domain.ErrMalformedRemoteResponse.
type AdminAPI interface {
	// Authentication
	AuthorizeURL(shop string, scopes []string, redirectURI string, state string) string
	ExchangeToken(ctx context.Context, shop string, code string) (accessToken string, err error)

	// Script tag API
	ListScriptTags(ctx context.Context, shop string, accessToken string) ([]domain.ScriptTag, error)
	CreateScriptTag(ctx context.Context, shop string, accessToken string, tag domain.ScriptTag) (*domain.ScriptTag, error)
	DeleteScriptTag(ctx context.Context, shop string, accessToken string, tagID uint64) error

	// Theme asset API
	ListThemes(ctx context.Context, shop string, accessToken string) ([]domain.Theme, error)
	GetThemeAsset(ctx context.Context, shop string, accessToken string, themeID uint64, key string) (*domain.ThemeAsset, error)
	UpdateThemeAsset(ctx context.Context, shop string, accessToken string, asset domain.ThemeAsset) error

	// Webhook API
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error
}

// AdminClientPool hands out AdminAPI handles keyed by credentials, reusing
// clients across requests.
type AdminClientPool interface {
	GetClient(ctx context.Context, apiKey string, apiSecret string) (AdminAPI, error)
}
