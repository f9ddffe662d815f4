package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"nebula-shopify-bridge/internal/domain"
	"nebula-shopify-bridge/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	apiKey    string
	apiSecret string
	app       goshopify.App
	logger    zerolog.Logger
}

// NewClient creates a new admin API adapter backed by go-shopify.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.AdminAPI {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app:       app,
		logger:    logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	sc, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return sc, nil
}

// AuthorizeURL builds the OAuth authorization URL. Shopify expects scopes
// comma-separated without spaces.
func (c *client) AuthorizeURL(shop string, scopes []string, redirectURI string, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(strings.Join(scopes, ",")),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", classify("exchange token", err)
	}
	return token, nil
}

func (c *client) ListScriptTags(ctx context.Context, shop string, accessToken string) ([]domain.ScriptTag, error) {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	tags, err := sc.ScriptTag.List(ctx, nil)
	if err != nil {
		return nil, classify("list script tags", err)
	}

	result := make([]domain.ScriptTag, 0, len(tags))
	for _, tag := range tags {
		result = append(result, scriptTagToDomain(tag))
	}
	return result, nil
}

func (c *client) CreateScriptTag(ctx context.Context, shop string, accessToken string, tag domain.ScriptTag) (*domain.ScriptTag, error) {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	created, err := sc.ScriptTag.Create(ctx, goshopify.ScriptTag{
		Event: tag.Event,
		Src:   tag.Src,
	})
	if err != nil {
		return nil, classify("create script tag", err)
	}
	if created == nil {
		return nil, fmt.Errorf("create script tag returned no resource: %w", domain.ErrMalformedRemoteResponse)
	}
	out := scriptTagToDomain(*created)
	return &out, nil
}

func (c *client) DeleteScriptTag(ctx context.Context, shop string, accessToken string, tagID uint64) error {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}
	if err := sc.ScriptTag.Delete(ctx, tagID); err != nil {
		return classify("delete script tag", err)
	}
	return nil
}

func (c *client) ListThemes(ctx context.Context, shop string, accessToken string) ([]domain.Theme, error) {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	themes, err := sc.Theme.List(ctx, nil)
	if err != nil {
		return nil, classify("list themes", err)
	}

	result := make([]domain.Theme, 0, len(themes))
	for _, theme := range themes {
		result = append(result, domain.Theme{
			ID:   theme.Id,
			Name: theme.Name,
			Role: theme.Role,
		})
	}
	return result, nil
}

func (c *client) GetThemeAsset(ctx context.Context, shop string, accessToken string, themeID uint64, key string) (*domain.ThemeAsset, error) {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	asset, err := sc.Asset.Get(ctx, themeID, key)
	if err != nil {
		return nil, classify("get theme asset", err)
	}
	if asset == nil || asset.Key == "" {
		return nil, fmt.Errorf("asset %s missing from response: %w", key, domain.ErrMalformedRemoteResponse)
	}
	return &domain.ThemeAsset{
		ThemeID: themeID,
		Key:     asset.Key,
		Value:   asset.Value,
	}, nil
}

func (c *client) UpdateThemeAsset(ctx context.Context, shop string, accessToken string, asset domain.ThemeAsset) error {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}
	_, err = sc.Asset.Update(ctx, asset.ThemeID, goshopify.Asset{
		Key:   asset.Key,
		Value: asset.Value,
	})
	if err != nil {
		return classify("update theme asset", err)
	}
	return nil
}

func (c *client) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error {
	sc, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}
	_, err = sc.Webhook.Create(ctx, goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	})
	if err != nil {
		return classify("create webhook", err)
	}
	return nil
}

func scriptTagToDomain(tag goshopify.ScriptTag) domain.ScriptTag {
	out := domain.ScriptTag{
		ID:    tag.Id,
		Event: tag.Event,
		Src:   tag.Src,
	}
	if tag.CreatedAt != nil {
		out.CreatedAt = *tag.CreatedAt
	}
	if tag.UpdatedAt != nil {
		out.UpdatedAt = *tag.UpdatedAt
	}
	return out
}

// classify maps go-shopify errors onto the domain taxonomy: 401/403 mean the
// capability is unavailable, 429 and 5xx are transient, other API errors pass
// through wrapped, and anything that never reached the API (network, timeout)
// is transient.
func classify(op string, err error) error {
	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.TransientError{Op: op, Err: err}
	}

	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.Status == 401 || respErr.Status == 403:
			return fmt.Errorf("failed to %s: %v: %w", op, err, domain.ErrCapabilityUnavailable)
		case respErr.Status == 429 || respErr.Status >= 500:
			return &domain.TransientError{Op: op, Err: err}
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.TransientError{Op: op, Err: err}
}
