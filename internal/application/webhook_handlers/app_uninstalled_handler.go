package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"nebula-shopify-bridge/internal/application"
	"nebula-shopify-bridge/internal/domain"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler removes a shop's stored credentials when the merchant
// uninstalls the app.
type AppUninstalledHandler struct {
	installService *application.InstallService
	logger         zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler.
func NewAppUninstalledHandler(installService *application.InstallService, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		installService: installService,
		logger:         logger,
	}
}

// CanHandle returns true if this handler can process the given topic.
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle processes an app uninstalled webhook event.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var payload struct {
			Domain          string `json:"domain"`
			MyshopifyDomain string `json:"myshopify_domain"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("failed to parse app uninstalled payload: %w", err)
		}
		shopDomain = payload.Domain
		if shopDomain == "" {
			shopDomain = payload.MyshopifyDomain
		}
	}
	if shopDomain == "" {
		return fmt.Errorf("app uninstalled webhook carries no shop domain")
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("Processing app uninstalled webhook")

	return h.installService.Uninstall(ctx, shopDomain)
}
