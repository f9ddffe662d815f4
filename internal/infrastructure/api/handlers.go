package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"nebula-shopify-bridge/internal/application"
	"nebula-shopify-bridge/internal/config"
	"nebula-shopify-bridge/internal/domain"
	"nebula-shopify-bridge/internal/infrastructure/shopify"
	"nebula-shopify-bridge/internal/webassets"

	"github.com/rs/zerolog"
)

// SetupResponse is the JSON body of the manual setup endpoints.
type SetupResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ScriptTagID string `json:"scriptTagId,omitempty"`
}

// Handlers exposes the HTTP surface around the install service: manual
// reconcile triggers, the injector script, and the webhook receiver.
type Handlers struct {
	cfg            config.Config
	installService *application.InstallService
	dispatcher     *application.WebhookDispatcher
	verifier       *shopify.WebhookVerifier
	injectorScript string
	logger         zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	cfg config.Config,
	installService *application.InstallService,
	dispatcher *application.WebhookDispatcher,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		cfg:            cfg,
		installService: installService,
		dispatcher:     dispatcher,
		verifier:       shopify.NewWebhookVerifier(cfg.ShopifyAPISecret),
		injectorScript: webassets.InjectorScript(cfg.AgentAPIURL),
		logger:         logger,
	}
}

// HandleSetupScript re-runs reconciliation for the shop in the query string.
// Accepts GET and POST so it can be hit from a browser while debugging.
func (h *Handlers) HandleSetupScript(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeSetupResponse(w, http.StatusBadRequest, SetupResponse{
			Success: false,
			Message: "shop parameter is required",
		})
		return
	}

	h.logger.Info().Str("shop", shop).Msg("Manual setup called")

	outcome, err := h.installService.Setup(r.Context(), shop)
	if err != nil {
		writeSetupResponse(w, http.StatusInternalServerError, SetupResponse{
			Success: false,
			Message: "Failed: " + err.Error(),
		})
		return
	}

	resp := SetupResponse{Success: true}
	if id := outcome.MarkerID(); id != 0 {
		resp.ScriptTagID = formatID(id)
	}
	switch outcome.Status {
	case domain.StatusAlreadyCurrent:
		resp.Message = "Already installed"
	case domain.StatusReplaced:
		resp.Message = "Stale agent link replaced"
	default:
		resp.Message = "Agent API link installed"
	}
	writeSetupResponse(w, http.StatusOK, resp)
}

// HandleInjectTheme is the theme-strategy variant of the setup endpoint. It
// refuses to run unless the service is configured for theme-asset injection:
// running both strategies against one shop would inject the marker twice.
func (h *Handlers) HandleInjectTheme(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Strategy != domain.StrategyThemeAsset {
		writeSetupResponse(w, http.StatusInternalServerError, SetupResponse{
			Success: false,
			Message: "theme-asset strategy is not enabled; set INJECT_STRATEGY=theme_asset",
		})
		return
	}
	h.HandleSetupScript(w, r)
}

// HandleInjectorScript serves the storefront injector.
func (h *Handlers) HandleInjectorScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(h.injectorScript))
}

// HandleWebhook verifies and dispatches incoming Shopify webhooks.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
	if err := h.verifier.Verify(payload, hmacHeader); err != nil {
		h.logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event := &domain.WebhookEvent{
		Topic:    topic,
		Shop:     r.Header.Get("X-Shopify-Shop-Domain"),
		Payload:  payload,
		Verified: true,
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to dispatch webhook event")
		// 500 triggers a Shopify retry
		http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"received": "true"})
}

func writeSetupResponse(w http.ResponseWriter, status int, resp SetupResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
