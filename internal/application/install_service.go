package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"nebula-shopify-bridge/internal/config"
	"nebula-shopify-bridge/internal/domain"
	"nebula-shopify-bridge/internal/infrastructure/metrics"
	"nebula-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

const sessionTTL = 10 * time.Minute

// InstallService drives the OAuth install flow and the post-install side
// effects: discovery-marker reconciliation and the credential hand-off to the
// agent-commerce API. Both side effects are best-effort; their failure never
// fails the install itself.
type InstallService struct {
	cfg        config.Config
	repo       ports.Repository
	sessions   ports.SessionRepository
	encryption ports.EncryptionService
	pool       ports.AdminClientPool
	reconciler *Reconciler
	notifier   ports.AgentNotifier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewInstallService creates the install service.
func NewInstallService(
	cfg config.Config,
	repo ports.Repository,
	sessions ports.SessionRepository,
	encryption ports.EncryptionService,
	pool ports.AdminClientPool,
	reconciler *Reconciler,
	notifier ports.AgentNotifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *InstallService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &InstallService{
		cfg:        cfg,
		repo:       repo,
		sessions:   sessions,
		encryption: encryption,
		pool:       pool,
		reconciler: reconciler,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
	}
}

// BeginAuth starts the OAuth flow for a shop and returns the Shopify
// authorization URL to redirect the merchant to.
func (s *InstallService) BeginAuth(ctx context.Context, shop string, returnURL string) (string, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	session := &domain.Session{
		Shop:      shop,
		State:     state,
		Scopes:    s.cfg.Scopes,
		ReturnURL: returnURL,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	admin, err := s.adminClient(ctx)
	if err != nil {
		return "", err
	}

	redirectURI := strings.TrimSuffix(s.cfg.AppURL, "/") + "/auth/callback"
	authURL := admin.AuthorizeURL(shop, s.cfg.Scopes, redirectURI, state)

	s.logger.Info().
		Str("shop", shop).
		Strs("scopes", s.cfg.Scopes).
		Msg("Starting OAuth flow")

	return authURL, nil
}

// CompleteAuth validates the callback, exchanges the code for an offline
// token, stores the shop, and fires the post-install side effects.
func (s *InstallService) CompleteAuth(ctx context.Context, shop string, code string, state string) (*domain.Shop, error) {
	session, err := s.sessions.GetSession(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.Shop != shop {
		return nil, fmt.Errorf("invalid OAuth session for shop %s", shop)
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("OAuth session expired for shop %s", shop)
	}
	if err := s.sessions.DeleteSession(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to delete OAuth session")
	}

	admin, err := s.adminClient(ctx)
	if err != nil {
		return nil, err
	}

	accessToken, err := admin.ExchangeToken(ctx, shop, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	encryptedToken, err := s.encryption.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	domainShop := &domain.Shop{
		Domain:      shop,
		AccessToken: encryptedToken,
		Scopes:      session.Scopes,
		InstalledAt: time.Now().UTC(),
	}
	if err := s.repo.SaveShop(ctx, domainShop); err != nil {
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Strs("scopes", session.Scopes).
		Msg("OAuth token exchange completed")

	s.registerUninstallWebhook(ctx, admin, shop, accessToken)
	s.runPostInstall(ctx, admin, shop, accessToken, session.Scopes)

	return domainShop, nil
}

// runPostInstall fires the reconciler and the agent API notification. Errors
// are logged and swallowed here: the install already succeeded and both side
// effects self-heal on a later re-trigger.
func (s *InstallService) runPostInstall(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string, scopes []string) {
	if _, err := s.reconciler.Reconcile(ctx, admin, shop, accessToken); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Post-install reconciliation failed, will converge on next run")
	}

	payload := ports.InitPayload{
		Shop:        shop,
		AccessToken: accessToken,
		Scopes:      strings.Join(scopes, ","),
	}
	if frontend := domain.FrontendDomain(shop); frontend != shop {
		payload.FrontendDomain = frontend
	}
	if err := s.notifier.Notify(ctx, payload); err != nil {
		s.metrics.NotifyFailures.Inc()
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to notify agent API")
	}
}

func (s *InstallService) registerUninstallWebhook(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string) {
	address := strings.TrimSuffix(s.cfg.AppURL, "/") + "/webhooks/shopify"
	if err := admin.CreateWebhook(ctx, shop, accessToken, "app/uninstalled", address); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to register app/uninstalled webhook")
	}
}

// Setup re-runs reconciliation for an installed shop. This backs the manual
// setup endpoint used for idempotent re-trigger and debugging.
func (s *InstallService) Setup(ctx context.Context, shop string) (domain.ReconcileOutcome, error) {
	var outcome domain.ReconcileOutcome

	stored, err := s.repo.GetShop(ctx, shop)
	if err != nil {
		return outcome, fmt.Errorf("failed to get shop: %w", err)
	}
	if stored == nil {
		return outcome, fmt.Errorf("shop not installed: %s", shop)
	}

	accessToken, err := s.encryption.Decrypt(stored.AccessToken)
	if err != nil {
		return outcome, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	admin, err := s.adminClient(ctx)
	if err != nil {
		return outcome, err
	}

	return s.reconciler.Reconcile(ctx, admin, shop, accessToken)
}

// Uninstall removes the stored shop after an app/uninstalled webhook.
func (s *InstallService) Uninstall(ctx context.Context, shop string) error {
	if err := s.repo.DeleteShop(ctx, shop); err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	s.logger.Info().Str("shop", shop).Msg("Shop uninstalled, credentials removed")
	return nil
}

func (s *InstallService) adminClient(ctx context.Context) (ports.AdminAPI, error) {
	admin, err := s.pool.GetClient(ctx, s.cfg.ShopifyAPIKey, s.cfg.ShopifyAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin client: %w", err)
	}
	return admin, nil
}
