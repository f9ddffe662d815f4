package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nebula-shopify-bridge/internal/config"
	"nebula-shopify-bridge/internal/domain"
	"nebula-shopify-bridge/internal/infrastructure/metrics"
	"nebula-shopify-bridge/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// MarkerToken is the substring that identifies our discovery script tag
	// among a shop's script tags. Matching is deliberately lenient on the
	// existence test (any src containing the token counts as ours) so that
	// tags created under older URL schemes are recognized and replaced
	// instead of duplicated.
	MarkerToken = "inject-agent-link"

	// markerAttr identifies the discovery link inside a theme layout.
	markerAttr = `rel="agent-api"`

	themeLayoutKey = "layout/theme.liquid"
	headCloseTag   = "</head>"

	lockTTL = 30 * time.Second
)

// Reconciler converges a shop's storefront onto exactly one discovery marker
// pointing at the canonical URL. It is safe to invoke any number of times;
// after the first successful run subsequent runs perform no mutation.
//
// The strategy (script tag vs. theme asset) comes from configuration and must
// never be mixed for one shop, or the marker would be injected twice.
type Reconciler struct {
	cfg     config.Config
	repo    ports.Repository
	locker  ports.ReconcileLocker
	retry   RetryConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewReconciler creates a reconciler. locker may be nil; reconciliation then
// runs without the advisory per-shop lock.
func NewReconciler(
	cfg config.Config,
	repo ports.Repository,
	locker ports.ReconcileLocker,
	retry RetryConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Reconciler{
		cfg:     cfg,
		repo:    repo,
		locker:  locker,
		retry:   retry,
		metrics: m,
		logger:  logger,
	}
}

// Reconcile runs the configured strategy for one shop. The returned error is
// from the domain taxonomy; callers trigger it from request handlers and turn
// it into a structured failure response rather than letting it propagate.
func (r *Reconciler) Reconcile(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string) (domain.ReconcileOutcome, error) {
	if r.locker != nil {
		release, acquired := r.locker.Acquire(ctx, shop, lockTTL)
		if acquired {
			defer release()
		} else {
			// Advisory only: the remote API has no compare-and-swap, so we
			// proceed and rely on the next run to sweep any duplicate.
			r.logger.Warn().Str("shop", shop).Msg("Reconcile lock not acquired, proceeding without it")
		}
	}

	var outcome domain.ReconcileOutcome
	var err error
	switch r.cfg.Strategy {
	case domain.StrategyThemeAsset:
		outcome, err = r.reconcileThemeAsset(ctx, admin, shop, accessToken)
	default:
		outcome, err = r.reconcileScriptTag(ctx, admin, shop, accessToken)
	}

	r.audit(ctx, shop, outcome, err)

	if err != nil {
		r.metrics.ReconcileRuns.WithLabelValues(string(r.cfg.Strategy), "failed").Inc()
		r.logger.Error().Err(err).Str("shop", shop).Str("strategy", string(r.cfg.Strategy)).Msg("Reconciliation failed")
		return outcome, err
	}

	r.metrics.ReconcileRuns.WithLabelValues(string(outcome.Strategy), string(outcome.Status)).Inc()
	r.logger.Info().
		Str("shop", shop).
		Str("strategy", string(outcome.Strategy)).
		Str("outcome", outcome.String()).
		Msg("Reconciliation completed")
	return outcome, nil
}

// reconcileScriptTag lists the shop's script tags and converges on exactly
// one tag whose src is the canonical injector URL. Duplicates are swept
// (newest wins), and a tag with a stale src is deleted and recreated. The
// delete+create pair is not transactional; a crash in between leaves zero
// tags and the next run recreates one.
func (r *Reconciler) reconcileScriptTag(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string) (domain.ReconcileOutcome, error) {
	outcome := domain.ReconcileOutcome{Strategy: domain.StrategyScriptTag}
	canonical := r.cfg.InjectorScriptURL()

	var tags []domain.ScriptTag
	err := r.observe(ctx, "script_tags.list", func(callCtx context.Context) error {
		var listErr error
		tags, listErr = admin.ListScriptTags(callCtx, shop, accessToken)
		return listErr
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to list script tags: %w", err)
	}

	var matches []domain.ScriptTag
	for _, tag := range tags {
		if strings.Contains(tag.Src, MarkerToken) {
			matches = append(matches, tag)
		}
	}

	if len(matches) == 0 {
		created, err := r.createScriptTag(ctx, admin, shop, accessToken, canonical)
		if err != nil {
			return outcome, err
		}
		outcome.Status = domain.StatusInstalled
		outcome.NewID = created.ID
		return outcome, nil
	}

	// Concurrent runs can race list-then-create and leave more than one
	// marker. Keep the newest and sweep the rest before comparing URLs.
	current := matches[0]
	for _, tag := range matches[1:] {
		if tag.CreatedAt.After(current.CreatedAt) || (tag.CreatedAt.Equal(current.CreatedAt) && tag.ID > current.ID) {
			current = tag
		}
	}
	for _, tag := range matches {
		if tag.ID == current.ID {
			continue
		}
		if err := r.deleteScriptTag(ctx, admin, shop, accessToken, tag.ID); err != nil {
			// The duplicate stays behind but the next run sweeps again.
			r.logger.Warn().Err(err).Str("shop", shop).Uint64("tagId", tag.ID).Msg("Failed to sweep duplicate script tag")
		}
	}

	if current.Src == canonical {
		outcome.Status = domain.StatusAlreadyCurrent
		outcome.ExistingID = current.ID
		return outcome, nil
	}

	// Stale URL: strict mode replaces the tag in place.
	if err := r.deleteScriptTag(ctx, admin, shop, accessToken, current.ID); err != nil {
		return outcome, fmt.Errorf("failed to delete stale script tag %d: %w", current.ID, err)
	}
	created, err := r.createScriptTag(ctx, admin, shop, accessToken, canonical)
	if err != nil {
		return outcome, err
	}
	outcome.Status = domain.StatusReplaced
	outcome.OldID = current.ID
	outcome.NewID = created.ID
	return outcome, nil
}

func (r *Reconciler) createScriptTag(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string, src string) (*domain.ScriptTag, error) {
	var created *domain.ScriptTag
	err := r.observe(ctx, "script_tags.create", func(callCtx context.Context) error {
		var createErr error
		created, createErr = admin.CreateScriptTag(callCtx, shop, accessToken, domain.ScriptTag{
			Event: "onload",
			Src:   src,
		})
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create script tag: %w", err)
	}
	if created == nil || created.ID == 0 {
		return nil, fmt.Errorf("script tag created without id: %w", domain.ErrMalformedRemoteResponse)
	}
	return created, nil
}

func (r *Reconciler) deleteScriptTag(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string, tagID uint64) error {
	return r.observe(ctx, "script_tags.delete", func(callCtx context.Context) error {
		return admin.DeleteScriptTag(callCtx, shop, accessToken, tagID)
	})
}

// reconcileThemeAsset splices the discovery <link> into the main theme's
// layout immediately before </head>. The update is a whole-body overwrite
// with no optimistic-concurrency check; the marker substring test keeps
// concurrent runs convergent.
func (r *Reconciler) reconcileThemeAsset(ctx context.Context, admin ports.AdminAPI, shop string, accessToken string) (domain.ReconcileOutcome, error) {
	outcome := domain.ReconcileOutcome{Strategy: domain.StrategyThemeAsset}

	var themes []domain.Theme
	err := r.observe(ctx, "themes.list", func(callCtx context.Context) error {
		var listErr error
		themes, listErr = admin.ListThemes(callCtx, shop, accessToken)
		return listErr
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to list themes: %w", err)
	}

	var mainTheme *domain.Theme
	for i := range themes {
		if themes[i].Role == domain.ThemeRoleMain {
			mainTheme = &themes[i]
			break
		}
	}
	if mainTheme == nil {
		return outcome, fmt.Errorf("shop %s: %w", shop, domain.ErrNoMainTheme)
	}

	var asset *domain.ThemeAsset
	err = r.observe(ctx, "assets.get", func(callCtx context.Context) error {
		var getErr error
		asset, getErr = admin.GetThemeAsset(callCtx, shop, accessToken, mainTheme.ID, themeLayoutKey)
		return getErr
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to get %s: %w", themeLayoutKey, err)
	}

	if strings.Contains(asset.Value, markerAttr) {
		outcome.Status = domain.StatusAlreadyCurrent
		return outcome, nil
	}

	updated, err := SpliceDiscoveryLink(asset.Value, r.discoveryLinkTag(shop))
	if err != nil {
		return outcome, fmt.Errorf("theme %d: %w", mainTheme.ID, err)
	}

	err = r.observe(ctx, "assets.update", func(callCtx context.Context) error {
		return admin.UpdateThemeAsset(callCtx, shop, accessToken, domain.ThemeAsset{
			ThemeID: mainTheme.ID,
			Key:     themeLayoutKey,
			Value:   updated,
		})
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to update %s: %w", themeLayoutKey, err)
	}

	outcome.Status = domain.StatusInstalled
	return outcome, nil
}

// SpliceDiscoveryLink inserts linkTag on its own line immediately before the
// first </head> of body. A body with no </head> is a hard failure: the
// storefront would silently never advertise the discovery document.
func SpliceDiscoveryLink(body string, linkTag string) (string, error) {
	if !strings.Contains(body, headCloseTag) {
		return "", domain.ErrNoHeadElement
	}
	return strings.Replace(body, headCloseTag, "\n"+linkTag+"\n"+headCloseTag, 1), nil
}

func (r *Reconciler) discoveryLinkTag(shop string) string {
	return fmt.Sprintf(`<link rel="agent-api" type="application/vnd.openapi+json;version=3.0" href=%q/>`,
		r.cfg.DiscoveryHref(shop))
}

// observe wraps an admin call with the retry policy and the call duration
// histogram.
func (r *Reconciler) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := doWithRetry(ctx, r.retry, fn)
	r.metrics.AdminCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

// audit appends the run to the reconcile log, best-effort.
func (r *Reconciler) audit(ctx context.Context, shop string, outcome domain.ReconcileOutcome, runErr error) {
	if r.repo == nil {
		return
	}
	record := &domain.ReconcileRecord{
		ID:        uuid.NewString(),
		Shop:      shop,
		Strategy:  r.cfg.Strategy,
		Status:    outcome.Status,
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil {
		record.Status = ""
		record.Error = runErr.Error()
	}
	if err := r.repo.LogReconcile(ctx, record); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to write reconcile audit record")
	}
}
