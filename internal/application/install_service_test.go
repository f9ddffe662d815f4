package application

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"nebula-shopify-bridge/internal/domain"
	"nebula-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepository struct {
	shops        map[string]*domain.Shop
	reconcileLog []*domain.ReconcileRecord
}

func newMemRepository() *memRepository {
	return &memRepository{shops: make(map[string]*domain.Shop)}
}

func (m *memRepository) SaveShop(ctx context.Context, shop *domain.Shop) error {
	if m.shops == nil {
		m.shops = make(map[string]*domain.Shop)
	}
	m.shops[shop.Domain] = shop
	return nil
}

func (m *memRepository) GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	return m.shops[shopDomain], nil
}

func (m *memRepository) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	var out []*domain.Shop
	for _, shop := range m.shops {
		out = append(out, shop)
	}
	return out, nil
}

func (m *memRepository) DeleteShop(ctx context.Context, shopDomain string) error {
	delete(m.shops, shopDomain)
	return nil
}

func (m *memRepository) LogReconcile(ctx context.Context, record *domain.ReconcileRecord) error {
	m.reconcileLog = append(m.reconcileLog, record)
	return nil
}

type memSessionRepository struct {
	sessions map[string]*domain.Session
}

func newMemSessionRepository() *memSessionRepository {
	return &memSessionRepository{sessions: make(map[string]*domain.Session)}
}

func (m *memSessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	m.sessions[session.State] = session
	return nil
}

func (m *memSessionRepository) GetSession(ctx context.Context, state string) (*domain.Session, error) {
	return m.sessions[state], nil
}

func (m *memSessionRepository) DeleteSession(ctx context.Context, state string) error {
	delete(m.sessions, state)
	return nil
}

// fakeEncryption prefixes instead of encrypting so tests can assert on the
// stored form.
type fakeEncryption struct{}

func (fakeEncryption) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryption) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", fmt.Errorf("malformed ciphertext")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type fakePool struct {
	admin ports.AdminAPI
}

func (p *fakePool) GetClient(ctx context.Context, apiKey string, apiSecret string) (ports.AdminAPI, error) {
	return p.admin, nil
}

type recordingNotifier struct {
	payloads []ports.InitPayload
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, payload ports.InitPayload) error {
	n.payloads = append(n.payloads, payload)
	return n.err
}

type installFixture struct {
	service  *InstallService
	admin    *fakeAdminAPI
	repo     *memRepository
	sessions *memSessionRepository
	notifier *recordingNotifier
}

func newInstallFixture(t *testing.T) *installFixture {
	t.Helper()
	cfg := testConfig(domain.StrategyScriptTag)
	cfg.Scopes = []string{"write_script_tags", "read_themes"}
	cfg.ShopifyAPIKey = "key"
	cfg.ShopifyAPISecret = "secret"

	admin := newFakeAdminAPI()
	repo := newMemRepository()
	sessions := newMemSessionRepository()
	notifier := &recordingNotifier{}
	reconciler := NewReconciler(cfg, repo, nil, testRetryConfig(), nil, zerolog.Nop())
	service := NewInstallService(cfg, repo, sessions, fakeEncryption{}, &fakePool{admin: admin},
		reconciler, notifier, nil, zerolog.Nop())

	return &installFixture{service: service, admin: admin, repo: repo, sessions: sessions, notifier: notifier}
}

func (f *installFixture) beginAuth(t *testing.T, shop string) string {
	t.Helper()
	_, err := f.service.BeginAuth(context.Background(), shop, "")
	require.NoError(t, err)
	require.Len(t, f.sessions.sessions, 1)
	for state := range f.sessions.sessions {
		return state
	}
	return ""
}

func TestCompleteAuthStoresEncryptedToken(t *testing.T) {
	f := newInstallFixture(t)
	state := f.beginAuth(t, testShop)

	shop, err := f.service.CompleteAuth(context.Background(), testShop, "auth-code", state)
	require.NoError(t, err)

	assert.Equal(t, testShop, shop.Domain)
	assert.Equal(t, "enc:"+testToken, shop.AccessToken)
	require.NotNil(t, f.repo.shops[testShop])
	assert.Empty(t, f.sessions.sessions, "session is single-use")
	assert.Len(t, f.admin.markerTags(), 1, "install triggers reconciliation")
}

func TestCompleteAuthSucceedsWhenNotifierFails(t *testing.T) {
	f := newInstallFixture(t)
	f.notifier.err = fmt.Errorf("agent API returned 500")
	state := f.beginAuth(t, testShop)

	_, err := f.service.CompleteAuth(context.Background(), testShop, "auth-code", state)
	require.NoError(t, err, "notifier failure must not fail the install")
	assert.NotNil(t, f.repo.shops[testShop])
}

func TestCompleteAuthSucceedsWhenReconcileFails(t *testing.T) {
	f := newInstallFixture(t)
	f.admin.listErrs = []error{
		fmt.Errorf("failed to list script tags: %w", domain.ErrCapabilityUnavailable),
	}
	state := f.beginAuth(t, testShop)

	_, err := f.service.CompleteAuth(context.Background(), testShop, "auth-code", state)
	require.NoError(t, err, "reconcile failure must not fail the install")
	assert.NotNil(t, f.repo.shops[testShop])
	assert.Len(t, f.notifier.payloads, 1, "notifier still fires after a failed reconcile")
}

func TestCompleteAuthRejectsBadSessions(t *testing.T) {
	f := newInstallFixture(t)
	state := f.beginAuth(t, testShop)

	t.Run("unknown state", func(t *testing.T) {
		_, err := f.service.CompleteAuth(context.Background(), testShop, "code", "nope")
		assert.Error(t, err)
	})

	t.Run("shop mismatch", func(t *testing.T) {
		_, err := f.service.CompleteAuth(context.Background(), "other.myshopify.com", "code", state)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		f.sessions.sessions[state].ExpiresAt = time.Now().Add(-time.Minute)
		_, err := f.service.CompleteAuth(context.Background(), testShop, "code", state)
		assert.Error(t, err)
	})
}

func TestNotifyPayloadOmitsMatchingFrontendDomain(t *testing.T) {
	f := newInstallFixture(t)
	state := f.beginAuth(t, testShop)

	_, err := f.service.CompleteAuth(context.Background(), testShop, "code", state)
	require.NoError(t, err)

	require.Len(t, f.notifier.payloads, 1)
	payload := f.notifier.payloads[0]
	assert.Equal(t, testShop, payload.Shop)
	assert.Equal(t, testToken, payload.AccessToken, "notifier receives the plaintext token")
	assert.Equal(t, "write_script_tags,read_themes", payload.Scopes)
	assert.Empty(t, payload.FrontendDomain)
}

func TestNotifyPayloadStripsVersionSuffix(t *testing.T) {
	f := newInstallFixture(t)
	versioned := "acme-v2.myshopify.com"
	state := f.beginAuth(t, versioned)

	_, err := f.service.CompleteAuth(context.Background(), versioned, "code", state)
	require.NoError(t, err)

	require.Len(t, f.notifier.payloads, 1)
	assert.Equal(t, "acme.myshopify.com", f.notifier.payloads[0].FrontendDomain)
}

func TestSetupRequiresInstalledShop(t *testing.T) {
	f := newInstallFixture(t)

	_, err := f.service.Setup(context.Background(), "missing.myshopify.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}

func TestSetupReconcilesInstalledShop(t *testing.T) {
	f := newInstallFixture(t)
	require.NoError(t, f.repo.SaveShop(context.Background(), &domain.Shop{
		Domain:      testShop,
		AccessToken: "enc:" + testToken,
		InstalledAt: time.Now(),
	}))

	outcome, err := f.service.Setup(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInstalled, outcome.Status)
	assert.Len(t, f.admin.markerTags(), 1)

	outcome, err = f.service.Setup(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyCurrent, outcome.Status)
}

func TestUninstallRemovesShop(t *testing.T) {
	f := newInstallFixture(t)
	require.NoError(t, f.repo.SaveShop(context.Background(), &domain.Shop{Domain: testShop}))

	require.NoError(t, f.service.Uninstall(context.Background(), testShop))
	assert.Nil(t, f.repo.shops[testShop])
}
