package ports

import (
	"context"
	"time"
)

// EncryptionService encrypts access tokens before storage.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// InitPayload is the credential hand-off sent to the agent-commerce API after
// a successful install. FrontendDomain is set only when it differs from Shop.
type InitPayload struct {
	Shop           string `json:"shop"`
	AccessToken    string `json:"accessToken"`
	Scopes         string `json:"scopes"`
	FrontendDomain string `json:"frontendDomain,omitempty"`
}

// AgentNotifier forwards shop credentials to the agent-commerce API.
// Notify is best-effort: implementations log failures and return them, but
// callers discard the error and must never let it abort the install flow.
type AgentNotifier interface {
	Notify(ctx context.Context, payload InitPayload) error
}

// ReconcileLocker provides an advisory per-shop lock around reconciliation
// runs. The remote admin API offers no compare-and-swap, so this only narrows
// the window for duplicate markers; the reconciler stays correct without it.
type ReconcileLocker interface {
	// Acquire returns a release func and true when the lock was taken.
	Acquire(ctx context.Context, shop string, ttl time.Duration) (release func(), acquired bool)
}
