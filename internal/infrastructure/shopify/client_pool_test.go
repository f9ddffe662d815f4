package shopify

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientReusesAdapterPerKey(t *testing.T) {
	pool := NewClientPool(zerolog.Nop())

	first, err := pool.GetClient(context.Background(), "key-a", "secret")
	require.NoError(t, err)
	second, err := pool.GetClient(context.Background(), "key-a", "secret")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := pool.GetClient(context.Background(), "key-b", "secret")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestGetClientDistinguishesRotatedSecret(t *testing.T) {
	pool := NewClientPool(zerolog.Nop())

	before, err := pool.GetClient(context.Background(), "key-a", "old-secret")
	require.NoError(t, err)
	after, err := pool.GetClient(context.Background(), "key-a", "new-secret")
	require.NoError(t, err)

	assert.NotSame(t, before, after, "same key with a rotated secret must not reuse the stale adapter")
}

func TestGetClientRejectsEmptyCredentials(t *testing.T) {
	pool := NewClientPool(zerolog.Nop())

	_, err := pool.GetClient(context.Background(), "", "secret")
	assert.Error(t, err)
	_, err = pool.GetClient(context.Background(), "key", "")
	assert.Error(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient("client-id", "secret", zerolog.Nop())

	got := c.AuthorizeURL("acme.myshopify.com",
		[]string{"write_script_tags", "read_themes"},
		"https://app.example/auth/callback", "state-123")

	assert.Contains(t, got, "https://acme.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, got, "client_id=client-id")
	assert.Contains(t, got, "scope=write_script_tags%2Cread_themes")
	assert.Contains(t, got, "redirect_uri=https%3A%2F%2Fapp.example%2Fauth%2Fcallback")
	assert.Contains(t, got, "state=state-123")
}
