package application

import (
	"context"
	"fmt"
	"testing"

	"nebula-shopify-bridge/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWebhookHandler struct {
	topic   string
	handled []*domain.WebhookEvent
	err     error
}

func (h *stubWebhookHandler) CanHandle(topic string) bool {
	return topic == h.topic
}

func (h *stubWebhookHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.handled = append(h.handled, event)
	return h.err
}

func TestDispatchRoutesByTopic(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	uninstalled := &stubWebhookHandler{topic: "app/uninstalled"}
	orders := &stubWebhookHandler{topic: "orders/create"}
	d.RegisterHandler(uninstalled)
	d.RegisterHandler(orders)

	event := &domain.WebhookEvent{Topic: "app/uninstalled", Shop: "acme.myshopify.com", Verified: true}
	require.NoError(t, d.Dispatch(context.Background(), event))

	assert.Len(t, uninstalled.handled, 1)
	assert.Empty(t, orders.handled)
}

func TestDispatchWrapsHandlerErrors(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	failing := &stubWebhookHandler{topic: "app/uninstalled", err: fmt.Errorf("mongo unavailable")}
	d.RegisterHandler(failing)

	err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "app/uninstalled"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app/uninstalled")
	assert.ErrorIs(t, err, failing.err)
}

func TestDispatchAcknowledgesUnclaimedTopics(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(&stubWebhookHandler{topic: "app/uninstalled"})

	err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "orders/create"})
	assert.NoError(t, err)
}
