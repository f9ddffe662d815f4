package shopify

import (
	"context"
	"fmt"
	"testing"

	"nebula-shopify-bridge/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/stretchr/testify/assert"
)

func TestClassifyCapabilityErrors(t *testing.T) {
	for _, status := range []int{401, 403} {
		err := classify("list script tags", goshopify.ResponseError{Status: status, Message: "denied"})
		assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable, "status %d", status)
		assert.False(t, domain.IsTransient(err))
	}
}

func TestClassifyTransientErrors(t *testing.T) {
	cases := map[string]error{
		"rate limited":  goshopify.RateLimitError{ResponseError: goshopify.ResponseError{Status: 429}},
		"throttled":     goshopify.ResponseError{Status: 429},
		"server error":  goshopify.ResponseError{Status: 503},
		"network error": fmt.Errorf("connection refused"),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			err := classify("create script tag", in)
			assert.True(t, domain.IsTransient(err))
		})
	}
}

func TestClassifyClientErrorsPassThrough(t *testing.T) {
	err := classify("create script tag", goshopify.ResponseError{Status: 422, Message: "src invalid"})
	assert.False(t, domain.IsTransient(err))
	assert.NotErrorIs(t, err, domain.ErrCapabilityUnavailable)

	var respErr goshopify.ResponseError
	assert.ErrorAs(t, err, &respErr)
}

func TestClassifyPreservesCancellation(t *testing.T) {
	err := classify("list themes", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, domain.IsTransient(err))
}
