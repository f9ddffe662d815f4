package domain

import (
	"regexp"
	"time"
)

// Shop represents a storefront that installed the app. The access token is
// stored encrypted; only the application layer ever sees it decrypted.
type Shop struct {
	ID          string    `json:"id" bson:"_id"`
	Domain      string    `json:"domain" bson:"domain"`
	AccessToken string    `json:"-" bson:"access_token"`
	Scopes      []string  `json:"scopes" bson:"scopes"`
	InstalledAt time.Time `json:"installed_at" bson:"installed_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

var versionSuffixRe = regexp.MustCompile(`-v\d+`)

// FrontendDomain strips the first -v<digits> environment suffix from a shop
// domain (e.g. "acme-v2.myshopify.com" -> "acme.myshopify.com"). Shops
// following the multi-environment naming convention map their versioned
// backend domain to a stable frontend domain; for everything else the result
// equals the input. Only the first occurrence is removed.
func FrontendDomain(shopDomain string) string {
	if loc := versionSuffixRe.FindStringIndex(shopDomain); loc != nil {
		return shopDomain[:loc[0]] + shopDomain[loc[1]:]
	}
	return shopDomain
}

// WebhookEvent represents an incoming Shopify webhook after HMAC verification.
type WebhookEvent struct {
	Topic    string `json:"topic"`
	Shop     string `json:"shop"`
	Payload  []byte `json:"payload"`
	Verified bool   `json:"verified"`
}
