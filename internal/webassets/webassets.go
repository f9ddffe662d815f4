// Package webassets carries the storefront injector script served by the app.
package webassets

import (
	_ "embed"
	"strings"
)

//go:embed inject-agent-link.js
var injectorTemplate string

// InjectorScript renders the injector with the agent API base URL baked in.
func InjectorScript(agentAPIURL string) string {
	return strings.ReplaceAll(injectorTemplate, "__AGENT_API_URL__", agentAPIURL)
}
