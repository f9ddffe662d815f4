package domain

import "time"

// ScriptTag is a remotely managed storefront script resource. Only the fields
// the reconciler reads are mapped; everything else stays with the admin API.
type ScriptTag struct {
	ID        uint64    `json:"id"`
	Event     string    `json:"event"`
	Src       string    `json:"src"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Theme is a shop theme as reported by the admin API.
type Theme struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ThemeRoleMain identifies the currently published theme.
const ThemeRoleMain = "main"

// ThemeAsset is a template file belonging to a theme, addressed by
// (theme id, key). Value holds the full template body.
type ThemeAsset struct {
	ThemeID uint64 `json:"theme_id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}
