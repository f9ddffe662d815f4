package domain

import (
	"fmt"
	"time"
)

// InjectStrategy selects how the discovery marker reaches the storefront.
// A shop must only ever be reconciled with one strategy; installing a script
// tag and a theme link on the same shop would inject the marker twice.
type InjectStrategy string

const (
	StrategyScriptTag  InjectStrategy = "script_tag"
	StrategyThemeAsset InjectStrategy = "theme_asset"
)

// ReconcileStatus classifies the result of a successful reconciliation run.
type ReconcileStatus string

const (
	// StatusAlreadyCurrent means a marker matching the canonical URL already
	// existed and nothing was mutated.
	StatusAlreadyCurrent ReconcileStatus = "already_current"
	// StatusInstalled means no marker existed and one was created.
	StatusInstalled ReconcileStatus = "installed"
	// StatusReplaced means a stale marker was removed and a fresh one created.
	StatusReplaced ReconcileStatus = "replaced"
)

// ReconcileOutcome is the result of one Reconcile run.
//
// ExistingID / NewID / OldID carry the remote script tag identifiers involved;
// they are zero under the theme-asset strategy, which has no per-marker id.
type ReconcileOutcome struct {
	Status     ReconcileStatus `json:"status"`
	Strategy   InjectStrategy  `json:"strategy"`
	ExistingID uint64          `json:"existing_id,omitempty"`
	NewID      uint64          `json:"new_id,omitempty"`
	OldID      uint64          `json:"old_id,omitempty"`
}

// MarkerID returns the id of the marker that is current after the run.
func (o ReconcileOutcome) MarkerID() uint64 {
	switch o.Status {
	case StatusAlreadyCurrent:
		return o.ExistingID
	case StatusInstalled, StatusReplaced:
		return o.NewID
	}
	return 0
}

func (o ReconcileOutcome) String() string {
	switch o.Status {
	case StatusAlreadyCurrent:
		return fmt.Sprintf("already current (id=%d)", o.ExistingID)
	case StatusInstalled:
		return fmt.Sprintf("installed (id=%d)", o.NewID)
	case StatusReplaced:
		return fmt.Sprintf("replaced (old=%d new=%d)", o.OldID, o.NewID)
	}
	return string(o.Status)
}

// ReconcileRecord is the audit trail entry written after each run.
type ReconcileRecord struct {
	ID        string          `json:"id" bson:"_id"`
	Shop      string          `json:"shop" bson:"shop"`
	Strategy  InjectStrategy  `json:"strategy" bson:"strategy"`
	Status    ReconcileStatus `json:"status,omitempty" bson:"status,omitempty"`
	Error     string          `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}
