package discovery

import (
	"fmt"
	"time"
)

// WarningKind classifies a recoverable discovery problem
type WarningKind string

const (
	// WarnUnclassifiableScope: a predicate fits none of the three pattern types
	WarnUnclassifiableScope WarningKind = "unclassifiable_scope"
	// WarnInvalidScope: a classified scope violates the scope invariants
	WarnInvalidScope WarningKind = "invalid_scope"
	// WarnMissingService: a discovery dependency is unavailable
	WarnMissingService WarningKind = "missing_service"
	// WarnFacetFailed: one discovery facet failed and was left empty
	WarnFacetFailed WarningKind = "facet_failed"
	// WarnUnknownTarget: a relationship points at an entity nobody declared
	WarnUnknownTarget WarningKind = "unknown_target"
)

// Warning is one recorded discovery problem
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Entity  string      `json:"entity"`
	Scope   string      `json:"scope,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Scope != "" {
		return fmt.Sprintf("%s: %s.%s: %s", w.Kind, w.Entity, w.Scope, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Entity, w.Message)
}

// Report describes one discovery run. It is informational and never cached.
type Report struct {
	Entity   string        `json:"entity"`
	Warnings []Warning     `json:"warnings"`
	Elapsed  time.Duration `json:"elapsed"`
}

func (r *Report) warn(kind WarningKind, scope, message string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Entity: r.Entity, Scope: scope, Message: message})
}

// HasWarning returns true if a warning of the given kind was recorded
func (r *Report) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
