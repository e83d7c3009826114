package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScopeSpec is wrapped by every scope validation failure
	ErrInvalidScopeSpec = errors.New("invalid scope specification")

	// ErrInvalidConfiguration is wrapped by every configuration validation failure
	ErrInvalidConfiguration = errors.New("invalid entity configuration")
)

// ScopeError reports an invalid scope specification
type ScopeError struct {
	Entity string
	Scope  string
	Reason string
}

func (e *ScopeError) Error() string {
	switch {
	case e.Entity != "" && e.Scope != "":
		return fmt.Sprintf("scope %s.%s: %s", e.Entity, e.Scope, e.Reason)
	case e.Scope != "":
		return fmt.Sprintf("scope %s: %s", e.Scope, e.Reason)
	default:
		return "scope: " + e.Reason
	}
}

// Unwrap allows errors.Is(err, ErrInvalidScopeSpec)
func (e *ScopeError) Unwrap() error {
	return ErrInvalidScopeSpec
}

// Validate checks the configuration invariants: unique properties, embed
// fields drawn from properties, metadata fields drawn from properties or id,
// unique and valid scopes.
func (c *Configuration) Validate() error {
	if c.Label == "" {
		return fmt.Errorf("%w: missing label", ErrInvalidConfiguration)
	}

	props := make(map[string]bool, len(c.Properties))
	for _, p := range c.Properties {
		if props[p] {
			return fmt.Errorf("%w: %s: duplicate property %q", ErrInvalidConfiguration, c.Label, p)
		}
		props[p] = true
	}

	for _, f := range c.EmbedFields {
		if !props[f] {
			return fmt.Errorf("%w: %s: embed field %q is not a property", ErrInvalidConfiguration, c.Label, f)
		}
	}
	for _, f := range c.VectorMetadataFields {
		if !props[f] && f != "id" {
			return fmt.Errorf("%w: %s: vector metadata field %q is not a property", ErrInvalidConfiguration, c.Label, f)
		}
	}

	for i, r := range c.Relationships {
		if r.RelationName == "" || r.TargetLabel == "" {
			return fmt.Errorf("%w: %s: relationship %d needs relation_name and target_label", ErrInvalidConfiguration, c.Label, i)
		}
		switch r.Type {
		case RelationOutbound, RelationInbound, RelationPivot:
		default:
			return fmt.Errorf("%w: %s: relationship %s has unknown type %q", ErrInvalidConfiguration, c.Label, r.RelationName, r.Type)
		}
	}

	seen := make(map[string]bool, len(c.Scopes))
	for _, s := range c.Scopes {
		if seen[s.Name] {
			return &ScopeError{Entity: c.Label, Scope: s.Name, Reason: "duplicate scope name"}
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			var scopeErr *ScopeError
			if errors.As(err, &scopeErr) {
				scopeErr.Entity = c.Label
			}
			return err
		}
	}
	return nil
}
