package discovery

import (
	"strings"

	"github.com/conduit-lang/scopegraph/internal/model"
)

// sensitivePatterns are never exposed as properties, matched as
// case-insensitive substrings of the field name
var sensitivePatterns = []string{
	"password",
	"secret",
	"token",
	"remember_token",
	"api_key",
	"private_key",
}

// IsSensitive returns true if a field name matches the deny-list
func IsSensitive(field string) bool {
	lower := strings.ToLower(field)
	for _, p := range sensitivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// DiscoverProperties returns the primary key, fillable fields, cast keys and
// timestamp fields of d, minus hidden, sensitive and excluded fields.
// The result never contains duplicates and is never nil.
func DiscoverProperties(d model.Descriptor, exclude []string) []string {
	skip := make(map[string]bool)
	for _, f := range d.HiddenFields() {
		skip[strings.ToLower(f)] = true
	}
	for _, f := range exclude {
		skip[strings.ToLower(f)] = true
	}

	candidates := make([]string, 0)
	if pk := d.PrimaryKey(); pk != "" {
		candidates = append(candidates, pk)
	}
	candidates = append(candidates, d.FillableFields()...)
	candidates = append(candidates, model.SortedCastKeys(d.CastFields())...)
	candidates = append(candidates, d.TimestampFields()...)

	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, field := range candidates {
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		if skip[strings.ToLower(field)] || IsSensitive(field) {
			continue
		}
		result = append(result, field)
	}
	return result
}
