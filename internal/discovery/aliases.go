package discovery

import (
	"strings"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
)

// DefaultSynonyms is the built-in synonym table, keyed by singular
// lower-case snake_case entity name
var DefaultSynonyms = map[string][]string{
	"customer":     {"client", "buyer", "patron"},
	"person":       {"individual", "member"},
	"user":         {"account", "member"},
	"employee":     {"staff member", "worker"},
	"product":      {"item", "article"},
	"order":        {"purchase"},
	"company":      {"organization", "business", "firm"},
	"organization": {"organisation", "org", "company"},
	"invoice":      {"bill"},
	"team":         {"group", "squad"},
	"project":      {"initiative"},
	"task":         {"todo", "assignment"},
	"post":         {"article", "entry"},
	"comment":      {"reply", "remark"},
	"location":     {"place", "site"},
	"document":     {"file"},
	"vehicle":      {"car"},
	"supplier":     {"vendor", "provider"},
	"student":      {"pupil", "learner"},
	"volunteer":    {"helper"},
}

// GenerateAliases derives the human-facing names of an entity: singular and
// plural of the type and collection names, snake, word and studly variants,
// built-in synonyms and configured alias mappings for the short or
// fully-qualified name. The result is a sorted set.
func GenerateAliases(d model.Descriptor, synonyms map[string][]string, mappings map[string][]string) []string {
	short := d.ShortName()
	snake := model.SnakeCase(short)
	singular := strings.ToLower(model.Singularize(snake))
	plural := strings.ToLower(model.Pluralize(singular))

	aliases := []string{
		short,
		model.Pluralize(short),
		singular,
		plural,
		wordsOf(singular),
		wordsOf(plural),
		model.StudlyCase(singular),
		model.StudlyCase(plural),
	}

	if collection := strings.ToLower(d.CollectionName()); collection != "" {
		aliases = append(aliases,
			collection,
			model.Singularize(collection),
			wordsOf(collection),
			wordsOf(model.Singularize(collection)),
		)
	}

	for _, syn := range synonyms[singular] {
		syn = strings.ToLower(strings.TrimSpace(syn))
		aliases = append(aliases, syn, model.Pluralize(syn))
	}

	for key, values := range mappings {
		if strings.EqualFold(key, short) || strings.EqualFold(key, d.Name()) {
			for _, v := range values {
				aliases = append(aliases, strings.TrimSpace(v))
			}
		}
	}

	return entity.SortedSet(aliases)
}

// wordsOf turns snake_case into space separated words
func wordsOf(s string) string {
	return strings.Join(model.Words(s), " ")
}
