// Package scope finds the entities and scopes a natural-language question
// refers to and renders them into the instruction block handed to the
// query generator.
package scope

import (
	"regexp"
	"sort"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
)

// ScopeMatch is one scope of a detected entity
type ScopeMatch struct {
	Spec        entity.ScopeSpec `json:"spec"`
	MatchedTerm string           `json:"matched_term"`
}

// Detection is one entity referenced by a question
type Detection struct {
	Label          string                `json:"label"`
	Config         *entity.Configuration `json:"-"`
	MatchedAliases []string              `json:"matched_aliases"`
	Scopes         []ScopeMatch          `json:"scopes"`

	position int
	index    int
	aliased  bool
}

// Detect returns the entities and scopes mentioned in question.
//
// Matching is case-insensitive on whole words; underscores and hyphens
// count as spaces. An entity is detected through any of its aliases, or
// through one of its scopes when no alias-detected entity claims the same
// term. Every matching scope is kept, in declaration order. Entities are
// ordered by the position of their first match, then by input order.
func Detect(question string, configs []*entity.Configuration) []Detection {
	text := normalize(question)
	if text == "" {
		return []Detection{}
	}

	var candidates []*Detection
	for i, cfg := range configs {
		if cfg == nil {
			continue
		}
		d := &Detection{
			Label:          cfg.Label,
			Config:         cfg,
			MatchedAliases: []string{},
			Scopes:         []ScopeMatch{},
			position:       -1,
			index:          i,
		}

		for _, alias := range cfg.Aliases {
			if pos := find(text, normalize(alias)); pos >= 0 {
				d.aliased = true
				d.MatchedAliases = append(d.MatchedAliases, alias)
				d.observe(pos)
			}
		}
		for _, spec := range cfg.Scopes {
			if term, pos := matchScope(text, spec); pos >= 0 {
				d.Scopes = append(d.Scopes, ScopeMatch{Spec: spec, MatchedTerm: term})
				d.observe(pos)
			}
		}

		if d.aliased || len(d.Scopes) > 0 {
			d.MatchedAliases = entity.SortedSet(d.MatchedAliases)
			candidates = append(candidates, d)
		}
	}

	claimed := make(map[string]bool)
	for _, d := range candidates {
		if d.aliased {
			for _, m := range d.Scopes {
				claimed[m.MatchedTerm] = true
			}
		}
	}

	result := make([]Detection, 0, len(candidates))
	for _, d := range candidates {
		if !d.aliased && allClaimed(d.Scopes, claimed) {
			continue
		}
		result = append(result, *d)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].position != result[j].position {
			return result[i].position < result[j].position
		}
		return result[i].index < result[j].index
	})
	return result
}

func (d *Detection) observe(pos int) {
	if d.position < 0 || pos < d.position {
		d.position = pos
	}
}

func allClaimed(matches []ScopeMatch, claimed map[string]bool) bool {
	for _, m := range matches {
		if !claimed[m.MatchedTerm] {
			return false
		}
	}
	return true
}

// matchScope returns the first term of spec found in text and its position.
// Terms are the scope name phrase, its singular and plural forms, and the
// scope's examples.
func matchScope(text string, spec entity.ScopeSpec) (string, int) {
	for _, term := range scopeTerms(spec.Name) {
		term = normalize(term)
		if pos := find(text, term); pos >= 0 {
			return term, pos
		}
	}
	for _, example := range spec.Examples {
		term := normalize(example)
		if pos := find(text, term); pos >= 0 {
			return term, pos
		}
	}
	return "", -1
}

// scopeTerms returns the name phrase of a scope with its last word as
// written, singularized and pluralized
func scopeTerms(name string) []string {
	words := model.Words(name)
	if len(words) == 0 {
		return nil
	}

	prefix := strings.Join(words[:len(words)-1], " ")
	if prefix != "" {
		prefix += " "
	}
	last := words[len(words)-1]

	singular := model.Singularize(last)
	terms := []string{prefix + last}
	for _, variant := range []string{singular, model.Pluralize(singular)} {
		term := prefix + variant
		if !containsString(terms, term) {
			terms = append(terms, term)
		}
	}
	return terms
}

var (
	separators  = regexp.MustCompile(`[_\-]+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// normalize lower-cases s, turns separators into spaces and drops punctuation
func normalize(s string) string {
	s = strings.ToLower(s)
	s = separators.ReplaceAllString(s, " ")
	s = punctuation.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// find returns the byte offset of the first whole-word occurrence of the
// normalized term in the normalized text, or -1. Both are single-space
// separated tokens, so word boundaries are spaces or the ends of the text.
func find(text, term string) int {
	if term == "" {
		return -1
	}
	return strings.Index(" "+text+" ", " "+term+" ")
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
