package model

import (
	"strings"
	"unicode"
)

// irregularPlurals maps singular forms to their plural forms
var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"tooth":  "teeth",
	"foot":   "feet",
	"mouse":  "mice",
	"goose":  "geese",
	"ox":     "oxen",
	"datum":  "data",
	"status": "statuses",
	"bus":    "buses",
	"campus": "campuses",
	"virus":  "viruses",
	"bonus":  "bonuses",
	"census": "censuses",
}

// irregularSingulars is the reverse of irregularPlurals, built at init
var irregularSingulars = map[string]string{}

var uncountable = map[string]bool{
	"equipment":   true,
	"information": true,
	"news":        true,
	"series":      true,
	"sheep":       true,
	"fish":        true,
	"staff":       true,
	"species":     true,
	"metadata":    true,
}

// fToVes lists words whose trailing f pluralizes to ves
var fToVes = map[string]bool{
	"leaf":  true,
	"half":  true,
	"wolf":  true,
	"shelf": true,
	"calf":  true,
	"loaf":  true,
	"thief": true,
}

var oToOes = map[string]bool{
	"hero":    true,
	"potato":  true,
	"tomato":  true,
	"echo":    true,
	"veto":    true,
	"torpedo": true,
}

func init() {
	for singular, plural := range irregularPlurals {
		irregularSingulars[plural] = singular
	}
}

// SnakeCase converts a string to snake_case.
// Acronyms are kept together: "HTTPServer" becomes "http_server".
func SnakeCase(s string) string {
	var result []rune
	runes := []rune(strings.TrimSpace(s))

	for i, r := range runes {
		if r == ' ' || r == '-' || r == '.' {
			if len(result) > 0 && result[len(result)-1] != '_' {
				result = append(result, '_')
			}
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				result = append(result, '_')
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				result = append(result, '_')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return strings.Trim(string(result), "_")
}

// StudlyCase converts snake_case, kebab-case or space separated words to StudlyCase.
func StudlyCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// UpperSnake converts a name to UPPER_SNAKE_CASE, the conventional edge label form.
func UpperSnake(s string) string {
	return strings.ToUpper(SnakeCase(s))
}

// Words splits an identifier into lower-case words.
func Words(s string) []string {
	return strings.FieldsFunc(SnakeCase(s), func(r rune) bool { return r == '_' })
}

// Pluralize returns the plural form of the last word of s, preserving
// the leading capitalization of that word.
func Pluralize(s string) string {
	prefix, word := splitLastWord(s)
	if word == "" {
		return s
	}
	return prefix + matchCase(word, pluralizeWord(strings.ToLower(word)))
}

// Singularize returns the singular form of the last word of s.
func Singularize(s string) string {
	prefix, word := splitLastWord(s)
	if word == "" {
		return s
	}
	return prefix + matchCase(word, singularizeWord(strings.ToLower(word)))
}

func pluralizeWord(word string) string {
	if uncountable[word] {
		return word
	}
	if plural, ok := irregularPlurals[word]; ok {
		return plural
	}
	if _, ok := irregularSingulars[word]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh"):
		return word + "es"
	case strings.HasSuffix(word, "fe"):
		return word[:len(word)-2] + "ves"
	case fToVes[word]:
		return word[:len(word)-1] + "ves"
	case oToOes[word]:
		return word + "es"
	default:
		return word + "s"
	}
}

func singularizeWord(word string) string {
	if uncountable[word] {
		return word
	}
	if singular, ok := irregularSingulars[word]; ok {
		return singular
	}
	if _, ok := irregularPlurals[word]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ves"):
		stem := word[:len(word)-3]
		if fToVes[stem+"f"] {
			return stem + "f"
		}
		return stem + "fe"
	case strings.HasSuffix(word, "oes") && oToOes[word[:len(word)-2]]:
		return word[:len(word)-2]
	case strings.HasSuffix(word, "sses") || strings.HasSuffix(word, "xes") ||
		strings.HasSuffix(word, "zes") || strings.HasSuffix(word, "ches") ||
		strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss") || strings.HasSuffix(word, "us") || strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s") && len(word) > 1:
		return word[:len(word)-1]
	default:
		return word
	}
}

// splitLastWord splits s at its last word boundary (underscore, space,
// hyphen or lower-to-upper transition) and returns the prefix and last word.
func splitLastWord(s string) (string, string) {
	if s == "" {
		return "", ""
	}
	runes := []rune(s)
	for i := len(runes) - 1; i > 0; i-- {
		r := runes[i]
		if r == '_' || r == ' ' || r == '-' {
			return string(runes[:i+1]), string(runes[i+1:])
		}
		if unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			return string(runes[:i]), string(runes[i:])
		}
	}
	return "", s
}

// matchCase applies the capitalization of original's first letter to word
func matchCase(original, word string) string {
	if word == "" {
		return word
	}
	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
	return word
}

func isVowel(c byte) bool {
	return c == 'a' || c == 'e' || c == 'i' || c == 'o' || c == 'u'
}
