package schema

import (
	"sort"
	"strings"
)

// uncountable words keep their form when pluralized
var uncountable = map[string]bool{
	"data":        true,
	"equipment":   true,
	"information": true,
	"media":       true,
	"news":        true,
	"series":      true,
	"species":     true,
}

// irregular plural forms
var irregular = map[string]string{
	"person": "people",
	"man":    "men",
	"woman":  "women",
	"child":  "children",
	"mouse":  "mice",
}

// Pluralize lowercases a model name and returns its plural collection key.
// Examples: "User" -> "users", "Category" -> "categories", "Box" -> "boxes"
func Pluralize(name string) string {
	word := strings.ToLower(name)
	if word == "" || uncountable[word] {
		return word
	}
	if plural, ok := irregular[word]; ok {
		return plural
	}
	if strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "x"),
		strings.HasSuffix(word, "z"),
		strings.HasSuffix(word, "ch"),
		strings.HasSuffix(word, "sh"):
		return word + "es"
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return word[:len(word)-1] + "ies"
	default:
		return word + "s"
	}
}

func isVowel(c byte) bool {
	return strings.IndexByte("aeiou", c) >= 0
}

func sortStrings(s []string) {
	sort.Strings(s)
}
