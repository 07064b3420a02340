package normalizers

import (
	"sort"
	"strings"
)

// AuthorSetSeparator joins author names inside a canonical author-set key
const AuthorSetSeparator = ";"

// CanonicalAuthorSet turns a free-text author field into its author-set key: names split on
// commas and semicolons, trimmed, de-duplicated and sorted, joined with ";".
// Two books share a key iff they were written by exactly the same group of people.
func CanonicalAuthorSet(author string) string {
	tokens := strings.FieldsFunc(author, func(r rune) bool {
		return r == ',' || r == ';'
	})

	seen := make(map[string]bool, len(tokens))
	names := make([]string, 0, len(tokens))
	for _, token := range tokens {
		name := strings.TrimSpace(token)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	sort.Strings(names)
	return strings.Join(names, AuthorSetSeparator)
}

// SplitAuthorSet returns the individual author names of a canonical key
func SplitAuthorSet(key string) []string {
	if key == "" {
		return nil
	}
	parts := strings.Split(key, AuthorSetSeparator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}
