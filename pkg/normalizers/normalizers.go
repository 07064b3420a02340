// Package normalizers provides field normalization functions for dirty sales data
package normalizers

import (
	"strings"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

// IdentityFieldChain turns an identifying attribute into its linking value
var IdentityFieldChain = []string{"trim", "lowercase", "nullish"}

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("nullish", DropNullish)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// nullish are the textual placeholders that missing values turn into once stringified
var nullish = map[string]bool{
	"nan":   true,
	"none":  true,
	"null":  true,
	"nat":   true,
	"<nil>": true,
}

// IsNullish reports whether s is blank or a textual missing-value placeholder
func IsNullish(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || nullish[strings.ToLower(s)]
}

// DropNullish returns "" for blank or placeholder values and s otherwise
func DropNullish(s string) string {
	if IsNullish(s) {
		return ""
	}
	return s
}

// IdentityValue normalizes an identifying attribute (email, phone, address, name) for linking.
// Values are trimmed and lowercased; placeholders become "" and never link rows.
func IdentityValue(s string) string {
	return ApplyChain(s, IdentityFieldChain...)
}

// IsValidEmail applies the user table email rule: the address must contain "@" and "."
func IsValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims the result
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
