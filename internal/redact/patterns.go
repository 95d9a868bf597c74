// Package redact provides privacy filtering for mirrored DOM content.
package redact

import "strings"

// DefaultFieldDenylist contains attribute names and JSON field names whose
// values are redacted. Matching is a case-insensitive substring match.
var DefaultFieldDenylist = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"api_key",
	"api-key",
	"accesstoken",
	"access_token",
	"refreshtoken",
	"refresh_token",
	"private_key",
	"privatekey",
	"client_secret",
	"clientsecret",
	"credential",
	"ssn",
	"social_security",
	"credit_card",
	"creditcard",
	"card_number",
	"cardnumber",
	"cvv",
	"nonce",
}

// DefaultQueryParamDenylist contains URL query parameters that are
// redacted inside URL-valued attributes. Matching is exact and
// case-insensitive.
var DefaultQueryParamDenylist = []string{
	"token",
	"access_token",
	"id_token",
	"code",
	"key",
	"api_key",
	"apikey",
	"sig",
	"signature",
	"session",
	"sessionid",
	"password",
	"auth",
}

// urlAttributes are attributes whose values are URLs.
var urlAttributes = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"poster":     true,
	"data":       true,
	"cite":       true,
}

// secretInputTypes are input types whose value attribute is redacted.
var secretInputTypes = map[string]bool{
	"password": true,
	"hidden":   true,
}

// matchExactName checks if a name matches a pattern (case-insensitive).
func matchExactName(actual, pattern string) bool {
	return strings.EqualFold(actual, pattern)
}

// matchFieldName checks if a field or attribute name contains a pattern
// (case-insensitive). This catches variations like "user_password" and
// "data-csrf-token".
func matchFieldName(actual, pattern string) bool {
	return strings.Contains(strings.ToLower(actual), strings.ToLower(pattern))
}
