package redact

import (
	"encoding/json"
	"net/url"
	"strings"
)

// RedactedValue is the placeholder for redacted content.
const RedactedValue = "[REDACTED]"

// Redactor handles redaction of sensitive attribute and text values.
type Redactor struct {
	enabled       bool
	fieldDenylist []string
	paramDenylist []string
}

// New creates a new Redactor with default settings.
func New(enabled bool) *Redactor {
	return &Redactor{
		enabled:       enabled,
		fieldDenylist: DefaultFieldDenylist,
		paramDenylist: DefaultQueryParamDenylist,
	}
}

// NewWithCustomRules creates a Redactor with extra denylist patterns.
func NewWithCustomRules(enabled bool, fields, params []string) *Redactor {
	r := New(enabled)
	if fields != nil {
		r.fieldDenylist = append(append([]string(nil), r.fieldDenylist...), fields...)
	}
	if params != nil {
		r.paramDenylist = append(append([]string(nil), r.paramDenylist...), params...)
	}
	return r
}

// IsEnabled returns whether redaction is enabled.
func (r *Redactor) IsEnabled() bool {
	return r.enabled
}

// Element describes the element that owns an attribute.
type Element struct {
	// NodeName is the upper-case element name, e.g. "INPUT".
	NodeName string
	// InputType is the type attribute of INPUT elements.
	InputType string
}

// RedactAttribute returns the value to log for an attribute.
func (r *Redactor) RedactAttribute(el Element, name, value string) string {
	if !r.enabled || value == "" {
		return value
	}

	lower := strings.ToLower(name)
	if lower == "value" && strings.EqualFold(el.NodeName, "INPUT") && secretInputTypes[strings.ToLower(el.InputType)] {
		return RedactedValue
	}
	if r.shouldRedactField(lower) {
		return RedactedValue
	}
	if urlAttributes[lower] {
		return r.RedactURL(value)
	}
	return value
}

// RedactText returns the value to log for character data. Inline JSON in
// script elements has its sensitive fields redacted; other text passes
// through.
func (r *Redactor) RedactText(parentName, value string) string {
	if !r.enabled || value == "" {
		return value
	}
	if strings.EqualFold(parentName, "SCRIPT") {
		return r.RedactBody(value)
	}
	return value
}

// RedactURL replaces the values of sensitive query parameters. Values that
// do not parse as URLs are returned unchanged.
func (r *Redactor) RedactURL(raw string) string {
	if !r.enabled || !strings.Contains(raw, "?") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	q := u.Query()
	changed := false
	for key := range q {
		if r.shouldRedactParam(key) {
			q.Set(key, RedactedValue)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactBody redacts sensitive fields from a JSON document. Text that is
// not JSON is returned unchanged.
func (r *Redactor) RedactBody(body string) string {
	if !r.enabled || body == "" {
		return body
	}

	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body
	}

	result, err := json.Marshal(r.redactValue(data))
	if err != nil {
		return body
	}
	return string(result)
}

func (r *Redactor) shouldRedactParam(name string) bool {
	for _, pattern := range r.paramDenylist {
		if matchExactName(name, pattern) {
			return true
		}
	}
	return false
}

func (r *Redactor) shouldRedactField(name string) bool {
	for _, pattern := range r.fieldDenylist {
		if matchFieldName(name, pattern) {
			return true
		}
	}
	return false
}

// redactValue recursively redacts sensitive fields in a JSON value.
func (r *Redactor) redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for key, value := range val {
			if r.shouldRedactField(key) {
				result[key] = RedactedValue
			} else {
				result[key] = r.redactValue(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, value := range val {
			result[i] = r.redactValue(value)
		}
		return result
	default:
		return val
	}
}
