package catalog

import (
	"regexp"
	"strings"
)

// HTML special characters, ampersand first so escapes are not re-escaped.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Naive pattern matches, not an HTML parser. This layer is defense in depth;
// required-field validation is separate.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)expression\(`),
	regexp.MustCompile(`(?is)<script.*?>.*?</script>`),
	regexp.MustCompile(`(?is)<style.*?>.*?</style>`),
	regexp.MustCompile(`(?is)<iframe.*?>.*?</iframe>`),
}

// Sanitize walks an arbitrary JSON-like value and cleans every string leaf.
// Numbers, booleans, and nulls pass through unchanged.
func Sanitize(v any) any {
	switch val := v.(type) {
	case string:
		return sanitizeString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Sanitize(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Sanitize(elem)
		}
		return out
	default:
		return v
	}
}

// SanitizeRecord is the typed convenience wrapper for request payloads.
func SanitizeRecord(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return Sanitize(data).(map[string]any)
}

func sanitizeString(s string) string {
	s = htmlEscaper.Replace(strings.TrimSpace(s))
	for _, re := range dangerousPatterns {
		s = re.ReplaceAllString(s, "")
	}
	return s
}
