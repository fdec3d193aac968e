// Package classify implements the heuristic semantic-type classifier.
//
// The classifier maps one scalar JSON value onto a closed set of semantic
// types. Non-string values classify directly from their Go type; string
// values run through an ordered battery of "looks like" tests where the
// first match wins.
//
// Design constraints:
//   - Classification is deterministic, pure, and does no I/O.
//   - The battery order is part of the contract: a value matching two
//     heuristics is classified by whichever appears earlier.
//   - All inference is best-effort and may misclassify; callers must not
//     treat the result as validated.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Type is one semantic type from the closed set.
type Type string

const (
	TypeNull          Type = "null"
	TypeBoolean       Type = "boolean"
	TypeInteger       Type = "integer"
	TypeFloat         Type = "float"
	TypeString        Type = "string"
	TypeTimestamp     Type = "timestamp"
	TypeURL           Type = "url"
	TypeEmail         Type = "email"
	TypeUUID          Type = "uuid"
	TypeIPAddress     Type = "ip_address"
	TypeNumericString Type = "numeric_string"
	TypeJSONString    Type = "json_string"
	TypeObject        Type = "object"
	TypeArray         Type = "array"
	TypeUnknown       Type = "unknown"
)

// ArrayOf returns the element-typed array label, e.g. "array<string>".
func ArrayOf(elem Type) Type { return Type("array<" + string(elem) + ">") }

// ArrayMixed is the label for arrays whose sampled elements disagree on a type.
const ArrayMixed Type = "array<mixed>"

var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),                       // ISO date
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`),                      // ISO datetime
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`),   // space-separated
	regexp.MustCompile(`^\d{4}/\d{2}/\d{2}`),                       // slash date
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`),                       // US slash date
	regexp.MustCompile(`^\d{10}$`),                                 // unix seconds
	regexp.MustCompile(`^\d{13}$`),                                 // unix millis
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]`), // ISO with offset
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`),    // ISO with Z
}

var (
	urlPattern     = regexp.MustCompile(`(?i)^https?://[^\s/$.?#].[^\s]*$`)
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	uuidPattern    = regexp.MustCompile(`(?i)^[0-9a-f]{8}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{12}$`)
	ipv4Pattern    = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	ipv6Pattern    = regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$|^::1$|^::$`)
	numericPattern = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?\s*$`)
)

// Value classifies one scalar JSON value.
//
// Non-strings classify directly: nil is null, bool is boolean, numbers split
// into integer vs float, slices are arrays and maps are objects. Strings run
// the ordered heuristic battery; plain "string" is the fallback.
func Value(v any) Type {
	switch t := v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case json.Number:
		if _, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return TypeInteger
		}
		return TypeFloat
	case int, int32, int64, uint, uint32, uint64:
		return TypeInteger
	case float32:
		return floatType(float64(t))
	case float64:
		return floatType(t)
	case string:
		return String(t)
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return TypeUnknown
	}
}

// floatType keeps integral float64 values (the default decode type of JSON
// numbers without UseNumber, and the YAML fallback) classified as integer.
func floatType(f float64) Type {
	if f == float64(int64(f)) {
		return TypeInteger
	}
	return TypeFloat
}

// heuristic is one ordered "looks like" test over a string value.
type heuristic struct {
	typ   Type
	match func(string) bool
}

// battery is the fixed-priority test sequence. First match wins; do not
// reorder without revisiting every downstream consumer of the persisted
// schema format.
var battery = []heuristic{
	{TypeTimestamp, LooksLikeTimestamp},
	{TypeURL, LooksLikeURL},
	{TypeEmail, LooksLikeEmail},
	{TypeUUID, LooksLikeUUID},
	{TypeIPAddress, LooksLikeIPAddress},
	{TypeNumericString, LooksLikeNumericString},
	{TypeJSONString, LooksLikeJSONString},
}

// String classifies a string value through the ordered heuristic battery.
func String(s string) Type {
	for _, h := range battery {
		if h.match(s) {
			return h.typ
		}
	}
	return TypeString
}

// LooksLikeTimestamp reports whether s matches a common date/datetime shape:
// ISO dates and datetimes (with or without offset or Z), space-separated
// date-times, slash dates, and 10/13-digit unix epochs.
func LooksLikeTimestamp(s string) bool {
	if len(s) < 10 {
		return false
	}
	for _, p := range timestampPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// LooksLikeURL reports whether s is an http(s) URL with no embedded whitespace.
func LooksLikeURL(s string) bool { return urlPattern.MatchString(s) }

// LooksLikeEmail reports whether s matches local@domain.tld.
func LooksLikeEmail(s string) bool { return emailPattern.MatchString(s) }

// LooksLikeUUID reports whether s is 32 hex digits with hyphens optional in
// the canonical positions.
func LooksLikeUUID(s string) bool { return uuidPattern.MatchString(s) }

// LooksLikeIPAddress reports whether s is a valid dotted-quad IPv4 address
// (each octet 0-255) or a simplified full-form IPv6 literal.
func LooksLikeIPAddress(s string) bool {
	if ipv4Pattern.MatchString(s) {
		ok := true
		for _, part := range strings.Split(s, ".") {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 || n > 255 {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return ipv6Pattern.MatchString(s)
}

// LooksLikeNumericString reports whether s parses as an integer, float, or
// scientific-notation literal after trimming surrounding whitespace.
func LooksLikeNumericString(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return numericPattern.MatchString(s)
}

// LooksLikeJSONString reports whether the trimmed value is bracketed by
// matching {} or [] delimiters and parses as valid JSON.
func LooksLikeJSONString(s string) bool {
	if len(s) < 2 {
		return false
	}
	s = strings.TrimSpace(s)
	braced := strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
	bracketed := strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
	if !braced && !bracketed {
		return false
	}
	return json.Valid([]byte(s))
}
