package portal

import "strings"

// Affirmative normalizes the boolean-ish values the portal API uses across
// its payloads ("Y", "yes", "true", "1", 1, true, 1.0) into a Go bool.
// Anything else — including nil, "", "N", 0 and unknown types — is false.
// Every consumer of a remote admin/enabled marker goes through this single
// function; the literal set is not repeated at call sites.
func Affirmative(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "y", "yes", "true", "1":
			return true
		}
		return false
	case int:
		return val == 1
	case int64:
		return val == 1
	case float64:
		// JSON numbers decode as float64.
		return val == 1
	default:
		return false
	}
}

// AffirmativeResult unwraps the portal's list-wrapped results before
// normalizing: user.admin may return true, "Y" or ["Y"] depending on the
// portal version. A missing or empty result is false.
func AffirmativeResult(v any) bool {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return false
		}
		return Affirmative(list[0])
	}
	return Affirmative(v)
}
