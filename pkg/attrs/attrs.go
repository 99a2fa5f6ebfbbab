// Package attrs reads values back out of slog-style key/value lists.
package attrs

// ExtractString returns the string value paired with key in a slice laid out
// as [key1, value1, key2, value2, ...]. Missing keys and non-string values
// yield "".
func ExtractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			if v, ok := attributes[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
