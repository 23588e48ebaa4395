package utils

import "strconv"

// MakeMap creates a map[string]string from alternating key/value arguments.
// A trailing key without a value is ignored.
func MakeMap(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// FormatKm renders a distance for log lines and metric labels.
func FormatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 3, 64)
}
