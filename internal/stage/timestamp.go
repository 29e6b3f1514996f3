package stage

import "unicode/utf8"

// minutePrecisionLen is the length of an HTML datetime-local value without
// seconds, e.g. 2024-06-01T09:00.
const minutePrecisionLen = 16

// NormalizeWhen appends ":00" to minute-precision timestamps and returns
// every other input unchanged. It does not parse or validate the value.
func NormalizeWhen(raw string) string {
	if utf8.RuneCountInString(raw) == minutePrecisionLen {
		return raw + ":00"
	}
	return raw
}
