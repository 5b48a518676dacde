package adapters

import (
	"strconv"
	"strings"
	"time"
)

// parseTimeFlexible accepts RFC 3339 timestamps, plain date-times and Unix
// epoch seconds as used by SOURCE_DATE_EPOCH. Anything else is the zero
// time.
func parseTimeFlexible(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	if seconds, err := strconv.ParseInt(trimmed, 10, 64); err == nil && seconds >= 0 {
		return time.Unix(seconds, 0).UTC()
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
