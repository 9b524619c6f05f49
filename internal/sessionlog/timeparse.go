package sessionlog

import (
	"strings"
	"time"
)

// providerLayouts covers the DD/MM/YYYY h:mm:ss AM/PM export format. Go's "3"
// accepts one- or two-digit hours.
var providerLayouts = []string{
	"02/01/2006 3:04:05 PM",
	"02/01/2006 3:04:05PM",
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an export timestamp. Naive values are interpreted in
// loc; a nil loc means time.Local.
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	upper := strings.ToUpper(value)
	for _, layout := range providerLayouts {
		if t, err := time.ParseInLocation(layout, upper, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var truthyValues = map[string]struct{}{
	"yes": {}, "sim": {}, "true": {}, "1": {},
}

// ParseBool recognizes yes/sim/true/1 case-insensitively; anything else is false.
func ParseBool(value string) bool {
	_, ok := truthyValues[strings.ToLower(strings.TrimSpace(value))]
	return ok
}
