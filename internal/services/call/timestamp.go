package call

import (
	"encoding/json"
	"time"
)

// millisThreshold disambiguates epoch seconds from epoch milliseconds:
// anything above 10^12 is milliseconds (10^12 seconds is ~33,658 AD).
const millisThreshold = 1_000_000_000_000

// ParseTimestamp converts an epoch number (seconds or milliseconds) to a
// canonical UTC instant. Invalid or missing input yields nil rather than an
// error so handlers can apply their own per-field fallback policy.
func ParseTimestamp(raw json.Number) *time.Time {
	if raw.String() == "" {
		return nil
	}

	f, err := raw.Float64()
	if err != nil || f <= 0 {
		return nil
	}

	var t time.Time
	if f > millisThreshold {
		ms := int64(f)
		t = time.UnixMilli(ms)
	} else {
		sec := int64(f)
		// keep sub-second precision when the remote sends fractional seconds
		nsec := int64((f - float64(sec)) * float64(time.Second))
		t = time.Unix(sec, nsec)
	}

	utc := t.UTC()
	return &utc
}
