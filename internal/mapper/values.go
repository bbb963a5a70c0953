package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseTimestamp normalizes a stored timestamp to UTC. It accepts time.Time,
// values with a Time() method (such as BSON datetimes), ISO-8601 strings,
// numeric strings and numbers as epoch milliseconds. Anything else, and
// unparseable input, yields now.
func ParseTimestamp(v interface{}, now time.Time) time.Time {
	if t, ok := timeValue(v); ok {
		return t
	}
	return now.UTC()
}

func timeValue(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case interface{ Time() time.Time }:
		return val.Time().UTC(), true
	case string:
		return parseTimeString(val)
	case float64:
		return fromMillis(val)
	case float32:
		return fromMillis(float64(val))
	case int:
		return time.UnixMilli(int64(val)).UTC(), true
	case int32:
		return time.UnixMilli(int64(val)).UTC(), true
	case int64:
		return time.UnixMilli(val).UTC(), true
	}
	return time.Time{}, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return fromMillis(ms)
	}
	return time.Time{}, false
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// optionalTime returns nil for absent or unparseable values.
func optionalTime(v interface{}) *time.Time {
	t, ok := timeValue(v)
	if !ok {
		return nil
	}
	return &t
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func trimmedField(fields map[string]interface{}, key string) string {
	return strings.TrimSpace(stringField(fields, key))
}

func boolField(fields map[string]interface{}, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// sizeString accepts the size as stored text or as a byte count.
func sizeString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatInt(int64(val), 10)
	case int, int32, int64:
		return fmt.Sprint(val)
	}
	return ""
}
