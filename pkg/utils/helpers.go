package utils

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses duration string like "15s", falling back to def
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return def
	}
	return duration
}

// ParseValue sniffs an untyped cell: int64, then float64, else the trimmed string.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// IsNull reports whether a raw cell is empty or one of the null markers.
func IsNull(s string, markers []string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, m := range markers {
		if s == m {
			return true
		}
	}
	return false
}

// Numeric converts supported types to float64. ok is false for nil and non-numeric values.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}
