package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrBadTimestamp is returned when a record time cannot be converted.
var ErrBadTimestamp = errors.New("bad timestamp")

// Layouts accepted for string timestamps. Date-only strings are UTC; other
// layouts without a zone are read in local time.
var (
	zonedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05Z0700", time.DateOnly}
	localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}
)

// ParseTimestamp converts a native record time into milliseconds since epoch.
// It accepts time.Time, RFC 3339 strings (with or without zone) and numbers,
// which are taken as milliseconds.
func ParseTimestamp(v any) (int64, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli(), nil
	case *time.Time:
		if t == nil {
			return 0, fmt.Errorf("%w: nil time", ErrBadTimestamp)
		}
		return t.UnixMilli(), nil
	case string:
		return parseTimeString(t)
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, t)
		}
		return int64(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, t.String())
		}
		return ParseTimestamp(f)
	case nil:
		return 0, fmt.Errorf("%w: missing", ErrBadTimestamp)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrBadTimestamp, v)
	}
}

func parseTimeString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UnixMilli(), nil
		}
	}
	for _, layout := range localLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}
