// Package coerce converts raw, heterogeneous field values (text, blanks,
// locale-formatted numbers, dates) into canonical typed values with defaults.
//
// Dimension natural keys are built from these outputs, so every function here
// is total: malformed input degrades to the provided default (or to absence
// for dates/times), never to an error. That keeps keys stable and comparable
// across runs.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotInformed is the sentinel used for absent categorical values across the
// warehouse. It is kept in the source locale because the dimension contents
// are consumed verbatim by downstream reports.
const NotInformed = "NÃO INFORMADO"

// TimeLayout is the canonical time-of-day representation used in dim_tempo.
const TimeLayout = "15:04:05"

// dateLayouts are tried in order by AsDate and by the AsTime fallback.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
}

// AsText returns the trimmed string form of v, or def when v is nil, empty,
// or blank after trimming.
func AsText(v any, def string) string {
	if v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "nan") {
		return def
	}
	return s
}

// AsInt coerces v to an int, truncating fractional values. Comma decimal
// separators are normalized before parsing. Returns def on any failure.
func AsInt(v any, def int) int {
	switch n := v.(type) {
	case nil:
		return def
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	}
	f, ok := parseFloat(v)
	if !ok {
		return def
	}
	return int(f)
}

// AsFloat coerces v to a float64. Comma decimal separators are normalized
// before parsing. Returns def on any failure.
func AsFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case nil:
		return def
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	f, ok := parseFloat(v)
	if !ok {
		return def
	}
	return f
}

// AsDate parses v into a calendar date (midnight UTC). The second return is
// false when no date could be derived; absence is a valid outcome distinct
// from any sentinel.
func AsDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// AsTime parses v into a canonical "HH:MM:SS" time-of-day. A bare HH:MM:SS
// string is tried first; otherwise the value is parsed as a general date-time
// and its clock component is used. Returns ("", false) on failure.
func AsTime(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if t.IsZero() {
			return "", false
		}
		return t.Format(TimeLayout), true
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.Format(TimeLayout), true
	}
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format(TimeLayout), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), true
		}
	}
	return "", false
}

// parseFloat extracts a float64 from a string-ish value. It normalizes the
// decimal comma used by the source files and tolerates a trailing unit or
// garbage after the leading numeric token (e.g. "12,5 km").
func parseFloat(v any) (float64, bool) {
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	// Fall back to the leading numeric token.
	if tok := leadingNumber(s); tok != "" {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// leadingNumber returns the longest prefix of s (after an optional sign) that
// parses as a decimal number, or "" when s does not start with one.
func leadingNumber(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits, dot := 0, false
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits++
		} else if c == '.' && !dot {
			dot = true
		} else {
			break
		}
		i++
	}
	if digits == 0 {
		return ""
	}
	return s[:i]
}
