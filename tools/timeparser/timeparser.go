package timeparser

import (
	"fmt"
	"time"
)

// ParseMeasureDatetime attempts to parse a measure datetime with multiple formats
func ParseMeasureDatetime(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339,          // Standard RFC3339
		"2006-01-02T15:04:05", // RFC3339 without zone, assumed UTC
		"2006-01-02 15:04:05", // Common SQL-ish format
		"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss, sent by field devices
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse measure datetime '%s': %w", dateStr, lastErr)
}

// MonthWindow returns the half-open UTC range [start, end) of the
// calendar month containing t. End is the first instant of the next month.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	utc := t.UTC()
	start := time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start, end
}

// SameMonth reports whether two timestamps fall in the same calendar month (UTC).
func SameMonth(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month()
}
