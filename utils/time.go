// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used in the database and the API
const DateLayout = "2006-01-02"

// MonthLayout is the YYYY-MM layout accepted by the CLI
const MonthLayout = "2006-01"

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowUnix returns the current UTC time as Unix timestamp
func UTCNowUnix() int64 {
	return UTCNow().Unix()
}

// Date builds a UTC midnight date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateToDate drops the clock part of t, keeping its calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// MonthEdges returns the first and last calendar day of the given month
func MonthEdges(year int, month time.Month) (time.Time, time.Time) {
	start := Date(year, month, 1)
	// day 0 of the next month is the last day of this one
	end := Date(year, month+1, 0)
	return start, end
}

// ParseDate parses a YYYY-MM-DD string as a UTC date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM string into the first day of that month
func ParseMonth(value string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", value, err)
	}
	return t, nil
}

// MonthsBetween returns the first day of every month from start to end inclusive
func MonthsBetween(start, end time.Time) []time.Time {
	cur := Date(start.Year(), start.Month(), 1)
	last := Date(end.Year(), end.Month(), 1)

	var months []time.Time
	for !cur.After(last) {
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// PreviousMonth returns the first day of the month before t
func PreviousMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1).AddDate(0, -1, 0)
}
