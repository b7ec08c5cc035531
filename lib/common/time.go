package common

import "time"

const timeFormatISO8601 = "2006-01-02T15:04:05.000000000Z07:00"

// FormatISO8601 renders t the way JSONFormat renders time.Time log
// fields.
func FormatISO8601(t time.Time) string {
	return t.Format(timeFormatISO8601)
}
