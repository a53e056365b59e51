package utils

import "time"

// ToLocal converts t into loc, the business time zone.
func ToLocal(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// StartOfDay truncates t to midnight in loc. Supplement logs are keyed by it.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = ToLocal(t, loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDate accepts either a date (2006-01-02) or an RFC3339 timestamp.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
