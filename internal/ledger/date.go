package ledger

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted for purchase, production
// and report dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" value for the named field. An empty value
// yields the zero time so callers can apply their own default.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ValidationErrorf("%s must be formatted as 'YYYY-MM-DD'", field)
	}
	return d, nil
}
