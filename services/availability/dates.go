package availability

import (
	"fmt"
	"time"

	"gigcal/models"
)

// ParseDate accepts a canonical YYYY-MM-DD calendar day and returns it as
// midnight UTC. Impossible dates such as 2025-02-30 are rejected.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(models.DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d, err := time.Parse(models.DateLayout, s)
	if err != nil || d.Format(models.DateLayout) != s {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// parseRange validates [from, to] and returns every day in it, inclusive.
func parseRange(from, to string, maxDays int) ([]string, error) {
	start, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	// Both ends are UTC midnights, so the difference is a whole number of days.
	n := int(end.Sub(start)/(24*time.Hour)) + 1
	if maxDays > 0 && n > maxDays {
		return nil, fmt.Errorf("%w: %d days exceeds the limit of %d", ErrInvalidRange, n, maxDays)
	}

	days := make([]string, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(models.DateLayout))
	}
	return days, nil
}

func validateNote(note string) error {
	if len([]rune(note)) > models.MaxNoteLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidNote, models.MaxNoteLength)
	}
	return nil
}
