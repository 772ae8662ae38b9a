package availability

import (
	"context"
	"time"

	"gigcal/models"
)

// EffectiveStatusOf applies precedence and expiry to a stored record: busy
// wins, a hold only counts while now is before its expiry, everything else is
// free. rec may be nil.
func EffectiveStatusOf(date string, rec *models.AvailabilityRecord, now time.Time) models.DayStatus {
	day := models.DayStatus{Date: date, Status: models.StatusFree}
	if rec == nil {
		return day
	}
	switch {
	case rec.Status == models.StatusBusy:
		day.Status = models.StatusBusy
		day.Note = rec.Note
	case rec.LiveHold(now):
		until := *rec.ExpiresAt
		day.Status = models.StatusHold
		day.HoldUntil = &until
		day.Note = rec.Note
	}
	return day
}

func (s *DefaultAvailabilityService) EffectiveStatus(ctx context.Context, date string) (*models.DayStatus, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	rec, err := s.Store.Get(ctx, date)
	if err != nil {
		return nil, err
	}
	day := EffectiveStatusOf(date, rec, s.now())
	return &day, nil
}

// RangeStatus returns one entry per day in [from, to], including days with no
// record, in date order.
func (s *DefaultAvailabilityService) RangeStatus(ctx context.Context, from, to string) ([]models.DayStatus, error) {
	days, err := parseRange(from, to, s.Settings.MaxRangeDays)
	if err != nil {
		return nil, err
	}
	records, err := s.Store.GetRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.AvailabilityRecord, len(records))
	for i := range records {
		byDate[records[i].Date] = &records[i]
	}

	now := s.now()
	out := make([]models.DayStatus, 0, len(days))
	for _, d := range days {
		out = append(out, EffectiveStatusOf(d, byDate[d], now))
	}
	return out, nil
}
