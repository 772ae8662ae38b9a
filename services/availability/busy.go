package availability

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	availabilityRepo "gigcal/database/repository/availability"
	"gigcal/models"
)

// Confirm marks date as busy whatever its current state. A hold on the date,
// whoever owns it, is consumed. The token is only recorded in the log; by the
// time a payment has succeeded the booking must be able to claim its date.
func (s *DefaultAvailabilityService) Confirm(ctx context.Context, date, token, note string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	if err := validateNote(note); err != nil {
		return err
	}
	logger := s.logger()
	now := s.now()

	upd := availabilityRepo.Update{Status: models.StatusBusy, Now: now}
	if note != "" {
		upd.Note = &note
	}
	ok, err := s.Store.UpsertAtomic(ctx, date, availabilityRepo.Always(), upd)
	if err != nil {
		logger.Error("confirm write failed", zap.String("date", date), zap.Error(err))
		return err
	}
	if !ok {
		// An unconditional upsert always applies unless the backend lost it.
		return fmt.Errorf("%w: confirm %s was not applied", ErrStoreUnavailable, date)
	}

	logger.Info("date confirmed",
		zap.String("date", date), zap.Bool("withToken", token != ""), zap.String("token", token))
	return nil
}
