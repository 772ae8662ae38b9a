package availability

import (
	"context"
	"time"

	"go.uber.org/zap"

	availabilityRepo "gigcal/database/repository/availability"
	"gigcal/models"
)

// CreateOrRenewHold soft-reserves date for the length of a checkout.
//
// A token matching the date's current hold renews it in place and can never
// conflict. Anything else is a new hold, which only succeeds when the date is
// free or its hold has lapsed; otherwise a *ConflictError says whether a
// confirmed booking or another checkout is in the way.
func (s *DefaultAvailabilityService) CreateOrRenewHold(
	ctx context.Context,
	date, note string,
	ttlSeconds int,
	existingToken string,
) (*models.HoldResult, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if err := validateNote(note); err != nil {
		return nil, err
	}
	logger := s.logger()
	ttl := s.Settings.clampTTL(ttlSeconds)
	now := s.now()

	if existingToken != "" {
		renewed, err := s.renew(ctx, date, note, existingToken, now, ttl)
		if err != nil {
			return nil, err
		}
		if renewed != nil {
			logger.Debug("hold renewed",
				zap.String("date", date), zap.Time("holdUntil", renewed.HoldUntil))
			s.scheduleExpiry(ctx, date, renewed.Token, renewed.HoldUntil)
			return renewed, nil
		}
	}

	token := s.token()
	expiresAt := now.Add(ttl)
	ok, err := s.Store.UpsertAtomic(ctx, date, availabilityRepo.ClaimableAt(now), availabilityRepo.Update{
		Status:       models.StatusHold,
		Note:         &note,
		Token:        token,
		ExpiresAt:    &expiresAt,
		Now:          now,
		ResetCreated: true,
	})
	if err != nil {
		logger.Error("hold write failed", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, s.conflictFor(ctx, date, now)
	}

	logger.Info("hold created",
		zap.String("date", date), zap.Time("holdUntil", expiresAt), zap.Duration("ttl", ttl))
	s.scheduleExpiry(ctx, date, token, expiresAt)
	return &models.HoldResult{Token: token, HoldUntil: expiresAt}, nil
}

// renew extends the hold identified by token. It returns nil without error when
// the date is no longer held under that token.
func (s *DefaultAvailabilityService) renew(
	ctx context.Context,
	date, note, token string,
	now time.Time,
	ttl time.Duration,
) (*models.HoldResult, error) {
	expiresAt := now.Add(ttl)
	upd := availabilityRepo.Update{
		Status:    models.StatusHold,
		Token:     token,
		ExpiresAt: &expiresAt,
		Now:       now,
	}
	if note != "" {
		upd.Note = &note
	}
	ok, err := s.Store.UpsertAtomic(ctx, date, availabilityRepo.HeldByToken(token), upd)
	if err != nil {
		s.logger().Error("hold renewal failed", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &models.HoldResult{Token: token, HoldUntil: expiresAt, Renewed: true}, nil
}

// conflictFor reads the record that defeated a hold attempt to tell a busy
// day from a day held by someone else. The read is not atomic with the failed
// write: a record released or reaped in between reads as missing and is
// reported as date_held, which is retryable, so the next attempt claims it.
func (s *DefaultAvailabilityService) conflictFor(ctx context.Context, date string, now time.Time) error {
	rec, err := s.Store.Get(ctx, date)
	if err != nil {
		return err
	}
	reason := ReasonDateHeld
	if rec != nil && rec.Status == models.StatusBusy {
		reason = ReasonDateBusy
	}
	s.logger().Info("hold rejected",
		zap.String("date", date), zap.String("reason", string(reason)), zap.Bool("liveHold", rec.LiveHold(now)))
	return newConflict(date, reason)
}

func (s *DefaultAvailabilityService) scheduleExpiry(ctx context.Context, date, token string, at time.Time) {
	if s.Expiry == nil {
		return
	}
	if err := s.Expiry.ScheduleExpiry(ctx, date, token, at); err != nil {
		s.logger().Warn("failed to schedule hold expiry",
			zap.String("date", date), zap.Time("at", at), zap.Error(err))
	}
}
