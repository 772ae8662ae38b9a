package availability

import (
	"context"

	"go.uber.org/zap"

	availabilityRepo "gigcal/database/repository/availability"
)

// Release returns date to free, whatever it held. Releasing a free date is a
// no-op.
func (s *DefaultAvailabilityService) Release(ctx context.Context, date string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	deleted, err := s.Store.DeleteIf(ctx, date, availabilityRepo.Always())
	if err != nil {
		s.logger().Error("release failed", zap.String("date", date), zap.Error(err))
		return err
	}
	s.logger().Info("date released", zap.String("date", date), zap.Bool("wasSet", deleted))
	return nil
}

// ReleaseHold lets the checkout that owns a hold give the date back early.
// It reports false when the date is not held under token.
func (s *DefaultAvailabilityService) ReleaseHold(ctx context.Context, date, token string) (bool, error) {
	if _, err := ParseDate(date); err != nil {
		return false, err
	}
	if token == "" {
		return false, ErrMissingToken
	}
	released, err := s.Store.DeleteIf(ctx, date, availabilityRepo.HeldByToken(token))
	if err != nil {
		s.logger().Error("hold release failed", zap.String("date", date), zap.Error(err))
		return false, err
	}
	s.logger().Info("hold release", zap.String("date", date), zap.Bool("released", released))
	return released, nil
}
