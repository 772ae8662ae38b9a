package availability

import (
	"context"

	availabilityRepo "gigcal/database/repository/availability"
)

// ExpireHold deletes the hold identified by token once it has lapsed.
func (s *DefaultAvailabilityService) ExpireHold(ctx context.Context, date, token string) (bool, error) {
	return s.Store.DeleteIf(ctx, date, availabilityRepo.ExpiredHoldWithToken(token, s.now()))
}

// ReapExpiredHolds sweeps every lapsed hold.
func (s *DefaultAvailabilityService) ReapExpiredHolds(ctx context.Context) (int64, error) {
	return s.Store.DeleteExpiredHolds(ctx, s.now())
}
