package availability

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gigcal/config"
	availabilityRepo "gigcal/database/repository/availability"
	"gigcal/models"
)

// AvailabilityService is the calendar engine consumed by the checkout flow,
// the payment webhook and the admin calendar.
type AvailabilityService interface {
	CreateOrRenewHold(ctx context.Context, date, note string, ttlSeconds int, existingToken string) (*models.HoldResult, error)
	ReleaseHold(ctx context.Context, date, token string) (bool, error)
	Confirm(ctx context.Context, date, token, note string) error
	Release(ctx context.Context, date string) error
	EffectiveStatus(ctx context.Context, date string) (*models.DayStatus, error)
	RangeStatus(ctx context.Context, from, to string) ([]models.DayStatus, error)
	ExpireHold(ctx context.Context, date, token string) (bool, error)
	ReapExpiredHolds(ctx context.Context) (int64, error)
}

// ExpiryScheduler is told about every hold so it can clear it promptly at
// expiry. It is optional; the store's own expiry covers the same ground.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, date, token string, at time.Time) error
}

// Settings bounds hold lifetimes and range queries.
type Settings struct {
	DefaultTTL   time.Duration
	MinTTL       time.Duration
	MaxTTL       time.Duration
	MaxRangeDays int
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		DefaultTTL:   time.Duration(cfg.HoldTTLDefault) * time.Second,
		MinTTL:       time.Duration(cfg.HoldTTLMin) * time.Second,
		MaxTTL:       time.Duration(cfg.HoldTTLMax) * time.Second,
		MaxRangeDays: cfg.MaxRangeDays,
	}
}

// clampTTL maps a requested lifetime into [MinTTL, MaxTTL]; zero or negative
// requests get DefaultTTL.
func (s Settings) clampTTL(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return s.DefaultTTL
	}
	// Bound in whole seconds first; the multiplication below overflows past
	// roughly 292 years.
	if s.MaxTTL > 0 && int64(ttlSeconds) > int64(s.MaxTTL/time.Second) {
		return s.MaxTTL
	}
	if int64(ttlSeconds) > int64(math.MaxInt64/time.Second) {
		return time.Duration(math.MaxInt64)
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	minTTL := s.MinTTL
	if minTTL < time.Second {
		minTTL = time.Second
	}
	if ttl < minTTL {
		return minTTL
	}
	if s.MaxTTL > 0 && ttl > s.MaxTTL {
		return s.MaxTTL
	}
	return ttl
}

// DefaultAvailabilityService implements AvailabilityService on top of a single
// AvailabilityStore. It holds no locks; per-date exclusion comes from the
// store's conditional writes.
type DefaultAvailabilityService struct {
	Store    availabilityRepo.AvailabilityStore
	Settings Settings
	Logger   *zap.Logger
	Expiry   ExpiryScheduler
	Clock    func() time.Time
	NewToken func() string
}

func NewAvailabilityService(store availabilityRepo.AvailabilityStore, settings Settings, logger *zap.Logger) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{
		Store:    store,
		Settings: settings,
		Logger:   logger,
	}
}

func (s *DefaultAvailabilityService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultAvailabilityService) token() string {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return uuid.NewString()
}

func (s *DefaultAvailabilityService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.L()
}
