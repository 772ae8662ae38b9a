package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	availabilityRepo "gigcal/database/repository/availability"
	"gigcal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testSettings() Settings {
	return Settings{
		DefaultTTL:   15 * time.Minute,
		MinTTL:       time.Second,
		MaxTTL:       time.Hour,
		MaxRangeDays: 366,
	}
}

func newTestService(t *testing.T) (*DefaultAvailabilityService, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	var seq atomic.Int64
	svc := NewAvailabilityService(availabilityRepo.NewMemoryAvailabilityRepo(), testSettings(), zap.NewNop())
	svc.Clock = clock.Now
	svc.NewToken = func() string { return fmt.Sprintf("tok-%d", seq.Add(1)) }
	return svc, clock
}

var errBoom = errors.New("connection reset by peer")

// brokenStore fails every call the way an unreachable database would and
// counts how often it was touched.
type brokenStore struct {
	calls atomic.Int64
}

func (b *brokenStore) fail(op string) error {
	b.calls.Add(1)
	return fmt.Errorf("%w: %s: %w", availabilityRepo.ErrUnavailable, op, errBoom)
}

func (b *brokenStore) EnsureIndexes(context.Context) error { return b.fail("indexes") }
func (b *brokenStore) Ping(context.Context) error          { return b.fail("ping") }
func (b *brokenStore) Get(context.Context, string) (*models.AvailabilityRecord, error) {
	return nil, b.fail("get")
}
func (b *brokenStore) GetRange(context.Context, string, string) ([]models.AvailabilityRecord, error) {
	return nil, b.fail("range")
}
func (b *brokenStore) UpsertAtomic(context.Context, string, availabilityRepo.Predicate, availabilityRepo.Update) (bool, error) {
	return false, b.fail("upsert")
}
func (b *brokenStore) DeleteIf(context.Context, string, availabilityRepo.Predicate) (bool, error) {
	return false, b.fail("delete")
}
func (b *brokenStore) DeleteExpiredHolds(context.Context, time.Time) (int64, error) {
	return 0, b.fail("reap")
}

type recordingScheduler struct {
	mu    sync.Mutex
	dates []string
	err   error
}

func (r *recordingScheduler) ScheduleExpiry(_ context.Context, date, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, date)
	return r.err
}

func mustStatus(t *testing.T, svc *DefaultAvailabilityService, date string, want models.Status) *models.DayStatus {
	t.Helper()
	got, err := svc.EffectiveStatus(context.Background(), date)
	if err != nil {
		t.Fatalf("EffectiveStatus(%s): %v", date, err)
	}
	if got.Status != want {
		t.Fatalf("EffectiveStatus(%s) = %s, want %s", date, got.Status, want)
	}
	return got
}

func assertConflict(t *testing.T, err error, want ConflictReason) {
	t.Helper()
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want *ConflictError(%s), got %v", want, err)
	}
	if conflict.Reason != want {
		t.Fatalf("conflict reason = %s, want %s", conflict.Reason, want)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatal("conflict must match ErrConflict")
	}
}

// vanishingStore loses every conditional write and then reports the date as
// empty, as if the blocking record was released between the two calls.
type vanishingStore struct {
	availabilityRepo.AvailabilityStore
}

func (vanishingStore) UpsertAtomic(context.Context, string, availabilityRepo.Predicate, availabilityRepo.Update) (bool, error) {
	return false, nil
}

func (vanishingStore) Get(context.Context, string) (*models.AvailabilityRecord, error) {
	return nil, nil
}
