package availabilityRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"gigcal/models"
)

// memoryAvailabilityRepo keeps records in process memory. It has no native
// expiry, so expired holds linger until DeleteExpiredHolds runs. Used for
// local development and tests.
type memoryAvailabilityRepo struct {
	mu      sync.Mutex
	records map[string]models.AvailabilityRecord
}

func NewMemoryAvailabilityRepo() AvailabilityStore {
	return &memoryAvailabilityRepo{records: make(map[string]models.AvailabilityRecord)}
}

func (m *memoryAvailabilityRepo) EnsureIndexes(context.Context) error { return nil }

func (m *memoryAvailabilityRepo) Ping(context.Context) error { return nil }

func (m *memoryAvailabilityRepo) lookup(date string) *models.AvailabilityRecord {
	rec, ok := m.records[date]
	if !ok {
		return nil
	}
	return &rec
}

func (m *memoryAvailabilityRepo) Get(ctx context.Context, date string) (*models.AvailabilityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", date, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(date), nil
}

func (m *memoryAvailabilityRepo) GetRange(ctx context.Context, from, to string) ([]models.AvailabilityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("range", from+".."+to, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.AvailabilityRecord
	for date, rec := range m.records {
		if date >= from && date <= to {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memoryAvailabilityRepo) UpsertAtomic(ctx context.Context, date string, pred Predicate, upd Update) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("upsert", date, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.lookup(date)
	if !pred.Matches(current) {
		return false, nil
	}
	m.records[date] = upd.Apply(date, current)
	return true, nil
}

func (m *memoryAvailabilityRepo) DeleteIf(ctx context.Context, date string, pred Predicate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("delete", date, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.lookup(date)
	if current == nil || !pred.Matches(current) {
		return false, nil
	}
	delete(m.records, date)
	return true, nil
}

func (m *memoryAvailabilityRepo) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("reap", "", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for date, rec := range m.records {
		if rec.Status == models.StatusHold && !rec.LiveHold(now) {
			delete(m.records, date)
			n++
		}
	}
	return n, nil
}
