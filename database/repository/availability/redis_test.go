package availabilityRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"gigcal/models"
)

func newRedisTestStore(t *testing.T) (AvailabilityStore, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	m.SetTime(base)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisAvailabilityRepo(client)
	if err := store.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("load scripts: %v", err)
	}
	return store, m
}

// seedRedis writes rec as a bare hash with no key expiry, the way a record
// looks in the window before Redis evicts it.
func seedRedis(m *miniredis.Miniredis, rec *models.AvailabilityRecord) {
	fields := []string{"date", rec.Date, "status", string(rec.Status), "createdAt", millis(base)}
	if rec.Token != "" {
		fields = append(fields, "token", rec.Token)
	}
	if rec.ExpiresAt != nil {
		fields = append(fields, "expiresAt", millis(*rec.ExpiresAt))
	}
	m.HSet(redisKey(rec.Date), fields...)
}

func TestRedisScriptsAgreeWithMatches(t *testing.T) {
	store, m := newRedisTestStore(t)
	ctx := context.Background()

	for _, tt := range predicateCases() {
		t.Run(tt.name, func(t *testing.T) {
			m.FlushAll()
			if tt.rec != nil {
				seedRedis(m, tt.rec)
			}
			ok, err := store.UpsertAtomic(ctx, "2025-12-24", tt.pred, Update{Status: models.StatusBusy, Now: base})
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.want {
				t.Fatalf("upsert applied = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestRedisClaimIsExclusive(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	const racers = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.UpsertAtomic(ctx, "2025-12-24", ClaimableAt(base), holdUpdate(fmt.Sprintf("tok-%d", i), base, time.Minute))
			if err != nil {
				t.Errorf("upsert: %v", err)
				return
			}
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if won != 1 {
		t.Fatalf("%d concurrent claims succeeded, want exactly 1", won)
	}
}

func TestRedisHoldExpiresWithKey(t *testing.T) {
	store, m := newRedisTestStore(t)
	ctx := context.Background()

	if ok, err := store.UpsertAtomic(ctx, "2025-12-24", ClaimableAt(base), holdUpdate("mine", base, time.Minute)); err != nil || !ok {
		t.Fatalf("claim = %v, %v", ok, err)
	}
	if ttl := m.TTL(redisKey("2025-12-24")); ttl != time.Minute {
		t.Fatalf("key ttl = %v, want 1m", ttl)
	}
	rec, err := store.Get(ctx, "2025-12-24")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Token != "mine" || rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected record %+v", rec)
	}

	m.FastForward(time.Minute)
	if rec, _ := store.Get(ctx, "2025-12-24"); rec != nil {
		t.Fatalf("hold survived its expiry: %+v", rec)
	}
	if n, err := store.DeleteExpiredHolds(ctx, base.Add(time.Hour)); err != nil || n != 0 {
		t.Fatalf("reap = %d, %v", n, err)
	}
}

func TestRedisConfirmClearsHold(t *testing.T) {
	store, m := newRedisTestStore(t)
	ctx := context.Background()
	later := base.Add(time.Minute)

	if _, err := store.UpsertAtomic(ctx, "2025-12-24", ClaimableAt(base), holdUpdate("mine", base, 10*time.Minute)); err != nil {
		t.Fatal(err)
	}
	note := "booked"
	if ok, err := store.UpsertAtomic(ctx, "2025-12-24", Always(), Update{Status: models.StatusBusy, Note: &note, Now: later}); err != nil || !ok {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
	if ttl := m.TTL(redisKey("2025-12-24")); ttl != 0 {
		t.Fatalf("busy day still expires in %v", ttl)
	}

	rec, err := store.Get(ctx, "2025-12-24")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.StatusBusy || rec.Token != "" || rec.ExpiresAt != nil || rec.Note != "booked" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.CreatedAt.Equal(base) || !rec.UpdatedAt.Equal(later) {
		t.Fatalf("timestamps created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}

	if ok, _ := store.UpsertAtomic(ctx, "2025-12-24", ClaimableAt(later), holdUpdate("other", later, time.Minute)); ok {
		t.Fatal("a hold must not replace a busy day")
	}
}

func TestRedisDeleteIf(t *testing.T) {
	store, m := newRedisTestStore(t)
	ctx := context.Background()

	if _, err := store.UpsertAtomic(ctx, "2025-12-24", ClaimableAt(base), holdUpdate("mine", base, time.Minute)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.DeleteIf(ctx, "2025-12-24", HeldByToken("theirs")); ok {
		t.Fatal("a foreign token must not release the hold")
	}
	if ok, _ := store.DeleteIf(ctx, "2025-12-24", ExpiredHoldWithToken("mine", base)); ok {
		t.Fatal("a live hold must not be expired")
	}
	if ok, _ := store.DeleteIf(ctx, "2025-12-24", HeldByToken("mine")); !ok {
		t.Fatal("owner should release the hold")
	}
	if m.Exists(redisKey("2025-12-24")) {
		t.Fatal("key still present after release")
	}
	if ok, _ := store.DeleteIf(ctx, "2025-12-24", Always()); ok {
		t.Fatal("second delete should be a no-op")
	}
}

func TestRedisGetRange(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2025-12-03", "2025-12-01", "2025-12-09"} {
		if _, err := store.UpsertAtomic(ctx, d, ClaimableAt(base), holdUpdate("tok-"+d, base, time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.UpsertAtomic(ctx, "2025-12-02", Always(), Update{Status: models.StatusBusy, Now: base}); err != nil {
		t.Fatal(err)
	}

	recs, err := store.GetRange(ctx, "2025-12-01", "2025-12-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(recs), recs)
	}
	for i, want := range []string{"2025-12-01", "2025-12-02", "2025-12-03"} {
		if recs[i].Date != want {
			t.Fatalf("recs[%d].Date = %s, want %s", i, recs[i].Date, want)
		}
	}
	if recs[1].Status != models.StatusBusy {
		t.Fatalf("2025-12-02 = %s, want busy", recs[1].Status)
	}

	if _, err := store.GetRange(ctx, "2025-12-01", "12/03/2025"); err == nil {
		t.Fatal("malformed range end accepted")
	}
}

func TestRedisUnavailable(t *testing.T) {
	store, m := newRedisTestStore(t)
	m.Close()

	_, err := store.Get(context.Background(), "2025-12-24")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if _, err := store.UpsertAtomic(context.Background(), "2025-12-24", Always(), Update{Status: models.StatusBusy, Now: base}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
