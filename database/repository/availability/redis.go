package availabilityRepo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"gigcal/models"
)

const redisKeyPrefix = "gigcal:availability:"

// matchLua mirrors Predicate.Matches for a hash-per-date layout.
const matchLua = `
local function matches(key, mode, token, now)
  if mode == 'unconditional' then return true end
  local st = redis.call('HGET', key, 'status')
  if mode == 'claimable' then
    if not st or st == 'free' then return true end
    if st == 'hold' then
      return tonumber(redis.call('HGET', key, 'expiresAt') or '0') <= now
    end
    return false
  end
  if st ~= 'hold' then return false end
  if redis.call('HGET', key, 'token') ~= token then return false end
  if mode == 'expiredheldby' then
    return tonumber(redis.call('HGET', key, 'expiresAt') or '0') <= now
  end
  return true
end
`

// ARGV: mode, predicate token, now(ms), date, status, note flag, note, token, expiresAt(ms or ""), reset created flag
var upsertScript = redis.NewScript(matchLua + `
local now = tonumber(ARGV[3])
if not matches(KEYS[1], ARGV[1], ARGV[2], now) then return 0 end
if ARGV[10] == '1' or redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('HSET', KEYS[1], 'createdAt', ARGV[3])
end
redis.call('HSET', KEYS[1], 'date', ARGV[4], 'status', ARGV[5], 'updatedAt', ARGV[3])
if ARGV[6] == '1' then redis.call('HSET', KEYS[1], 'note', ARGV[7]) end
if ARGV[9] ~= '' then
  redis.call('HSET', KEYS[1], 'token', ARGV[8], 'expiresAt', ARGV[9])
  redis.call('PEXPIREAT', KEYS[1], ARGV[9])
else
  redis.call('HDEL', KEYS[1], 'token', 'expiresAt')
  redis.call('PERSIST', KEYS[1])
end
return 1
`)

// ARGV: mode, predicate token, now(ms)
var deleteScript = redis.NewScript(matchLua + `
if not matches(KEYS[1], ARGV[1], ARGV[2], tonumber(ARGV[3])) then return 0 end
return redis.call('DEL', KEYS[1])
`)

// redisAvailabilityRepo stores each day as a hash. Holds carry a PEXPIREAT at
// their expiry, so Redis itself reaps them.
type redisAvailabilityRepo struct {
	client *redis.Client
}

func NewRedisAvailabilityRepo(client *redis.Client) AvailabilityStore {
	return &redisAvailabilityRepo{client: client}
}

func redisKey(date string) string { return redisKeyPrefix + date }

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func parseMillis(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// EnsureIndexes preloads the scripts; Redis has no indexes to build.
func (r *redisAvailabilityRepo) EnsureIndexes(ctx context.Context) error {
	for _, s := range []*redis.Script{upsertScript, deleteScript} {
		if err := s.Load(ctx, r.client).Err(); err != nil {
			return fmt.Errorf("failed to load availability scripts: %w", err)
		}
	}
	return nil
}

func (r *redisAvailabilityRepo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

func decodeRedisRecord(fields map[string]string) *models.AvailabilityRecord {
	if len(fields) == 0 {
		return nil
	}
	rec := &models.AvailabilityRecord{
		Date:   fields["date"],
		Status: models.Status(fields["status"]),
		Note:   fields["note"],
		Token:  fields["token"],
	}
	if t, ok := parseMillis(fields["expiresAt"]); ok {
		rec.ExpiresAt = &t
	}
	if t, ok := parseMillis(fields["createdAt"]); ok {
		rec.CreatedAt = t
	}
	if t, ok := parseMillis(fields["updatedAt"]); ok {
		rec.UpdatedAt = t
	}
	return rec
}

func (r *redisAvailabilityRepo) Get(ctx context.Context, date string) (*models.AvailabilityRecord, error) {
	fields, err := r.client.HGetAll(ctx, redisKey(date)).Result()
	if err != nil {
		return nil, unavailable("get", date, err)
	}
	return decodeRedisRecord(fields), nil
}

// GetRange pipelines one HGETALL per day; range length is bounded by the
// service before it gets here.
func (r *redisAvailabilityRepo) GetRange(ctx context.Context, from, to string) ([]models.AvailabilityRecord, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("range start %q: %w", from, err)
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("range end %q: %w", to, err)
	}

	pipe := r.client.Pipeline()
	var cmds []*redis.StringStringMapCmd
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		cmds = append(cmds, pipe.HGetAll(ctx, redisKey(d.Format(models.DateLayout))))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("range", from+".."+to, err)
	}

	var out []models.AvailabilityRecord
	for _, cmd := range cmds {
		if rec := decodeRedisRecord(cmd.Val()); rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *redisAvailabilityRepo) UpsertAtomic(ctx context.Context, date string, pred Predicate, upd Update) (bool, error) {
	noteFlag, note := "0", ""
	if upd.Note != nil {
		noteFlag, note = "1", *upd.Note
	}
	token, expiresAt := "", ""
	if upd.Status == models.StatusHold && upd.ExpiresAt != nil {
		token, expiresAt = upd.Token, millis(*upd.ExpiresAt)
	}
	reset := "0"
	if upd.ResetCreated {
		reset = "1"
	}

	n, err := upsertScript.Run(ctx, r.client, []string{redisKey(date)},
		pred.Kind.String(), pred.Token, millis(predicateNow(pred, upd)),
		date, string(upd.Status), noteFlag, note, token, expiresAt, reset,
	).Int()
	if err != nil {
		return false, unavailable("upsert", date, err)
	}
	return n == 1, nil
}

func (r *redisAvailabilityRepo) DeleteIf(ctx context.Context, date string, pred Predicate) (bool, error) {
	n, err := deleteScript.Run(ctx, r.client, []string{redisKey(date)},
		pred.Kind.String(), pred.Token, millis(pred.Now),
	).Int()
	if err != nil {
		return false, unavailable("delete", date, err)
	}
	return n > 0, nil
}

// DeleteExpiredHolds is a no-op: hold keys expire on their own.
func (r *redisAvailabilityRepo) DeleteExpiredHolds(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// predicateNow picks the instant stamped on the record. Predicates that do
// not look at time leave Now zero.
func predicateNow(pred Predicate, upd Update) time.Time {
	if !pred.Now.IsZero() {
		return pred.Now
	}
	return upd.Now
}
