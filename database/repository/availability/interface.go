// File: database/repository/availability/interface.go
package availabilityRepo

import (
	"context"
	"errors"
	"time"

	"gigcal/models"
)

// ErrUnavailable marks connection, timeout and driver failures. Callers may
// retry with backoff; it is never reported as a successful write.
var ErrUnavailable = errors.New("availability store unavailable")

// Precondition selects the state a date record must be in for a conditional
// write or delete to apply.
type Precondition int

const (
	// Unconditional matches any state, including a missing record.
	Unconditional Precondition = iota
	// Claimable matches a missing record, a free record or a hold that has
	// expired at Predicate.Now.
	Claimable
	// HeldBy matches a hold carrying Predicate.Token, expired or not.
	HeldBy
	// ExpiredHeldBy matches a hold carrying Predicate.Token whose expiry is at
	// or before Predicate.Now.
	ExpiredHeldBy
)

func (p Precondition) String() string {
	switch p {
	case Unconditional:
		return "unconditional"
	case Claimable:
		return "claimable"
	case HeldBy:
		return "heldby"
	case ExpiredHeldBy:
		return "expiredheldby"
	}
	return "unknown"
}

// Predicate is evaluated by the backend in the same atomic step as the write.
type Predicate struct {
	Kind  Precondition
	Token string
	Now   time.Time
}

func Always() Predicate { return Predicate{Kind: Unconditional} }

func ClaimableAt(now time.Time) Predicate { return Predicate{Kind: Claimable, Now: now} }

func HeldByToken(token string) Predicate { return Predicate{Kind: HeldBy, Token: token} }

func ExpiredHoldWithToken(token string, now time.Time) Predicate {
	return Predicate{Kind: ExpiredHeldBy, Token: token, Now: now}
}

// Upserts reports whether a failed match may insert a new record.
func (p Predicate) Upserts() bool {
	return p.Kind == Unconditional || p.Kind == Claimable
}

// Matches evaluates the predicate against a record; rec is nil when no record
// exists for the date. Backends without a query language use it directly.
func (p Predicate) Matches(rec *models.AvailabilityRecord) bool {
	switch p.Kind {
	case Unconditional:
		return true
	case Claimable:
		if rec == nil || rec.Status == "" || rec.Status == models.StatusFree {
			return true
		}
		return rec.Status == models.StatusHold && !rec.LiveHold(p.Now)
	case HeldBy:
		return rec != nil && rec.Status == models.StatusHold && rec.Token == p.Token
	case ExpiredHeldBy:
		return rec != nil && rec.Status == models.StatusHold && rec.Token == p.Token && !rec.LiveHold(p.Now)
	}
	return false
}

// Update is the state written when a predicate matches. A nil Note leaves the
// stored note untouched. Token and ExpiresAt are only kept for holds; any
// other status clears them.
type Update struct {
	Status    models.Status
	Note      *string
	Token     string
	ExpiresAt *time.Time
	Now       time.Time
	// ResetCreated stamps CreatedAt with Now even when the record exists.
	ResetCreated bool
}

// Apply returns the record that results from writing u over rec.
func (u Update) Apply(date string, rec *models.AvailabilityRecord) models.AvailabilityRecord {
	var out models.AvailabilityRecord
	if rec != nil {
		out = *rec
	}
	if rec == nil || u.ResetCreated {
		out.CreatedAt = u.Now
	}
	out.Date = date
	out.Status = u.Status
	out.UpdatedAt = u.Now
	if u.Note != nil {
		out.Note = *u.Note
	}
	if u.Status == models.StatusHold {
		out.Token = u.Token
		out.ExpiresAt = u.ExpiresAt
	} else {
		out.Token = ""
		out.ExpiresAt = nil
	}
	return out
}

// AvailabilityStore persists one record per calendar day. UpsertAtomic and
// DeleteIf evaluate their predicate and perform the write as a single atomic
// operation on the date's record.
type AvailabilityStore interface {
	EnsureIndexes(ctx context.Context) error
	Get(ctx context.Context, date string) (*models.AvailabilityRecord, error)
	GetRange(ctx context.Context, from, to string) ([]models.AvailabilityRecord, error)
	UpsertAtomic(ctx context.Context, date string, pred Predicate, upd Update) (bool, error)
	DeleteIf(ctx context.Context, date string, pred Predicate) (bool, error)
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}
