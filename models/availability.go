package models

import "time"

// DateLayout is the canonical calendar-day format used as the record key.
const DateLayout = "2006-01-02"

// MaxNoteLength bounds the human-readable reason attached to a date.
const MaxNoteLength = 500

type Status string

const (
	StatusFree Status = "free"
	StatusHold Status = "hold"
	StatusBusy Status = "busy"
)

// AvailabilityRecord is the single authoritative document for one calendar day.
// Token and ExpiresAt are only present while Status is hold.
type AvailabilityRecord struct {
	Date      string     `bson:"date" json:"date"`
	Status    Status     `bson:"status" json:"status"`
	Note      string     `bson:"note,omitempty" json:"note,omitempty"`
	Token     string     `bson:"token,omitempty" json:"-"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// LiveHold reports whether the record is a hold that has not yet expired at now.
func (r *AvailabilityRecord) LiveHold(now time.Time) bool {
	return r != nil && r.Status == StatusHold && r.ExpiresAt != nil && r.ExpiresAt.After(now)
}

// DayStatus is the effective status of one calendar day.
type DayStatus struct {
	Date      string     `json:"date"`
	Status    Status     `json:"status"`
	HoldUntil *time.Time `json:"holdUntil,omitempty"`
	Note      string     `json:"note,omitempty"`
}

// HoldResult is returned to the checkout flow after a successful hold.
type HoldResult struct {
	Token     string    `json:"token"`
	HoldUntil time.Time `json:"holdUntil"`
	Renewed   bool      `json:"renewed"`
}

// HoldRequest is the payload of POST /api/availability/hold.
type HoldRequest struct {
	Date       string `json:"date" binding:"required"`
	Note       string `json:"note"`
	TTLSeconds int    `json:"ttlSeconds"`
	Token      string `json:"token"`
}

// ConfirmRequest is the payload of POST /api/availability/confirm and the admin block route.
type ConfirmRequest struct {
	Date  string `json:"date" binding:"required"`
	Token string `json:"token"`
	Note  string `json:"note"`
}

// ReleaseRequest is the payload of the release routes. Token is only used by
// the token-scoped hold cancellation.
type ReleaseRequest struct {
	Date  string `json:"date" binding:"required"`
	Token string `json:"token"`
}

// RangeResponse wraps a complete, gap-free run of days.
type RangeResponse struct {
	Days []DayStatus `json:"days"`
}
