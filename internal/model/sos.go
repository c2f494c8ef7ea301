package model

import (
	"time"

	"github.com/google/uuid"
)

// SOSStatus is the lifecycle state of an SOS request.
type SOSStatus string

const (
	SOSStatusPending  SOSStatus = "pending"
	SOSStatusAccepted SOSStatus = "accepted"
	SOSStatusResolved SOSStatus = "resolved"

	// sosStatusLegacyActive was written by early revisions of the store
	// and is synonymous with pending. Read-normalized, never written.
	sosStatusLegacyActive = "active"
)

// NormalizeSOSStatus maps stored status text, legacy labels included, onto
// the canonical enum.
func NormalizeSOSStatus(raw string) SOSStatus {
	switch raw {
	case string(SOSStatusAccepted):
		return SOSStatusAccepted
	case string(SOSStatusResolved):
		return SOSStatusResolved
	case sosStatusLegacyActive:
		return SOSStatusPending
	default:
		return SOSStatusPending
	}
}

// Open reports whether the request still counts against the requester's
// one-active-request limit.
func (s SOSStatus) Open() bool {
	return s == SOSStatusPending || s == SOSStatusAccepted
}

// SOSRequest is an emergency call. Coordinates are stored as integer
// micro-degrees (degrees * 1e6); decode before doing distance math.
type SOSRequest struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Email      string     `db:"email" json:"email"`
	LatMicro   int64      `db:"latitude" json:"latitude"`
	LonMicro   int64      `db:"longitude" json:"longitude"`
	Status     SOSStatus  `db:"status" json:"status"`
	AcceptedBy *uuid.UUID `db:"accepted_by" json:"accepted_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// SOSMatch is an open request paired with its distance from a medic's
// stored location, nearest first.
type SOSMatch struct {
	SOSRequest
	DistanceKm float64 `db:"distance_km" json:"distance_km"`
}
