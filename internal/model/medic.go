package model

import (
	"github.com/google/uuid"
)

// VerificationStatus is the tri-state moderation flag on a medic profile.
// Only an administrator moves it out of pending, and verified/rejected are
// terminal.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// NormalizeVerificationStatus maps the encodings that accumulated across
// revisions of the original store (boolean true, string 'true'/'false',
// NULL-as-pending) onto the single canonical enum. Writers only ever emit
// canonical values.
func NormalizeVerificationStatus(raw string) VerificationStatus {
	switch raw {
	case string(VerificationVerified), "true":
		return VerificationVerified
	case string(VerificationRejected), "false":
		return VerificationRejected
	default:
		return VerificationPending
	}
}

// Medic is a volunteer first-aid provider profile. UserID is the identity
// owned by the auth layer; ID is the profile row.
type Medic struct {
	Base
	UserID                     uuid.UUID          `db:"user_id" json:"user_id"`
	Email                      string             `db:"email" json:"email"`
	Name                       string             `db:"name" json:"name"`
	Phone                      string             `db:"phone" json:"phone"`
	Qualification              string             `db:"qualification" json:"qualification"`
	GovRegistrationType        string             `db:"gov_registration_type" json:"gov_registration_type"`
	GovRegistrationNumber      string             `db:"gov_registration_number" json:"gov_registration_number"`
	GovRegistrationDocumentURL string             `db:"gov_registration_document_url" json:"gov_registration_document_url"`
	GovEmployer                string             `db:"gov_employer" json:"gov_employer"`
	GovIDCardNumber            string             `db:"gov_id_card_number" json:"gov_id_card_number"`
	ServableRegion             string             `db:"servable_region" json:"servable_region"`
	Latitude                   *float64           `db:"latitude" json:"latitude,omitempty"`
	Longitude                  *float64           `db:"longitude" json:"longitude,omitempty"`
	Status                     VerificationStatus `db:"status" json:"status"`
}

// HasLocation reports whether the medic submitted coordinates with the
// profile. Medics without a location never match.
func (m *Medic) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// Eligible reports whether the medic can be offered SOS requests.
func (m *Medic) Eligible() bool {
	return m.Status == VerificationVerified && m.HasLocation()
}

// MedicMatch is a medic paired with its distance from a query point,
// as returned by the proximity matcher.
type MedicMatch struct {
	Medic      *Medic  `json:"medic"`
	DistanceKm float64 `json:"distance_km"`
}
