package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVerificationStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want VerificationStatus
	}{
		{"verified", VerificationVerified},
		{"true", VerificationVerified},
		{"rejected", VerificationRejected},
		{"false", VerificationRejected},
		{"pending", VerificationPending},
		{"", VerificationPending},
		{"garbage", VerificationPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeVerificationStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeSOSStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want SOSStatus
	}{
		{"pending", SOSStatusPending},
		{"active", SOSStatusPending},
		{"accepted", SOSStatusAccepted},
		{"resolved", SOSStatusResolved},
		{"", SOSStatusPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSOSStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestSOSStatusOpen(t *testing.T) {
	assert.True(t, SOSStatusPending.Open())
	assert.True(t, SOSStatusAccepted.Open())
	assert.False(t, SOSStatusResolved.Open())
}

func TestMedicEligible(t *testing.T) {
	lat, lon := 12.97, 77.59

	verified := &Medic{Status: VerificationVerified, Latitude: &lat, Longitude: &lon}
	assert.True(t, verified.Eligible())

	noLocation := &Medic{Status: VerificationVerified}
	assert.False(t, noLocation.Eligible())

	pending := &Medic{Status: VerificationPending, Latitude: &lat, Longitude: &lon}
	assert.False(t, pending.Eligible())

	rejected := &Medic{Status: VerificationRejected, Latitude: &lat, Longitude: &lon}
	assert.False(t, rejected.Eligible())
}
