package models

import "time"

// Identity is a registry participant, keyed by an opaque identifier
// established upstream (wallet address, session subject, phone number).
type Identity struct {
	ID         string    `json:"id" bson:"_id"`
	Verified   bool      `json:"verified" bson:"verified"`
	VerifiedAt time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
}
