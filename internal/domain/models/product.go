package models

import "time"

// Status tracks where a product sits in its supply chain. Transitions are
// monotonic: a product never moves back to an earlier status.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusInTransit  Status = "in_transit"
	StatusProcessed  Status = "processed"
	StatusSold       Status = "sold"
)

var statusRank = map[Status]int{
	StatusRegistered: 0,
	StatusInTransit:  1,
	StatusProcessed:  2,
	StatusSold:       3,
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Before reports whether s precedes other in the supply-chain lifecycle.
func (s Status) Before(other Status) bool {
	return statusRank[s] < statusRank[other]
}

// Product is an individually QR-coded item tracked end to end, optionally
// derived from a registered batch.
type Product struct {
	QRCode       string    `json:"qr_code" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Variety      string    `json:"variety" bson:"variety"`
	IronContent  float64   `json:"iron_content" bson:"iron_content"`
	Biofortified bool      `json:"biofortified" bson:"biofortified"`
	Quantity     float64   `json:"quantity" bson:"quantity"`
	HarvestDate  time.Time `json:"harvest_date" bson:"harvest_date"`
	ContentHash  string    `json:"content_hash,omitempty" bson:"content_hash,omitempty"`
	BatchNumber  string    `json:"batch_number,omitempty" bson:"batch_number,omitempty"`
	Creator      string    `json:"creator" bson:"creator"`
	Custodian    string    `json:"custodian" bson:"custodian"`
	Remaining    float64   `json:"remaining" bson:"remaining"`
	Verified     bool      `json:"verified" bson:"verified"`
	Status       Status    `json:"status" bson:"status"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
