package models

import "time"

// SupplyChainStep is one append-only provenance event attached to a product.
// Steps accumulate in strict insertion order and are never mutated.
type SupplyChainStep struct {
	Actor       string    `json:"actor" bson:"actor"`
	Action      string    `json:"action" bson:"action"`
	Description string    `json:"description" bson:"description"`
	Location    string    `json:"location" bson:"location"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}
