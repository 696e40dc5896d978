package models

import "time"

// Batch is a named lot of seed or crop material produced by one farmer.
// Batch numbers are globally unique and a batch is immutable once registered.
type Batch struct {
	BatchNumber   string    `json:"batch_number" bson:"_id"`
	SeedVariety   string    `json:"seed_variety" bson:"seed_variety"`
	PlantingDate  time.Time `json:"planting_date" bson:"planting_date"`
	TotalQuantity float64   `json:"total_quantity" bson:"total_quantity"`
	Farmer        string    `json:"farmer" bson:"farmer"`
	Exists        bool      `json:"exists" bson:"exists"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}
