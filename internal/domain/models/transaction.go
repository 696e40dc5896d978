package models

import "time"

// Transaction records a transfer of custody of product quantity between two
// identities. Transactions are append-only and immutable.
type Transaction struct {
	From      string    `json:"from" bson:"from"`
	To        string    `json:"to" bson:"to"`
	QRCode    string    `json:"qr_code" bson:"qr_code"`
	Quantity  float64   `json:"quantity" bson:"quantity"`
	Price     float64   `json:"price" bson:"price"`
	Kind      string    `json:"kind" bson:"kind"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
