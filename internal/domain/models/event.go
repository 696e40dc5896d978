package models

import "time"

// EventName identifies the kind of registry event being emitted.
type EventName string

const (
	EventBatchCreated         EventName = "BatchCreated"
	EventProductRegistered    EventName = "ProductRegistered"
	EventTransactionRecorded  EventName = "TransactionRecorded"
	EventSupplyChainStepAdded EventName = "SupplyChainStepAdded"
	EventProductVerified      EventName = "ProductVerified"
	EventIdentityVerified     EventName = "IdentityVerified"
	EventRegistryPaused       EventName = "RegistryPaused"
	EventRegistryUnpaused     EventName = "RegistryUnpaused"
)

// Event is one entry in the registry's append-only notification log.
// Events are observational: external indexers and mirrors consume them, but
// they are not part of the registry's correctness contract.
type Event struct {
	Seq       uint64         `json:"seq" bson:"seq"`
	Name      EventName      `json:"name" bson:"name"`
	Key       string         `json:"key" bson:"key"`
	Actor     string         `json:"actor" bson:"actor"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty" bson:"fields,omitempty"`
}

// Receipt confirms a committed write operation to the caller.
type Receipt struct {
	Event     EventName `json:"event"`
	Seq       uint64    `json:"seq"`
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
}

// Anchor is a periodic digest of the committed registry state, persisted by
// the scheduler so mirrored data can be checked against the ledger.
type Anchor struct {
	Seq       uint64    `json:"seq" bson:"seq"`
	Digest    string    `json:"digest" bson:"digest"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
