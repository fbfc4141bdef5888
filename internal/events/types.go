// Package events implements the Event/Trajectory Sink: per-day
// append-only JSONL logs with a dead-letter queue for malformed or
// failed emissions, and an optional tamper-evident hash-chain mode.
package events

import (
	"encoding/json"
	"time"
)

// Record is one append-only event. Timestamps are UTC ISO-8601 and
// strictly monotonic per emitter.
type Record struct {
	Type      string          `json:"type"`
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`

	// Emitter is not part of the wire record read back by other tools
	// expecting the flat {type,event,timestamp,data} shape; it is kept
	// only for monotonicity bookkeeping before the record is marshaled.
	Emitter string `json:"-"`
}

// chainedRecord is Record plus the hash-chain fields, used only when a
// Sink has HashChain enabled.
type chainedRecord struct {
	Type        string          `json:"type"`
	Event       string          `json:"event"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
	PrevHash    string          `json:"prev_hash"`
	PayloadHash string          `json:"payload_hash"`
	Hash        string          `json:"hash"`
}

// deadLetterEntry records an emission that could not be marshaled or
// written to its day file.
type deadLetterEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Emitter   string    `json:"emitter"`
	Type      string    `json:"type"`
	Event     string    `json:"event"`
	Reason    string    `json:"reason"`
}
