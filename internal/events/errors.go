package events

import "errors"

// Sentinel errors for the event/trajectory sink.
var (
	// ErrEmptyEmitter is returned when Emit is called with a blank emitter.
	ErrEmptyEmitter = errors.New("events: emitter is required")

	// ErrEmptyEventType is returned when Emit is called with a blank type.
	ErrEmptyEventType = errors.New("events: type is required")

	// ErrChainBroken is returned by VerifyChain when a hash-chained day
	// file's prev_hash/payload_hash/hash linkage does not verify.
	ErrChainBroken = errors.New("events: hash chain broken")
)
