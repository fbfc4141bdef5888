package state

import "errors"

var (
	// ErrNotFound is returned when no state document exists for a bridge_id.
	ErrNotFound = errors.New("state: document not found")

	// ErrAlreadyExists is returned by Init when a document already exists.
	ErrAlreadyExists = errors.New("state: document already exists")

	// ErrInvalidField is returned by Get/Set for a dot-path that doesn't
	// resolve to an addressable value.
	ErrInvalidField = errors.New("state: invalid field path")

	// ErrSchemaTooNew is returned by CheckVersion when the on-disk schema
	// version is newer than this binary understands.
	ErrSchemaTooNew = errors.New("state: schema version too new")
)
