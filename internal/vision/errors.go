package vision

import "errors"

var (
	// ErrInvalidVisionID is returned when a vision ID does not match
	// ^vision-\d{3}$.
	ErrInvalidVisionID = errors.New("vision: id must match vision-NNN")

	// ErrInvalidTag is returned when a tag does not match
	// ^[a-z][a-z0-9_-]*$.
	ErrInvalidTag = errors.New("vision: tag must be lowercase hyphenated")

	// ErrNotFound is returned when a vision ID has no entry file.
	ErrNotFound = errors.New("vision: entry not found")

	// ErrInvalidTransition is returned when update_status is asked to
	// perform a transition not permitted by the status DAG.
	ErrInvalidTransition = errors.New("vision: status transition not permitted")

	// ErrOutsideVisionsDir is returned when resolving a vision path escapes
	// the configured visions directory.
	ErrOutsideVisionsDir = errors.New("vision: path outside visions directory")
)
