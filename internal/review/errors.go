package review

import "errors"

var (
	// ErrPass2Aborted is returned when Pass 2 fails on both the initial
	// attempt and its one retry.
	ErrPass2Aborted = errors.New("review: pass 2 failed after retry")

	// ErrInvalidReviewType is returned for an empty or unrecognized
	// review_type on a ReviewRequest.
	ErrInvalidReviewType = errors.New("review: invalid review_type")
)
