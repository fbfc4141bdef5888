package pathlock

import "errors"

// Sentinel errors for the path and lock facility.
var (
	// ErrNotProjectRoot is returned when no project root marker can be found
	// walking up from the start directory.
	ErrNotProjectRoot = errors.New("pathlock: no project root found")

	// ErrLockTimeout is returned when lock acquisition exceeds its timeout.
	ErrLockTimeout = errors.New("pathlock: lock acquisition timed out")

	// ErrLockNotOwned is returned when Release is called by a non-owner and
	// the owner process is still alive.
	ErrLockNotOwned = errors.New("pathlock: lock not owned by caller")

	// ErrInvalidResource is returned for resource names outside the allowed
	// character set.
	ErrInvalidResource = errors.New("pathlock: invalid resource name")

	// ErrRetryBudgetExceeded is returned when NFS-fallback acquisition
	// exhausts its configured retry count.
	ErrRetryBudgetExceeded = errors.New("pathlock: retry budget exceeded")
)
