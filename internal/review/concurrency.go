package review

import (
	"os"
	"strconv"

	"github.com/google/uuid"
)

// ConcurrencyKey returns a prefix for per-pass temp files that supports
// parallel CI invocations without collision: an external job ID if
// present, else the process ID, joined with a random suffix for the
// within-process case (multiple reviews in the same CI job).
func ConcurrencyKey() string {
	jobID := os.Getenv("CI_JOB_ID")
	if jobID == "" {
		jobID = strconv.Itoa(os.Getpid())
	}
	return jobID + "-" + uuid.NewString()
}
