package rankingservice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSubmissionNotFound is returned when a user has no submission for a type.
var ErrSubmissionNotFound = errors.New("no submission found")

// ErrPartialAggregation is returned when at least one ranking type failed
// during an all-types recompute.
var ErrPartialAggregation = errors.New("aggregation failed for one or more ranking types")

// ErrBeyondRetention rejects a recompute of a day whose submissions may
// already be purged. The day's aggregate rows are kept as history.
var ErrBeyondRetention = errors.New("date is beyond the retention window")

// ValidationError rejects a malformed submission. Reasons lists every failed check.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Reasons, "; ")
}

// StorageError wraps a failed storage call. Nothing from the failing
// operation was committed, so callers may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConsistencyError reports an impossible state found while recomputing
// aggregates. The run is abandoned and committed data is left untouched.
type ConsistencyError struct {
	RankingType int
	Date        string
	Detail      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error for type %d on %s: %s", e.RankingType, e.Date, e.Detail)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
