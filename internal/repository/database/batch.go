package database

import (
	"errors"
	"fmt"
)

var ErrBatchRolledBack = errors.New("batch rolled back")

// settleBatch spreads the first failure of a batch over every row. pgx runs
// a batch as one implicit transaction, so a single failing statement undoes
// the rows queued before it even though their Exec returned nil.
func settleBatch(errs []error, closeErr error) []error {
	cause := closeErr
	for _, err := range errs {
		if err != nil {
			cause = err
			break
		}
	}
	if cause == nil {
		return errs
	}
	for i, err := range errs {
		if err == nil {
			errs[i] = fmt.Errorf("%w: %w", ErrBatchRolledBack, cause)
		}
	}
	return errs
}

func batchFailed(errs []error) bool {
	for _, err := range errs {
		if err != nil {
			return true
		}
	}
	return false
}
