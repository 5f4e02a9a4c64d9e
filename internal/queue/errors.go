package queue

import (
	"errors"
	"fmt"
)

// StorageError reports a failed durable write. This is the last line of
// defense against losing recorded intent, so callers must surface it to
// the worker rather than drop it.
type StorageError struct {
	Op       string // "enqueue", "remove", "clear", "list"
	ActionID string // affected action id, if known
	Err      error
}

func (e *StorageError) Error() string {
	if e.ActionID != "" {
		return fmt.Sprintf("queue %s %s: %v", e.Op, e.ActionID, e.Err)
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
