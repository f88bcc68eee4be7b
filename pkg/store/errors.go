package store

import (
	"fmt"
)

// StorageError wraps a failure to read or write the settings file. The
// in-memory calibration stays usable when one occurs.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("settings %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
