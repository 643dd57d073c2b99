package engine

import (
	"errors"
	"fmt"
)

// ErrNoDrives is returned by Run when the drive list is empty.
var ErrNoDrives = errors.New("no drives configured")

// PersistenceError means the store rejected a read or write. It aborts
// the whole run: the store is assumed unusable for later drives too.
type PersistenceError struct {
	Op     string // "reconcile identity", "record observation"
	Device string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeviceFatalError means smartctl could not parse its command line for
// this drive. Nothing is persisted for the drive.
type DeviceFatalError struct {
	Device   string
	Status   uint8
	Messages []string
}

func (e *DeviceFatalError) Error() string {
	return fmt.Sprintf("smartctl failed for %s (exit status %d)", e.Device, e.Status)
}
