package model

import (
	"errors"
	"fmt"
)

// Business-rule failures. All of them are recoverable: the transaction that
// produced one is rolled back and no state changes.
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateHandle      = errors.New("handle already registered")
	ErrBadCredential        = errors.New("bad credential")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotListingOwner      = errors.New("listing belongs to another seller")
	ErrEncounterInProgress  = errors.New("encounter already in progress")
)

// Store failures.
var (
	ErrNoActiveTransaction = errors.New("no active transaction")
	ErrStorageFailure      = errors.New("storage failure")
)

// StorageError wraps an underlying driver error. It matches ErrStorageFailure
// with errors.Is and unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err, returning nil for a nil err.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports ErrStorageFailure as a match.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}
