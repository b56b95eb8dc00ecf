package integrity

import (
	"errors"
	"fmt"
)

var (
	// ErrOwnerNotFound is returned when the document that owns the references does not exist
	ErrOwnerNotFound = errors.New("owner document not found")

	// ErrNoRelatedDocuments is returned when none of the proposed related ids exist
	ErrNoRelatedDocuments = errors.New("no related documents found")
)

// StoreError wraps a store failure with the collection and operation it hit
type StoreError struct {
	Collection string
	Op         string
	Err        error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the underlying store error
func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(collection, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Collection: collection, Op: op, Err: err}
}
