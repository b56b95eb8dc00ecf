package relationships

import "errors"

var (
	// ErrUnknownTarget is reported when a reference names a collection that is not registered yet
	ErrUnknownTarget = errors.New("unknown target collection")

	// ErrMissingReverseRelationship is returned when the target does not declare the foreign key back
	ErrMissingReverseRelationship = errors.New("missing reverse relationship")

	// ErrUnsupportedRelationshipShape is returned when both sides hold a single id
	ErrUnsupportedRelationshipShape = errors.New("unsupported relationship shape")

	// ErrUnknownRelationship is returned when no relationship is registered for a field
	ErrUnknownRelationship = errors.New("unknown relationship")
)
