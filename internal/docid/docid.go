// Package docid provides identifier coercion and value equality for document ids.
//
// Documents are keyed by primitive.ObjectID, but references can arrive as hex
// strings (request bodies, filter values) or as ObjectIDs (documents read back
// from the store). Everything that compares ids goes through Key so both
// representations of the same id compare equal.
package docid

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coerce converts a raw id into the store's native identifier type.
// Hex strings of a valid ObjectID become primitive.ObjectID; anything else is
// returned unchanged.
func Coerce(v interface{}) interface{} {
	switch id := v.(type) {
	case string:
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			return oid
		}
		return id
	case *primitive.ObjectID:
		if id == nil {
			return nil
		}
		return *id
	default:
		return v
	}
}

// Key returns a comparable string for an id, independent of representation.
func Key(v interface{}) string {
	switch id := Coerce(v).(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprintf("%v", id)
	}
}

// Equal reports whether two ids identify the same document.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Key(a) == Key(b)
}

// New returns a fresh identifier.
func New() primitive.ObjectID {
	return primitive.NewObjectID()
}

// List normalises a stored or submitted reference value into a list of ids.
// nil becomes an empty list, a single id becomes a singleton.
func List(v interface{}) []interface{} {
	switch val := v.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, id := range val {
			if id != nil {
				out = append(out, Coerce(id))
			}
		}
		return out
	case primitive.A:
		return List([]interface{}(val))
	case []string:
		out := make([]interface{}, 0, len(val))
		for _, id := range val {
			out = append(out, Coerce(id))
		}
		return out
	case []primitive.ObjectID:
		out := make([]interface{}, 0, len(val))
		for _, id := range val {
			out = append(out, id)
		}
		return out
	default:
		return []interface{}{Coerce(val)}
	}
}
