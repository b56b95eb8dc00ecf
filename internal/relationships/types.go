// Package relationships discovers and classifies associations between
// document collections.
package relationships

import (
	"fmt"

	"github.com/mcrud/mcrud/internal/schema"
)

// Type is the derived shape of a relationship, seen from its owner
type Type int

const (
	// TypeUnknown is returned alongside an error when the type cannot be resolved
	TypeUnknown Type = iota
	// OneToMany means the owner holds many ids and each target holds one owner id
	OneToMany
	// ManyToOne means the owner holds one id and the target holds many owner ids
	ManyToOne
	// ManyToMany means both sides hold arrays of ids
	ManyToMany
)

// String returns the string representation of the relationship type
func (t Type) String() string {
	switch t {
	case OneToMany:
		return "OneToMany"
	case ManyToOne:
		return "ManyToOne"
	case ManyToMany:
		return "ManyToMany"
	default:
		return "Unknown"
	}
}

// Inverse returns the type of the same relationship seen from the target side
func (t Type) Inverse() Type {
	switch t {
	case OneToMany:
		return ManyToOne
	case ManyToOne:
		return OneToMany
	default:
		return t
	}
}

// Relationship is one declared reference from an owner collection to a target
type Relationship struct {
	Owner            string
	Target           string
	LocalKey         string // field on the owner holding the reference(s)
	ForeignKey       string // field on the target expected to hold the owner id(s)
	OwnerCardinality schema.Cardinality
}

// String returns a human readable form, e.g. "Post.author -> User.posts (one)"
func (r Relationship) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s (%s)", r.Owner, r.LocalKey, r.Target, r.ForeignKey, r.OwnerCardinality)
}

// shapeOf applies the cardinality table to an owner and its reverse side
func shapeOf(owner, reverse schema.Cardinality) (Type, bool) {
	switch {
	case owner == schema.Many && reverse == schema.Many:
		return ManyToMany, true
	case owner == schema.Many && reverse == schema.One:
		return OneToMany, true
	case owner == schema.One && reverse == schema.Many:
		return ManyToOne, true
	default:
		return TypeUnknown, false
	}
}
